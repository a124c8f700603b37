// Package history keeps the bounded, append-only ledger of past comparison
// runs. The ledger is a best-effort trend aid, not a transactional store:
// a missing file is an empty log and a corrupt file is reset with a warning
// rather than aborting the run.
package history

import (
	"encoding/json"
	"fmt"
	"os"

	"chronoview/internal/artifact"
	apperrors "chronoview/internal/errors"
	"chronoview/internal/logger"
	"chronoview/pkg/models"
)

// DefaultMaxEntries is the retention cap when none is configured.
const DefaultMaxEntries = 500

// Log is a bounded FIFO ledger of HistoryEntry records. The design assumes a
// single orchestrator run at a time; there is no concurrent-writer guard.
type Log struct {
	path       string
	maxEntries int
	entries    []models.HistoryEntry

	// rasterExists is swapped in tests; defaults to a storage stat.
	rasterExists func(string) bool
}

// Open loads the ledger at path. A missing file yields an empty log; a
// present-but-unparseable file resets to an empty log with a warning.
func Open(path string, maxEntries int) (*Log, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	l := &Log{
		path:         path,
		maxEntries:   maxEntries,
		rasterExists: artifact.Exists,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to read history log %s", path), err)
	}

	if err := json.Unmarshal(data, &l.entries); err != nil {
		logger.WithError(err).WithField("path", path).
			Warn("History log is corrupt; resetting to empty")
		l.entries = nil
	}
	return l, nil
}

// Append adds one immutable entry and persists the ledger, evicting the
// oldest entries when the retention cap is exceeded.
func (l *Log) Append(entry models.HistoryEntry) error {
	l.entries = append(l.entries, entry)
	if excess := len(l.entries) - l.maxEntries; excess > 0 {
		l.entries = append([]models.HistoryEntry(nil), l.entries[excess:]...)
	}
	return l.persist()
}

// MostRecentSuccessful returns the latest prior run for key that completed
// without error and whose persisted test raster is still present on storage.
func (l *Log) MostRecentSuccessful(key models.TargetKey) (*models.HistoryEntry, bool) {
	var best *models.HistoryEntry
	for i := range l.entries {
		entry := &l.entries[i]
		if entry.Key != key || entry.Status == models.StatusError || entry.TestRasterRef == "" {
			continue
		}
		if !l.rasterExists(entry.TestRasterRef) {
			continue
		}
		if best == nil || entry.Timestamp.After(best.Timestamp) {
			best = entry
		}
	}
	if best == nil {
		return nil, false
	}
	copied := *best
	return &copied, true
}

// Entries returns a copy of the ledger, newest last.
func (l *Log) Entries() []models.HistoryEntry {
	out := make([]models.HistoryEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// EntriesFor returns a copy of the ledger filtered to one target.
func (l *Log) EntriesFor(key models.TargetKey) []models.HistoryEntry {
	var out []models.HistoryEntry
	for _, entry := range l.entries {
		if entry.Key == key {
			out = append(out, entry)
		}
	}
	return out
}

// Len returns the current ledger length.
func (l *Log) Len() int {
	return len(l.entries)
}

func (l *Log) persist() error {
	data, err := json.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		return apperrors.NewInternalError("failed to marshal history log", err)
	}
	return artifact.Install(l.path, data)
}
