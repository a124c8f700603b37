// Package report fans the structured result of every run out to sinks.
// Rendering (HTML dashboards and the like) is a consumer concern; sinks only
// ever receive structured data.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"chronoview/internal/artifact"
	apperrors "chronoview/internal/errors"
	"chronoview/internal/logger"
	"chronoview/pkg/models"
)

// Sink accepts the structured result of one monitoring run.
type Sink interface {
	Publish(ctx context.Context, report models.RunReport) error
}

// LogSink emits each run report as a structured log line.
type LogSink struct{}

// NewLogSink creates a logging report sink.
func NewLogSink() *LogSink {
	return &LogSink{}
}

// Publish logs the report; failing outcomes log at error level.
func (s *LogSink) Publish(ctx context.Context, report models.RunReport) error {
	entry := logger.WithFields(logrus.Fields{
		"component":   report.Key.Component,
		"viewport":    report.Key.Viewport,
		"status":      report.Status,
		"primary_pct": report.PrimaryDiffPct,
		"duration_ms": report.DurationMS,
		"dims_differ": report.DimensionsDiffer,
		"test_ref":    report.TestRef,
		"diff_ref":    report.DiffRef,
	})
	if report.SecondaryDiffPct != nil {
		entry = entry.WithField("secondary_pct", *report.SecondaryDiffPct)
	}
	if report.Error != "" {
		entry = entry.WithField("error", report.Error)
	}

	if report.Failing {
		entry.Error("Run report")
	} else {
		entry.Info("Run report")
	}
	return nil
}

// FileSink persists each run report as a JSON artifact. The report path is
// deterministic so the orchestrator can record it in the history entry.
type FileSink struct {
	dir string
}

// NewFileSink creates a file report sink rooted at dir.
func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

// ReportPath returns where the report artifact for this run will live.
func (s *FileSink) ReportPath(report models.RunReport) string {
	name := fmt.Sprintf("%s.%s.json", report.Key, report.Timestamp.UTC().Format("20060102T150405Z"))
	return filepath.Join(s.dir, name)
}

// Publish writes the report artifact atomically.
func (s *FileSink) Publish(ctx context.Context, report models.RunReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return apperrors.NewInternalError("failed to marshal run report", err)
	}
	return artifact.Install(s.ReportPath(report), data)
}
