// Package classifier implements the two-stage anomaly decision: a capture is
// first judged against the long-lived baseline, and large deviations are then
// re-judged against the most recent successful capture to separate gradual
// rendering drift from genuine change.
package classifier

import (
	"context"
	"image"

	"github.com/sirupsen/logrus"

	"chronoview/internal/compare"
	"chronoview/internal/logger"
	"chronoview/pkg/models"
)

// Config carries the classification thresholds, both in percent of canvas
// pixels.
type Config struct {
	// NoiseThreshold is the primary diff ceiling still considered benign
	// rendering variance.
	NoiseThreshold float64

	// SecondaryThreshold is the ceiling for the drift check against the most
	// recent successful capture.
	SecondaryThreshold float64
}

// DefaultConfig returns the thresholds the monitor ships with.
func DefaultConfig() Config {
	return Config{
		NoiseThreshold:     4.0,
		SecondaryThreshold: 1.0,
	}
}

// HistoryLookup resolves the most recent prior successful capture for a
// target.
type HistoryLookup interface {
	MostRecentSuccessful(key models.TargetKey) (*models.HistoryEntry, bool)
}

// SecondaryComparer diffs the current capture against a persisted prior
// capture referenced by a history entry.
type SecondaryComparer interface {
	CompareAgainst(ctx context.Context, current image.Image, testRasterRef string) (*compare.DiffResult, error)
}

// Outcome is the terminal result of one classification.
type Outcome struct {
	Status           models.Status
	PrimaryDiffPct   float64
	SecondaryDiffPct *float64
	Err              error
}

// Classifier turns diff percentages into a terminal status.
type Classifier struct {
	cfg       Config
	history   HistoryLookup
	secondary SecondaryComparer
}

// New creates a classifier over the given history lookup and secondary
// comparison pass.
func New(cfg Config, history HistoryLookup, secondary SecondaryComparer) *Classifier {
	return &Classifier{cfg: cfg, history: history, secondary: secondary}
}

// Classify runs the two-stage decision procedure for one capture.
//
// Primary diff within the noise threshold is a MATCH, and the secondary pass
// is never invoked. Above the noise threshold, the capture is re-compared
// against the most recent successful capture: a close secondary match means
// the baseline deviation is explained by gradual drift (NOISE). Anything else,
// including having no usable history, is SIGNIFICANT. Errors in any stage
// short-circuit to ERROR with whatever percentages were computed.
func (c *Classifier) Classify(ctx context.Context, key models.TargetKey, current image.Image, primaryDiffPct float64) Outcome {
	outcome := Outcome{Status: models.StatusUnknown, PrimaryDiffPct: primaryDiffPct}

	if primaryDiffPct <= c.cfg.NoiseThreshold {
		outcome.Status = models.StatusMatch
		return outcome
	}

	prior, ok := c.history.MostRecentSuccessful(key)
	if !ok {
		// Without recent history there is no way to distinguish drift from a
		// real change, so err toward reporting.
		logger.WithTarget(key.Component, key.Viewport).
			Warn("No prior successful capture; treating baseline deviation as significant")
		outcome.Status = models.StatusSignificant
		return outcome
	}

	secondaryResult, err := c.secondary.CompareAgainst(ctx, current, prior.TestRasterRef)
	if err != nil {
		outcome.Status = models.StatusError
		outcome.Err = err
		return outcome
	}

	secondaryPct := secondaryResult.Percentage
	outcome.SecondaryDiffPct = &secondaryPct

	logger.WithFields(logrus.Fields{
		"component":     key.Component,
		"viewport":      key.Viewport,
		"primary_pct":   primaryDiffPct,
		"secondary_pct": secondaryPct,
	}).Debug("Secondary comparison completed")

	if secondaryPct <= c.cfg.SecondaryThreshold {
		// Deviation from the (possibly stale) baseline is explained by
		// gradual, continuous drift.
		outcome.Status = models.StatusNoise
	} else {
		// Differs materially from both the baseline and the most recent
		// observation: the high-confidence anomaly signal.
		outcome.Status = models.StatusSignificant
	}
	return outcome
}
