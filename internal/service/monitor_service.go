// Package service sequences one monitoring run: capture, normalize, diff,
// classify, persist, report. I/O lives at this layer's edges; the comparison
// and classification stages underneath are pure.
package service

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"time"

	"chronoview/internal/artifact"
	"chronoview/internal/baseline"
	"chronoview/internal/capture"
	"chronoview/internal/classifier"
	"chronoview/internal/compare"
	"chronoview/internal/history"
	"chronoview/internal/logger"
	"chronoview/internal/observer"
	"chronoview/internal/report"
	"chronoview/pkg/models"
)

const artifactTimeLayout = "20060102T150405Z"

// MonitorService runs visual comparisons against monitored targets. Within
// one run, baseline update and comparison are mutually exclusive; invocations
// are assumed strictly sequential.
type MonitorService struct {
	captures   capture.Adapter
	baselines  *baseline.Store
	history    *history.Log
	classifier *classifier.Classifier
	sinks      []report.Sink
	fileSink   *report.FileSink // optional; provides the report artifact ref
	events     observer.Subject
	outputDir  string
	diffOpts   compare.Options

	now func() time.Time
}

// NewMonitorService wires the orchestrator. fileSink may be nil when no
// report artifacts should be persisted; events may be nil to disable run
// events.
func NewMonitorService(
	captures capture.Adapter,
	baselines *baseline.Store,
	historyLog *history.Log,
	cls *classifier.Classifier,
	sinks []report.Sink,
	fileSink *report.FileSink,
	events observer.Subject,
	outputDir string,
	diffOpts compare.Options,
) *MonitorService {
	return &MonitorService{
		captures:   captures,
		baselines:  baselines,
		history:    historyLog,
		classifier: cls,
		sinks:      sinks,
		fileSink:   fileSink,
		events:     events,
		outputDir:  outputDir,
		diffOpts:   diffOpts,
		now:        time.Now,
	}
}

// HistoryComparer is the secondary comparison pass the classifier invokes:
// it loads the referenced prior capture and diffs the current raster against
// it on a common canvas.
type HistoryComparer struct {
	Opts compare.Options
}

// CompareAgainst implements classifier.SecondaryComparer.
func (h *HistoryComparer) CompareAgainst(ctx context.Context, current image.Image, testRasterRef string) (*compare.DiffResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prior, err := artifact.Load(testRasterRef)
	if err != nil {
		return nil, err
	}
	return compare.Compare(current, prior, h.Opts)
}

// RunComparison executes one comparison run for target. Every exit path,
// including early failures, records exactly one history entry and publishes
// one report, so gaps in monitoring stay visible in the trend record. The
// returned report's Failing flag drives the process exit contract.
func (s *MonitorService) RunComparison(ctx context.Context, target models.Target) (*models.RunReport, error) {
	started := s.now()
	key := target.Key

	s.notify(ctx, observer.RunEvent{
		EventType: observer.RunStarted,
		Timestamp: started,
		Key:       key,
	})

	// Until proven otherwise the run is an error with no primary diff.
	entry := models.HistoryEntry{
		Timestamp:      started,
		Key:            key,
		PrimaryDiffPct: models.PrimaryDiffNotComputed,
		Status:         models.StatusError,
	}
	rpt := models.RunReport{
		Key:            key,
		Timestamp:      started,
		Status:         models.StatusError,
		PrimaryDiffPct: models.PrimaryDiffNotComputed,
	}

	fail := func(err error) (*models.RunReport, error) {
		entry.Error = err.Error()
		rpt.Error = err.Error()
		s.finalize(ctx, &entry, &rpt, started)
		return &rpt, err
	}

	// Capture. Fails fast: no comparison is attempted without a raster.
	img, err := s.captures.Capture(ctx, target)
	if err != nil {
		return fail(err)
	}

	testBounds := img.Bounds()
	entry.TestWidth, entry.TestHeight = testBounds.Dx(), testBounds.Dy()

	// Persist the test raster first: the history query contract requires the
	// referenced file to exist for the entry to count as a successful run.
	testRef := filepath.Join(s.outputDir, "captures",
		fmt.Sprintf("%s.%s.png", key, started.UTC().Format(artifactTimeLayout)))
	if err := artifact.Save(testRef, img); err != nil {
		return fail(err)
	}
	entry.TestRasterRef = testRef
	rpt.TestRef = testRef

	// Baseline. Missing is fatal: a comparison run never creates one.
	base, err := s.baselines.Current(key)
	if err != nil {
		return fail(err)
	}
	entry.BaselineModTime = base.ModTime
	entry.BaselineWidth, entry.BaselineHeight = base.Width, base.Height
	rpt.BaselineRef = base.Path

	// Primary comparison on a padded common canvas.
	primary, err := compare.Compare(img, base.Raster, s.diffOpts)
	if err != nil {
		return fail(err)
	}
	entry.PrimaryDiffPct = primary.Percentage
	rpt.PrimaryDiffPct = primary.Percentage
	rpt.DimensionsDiffer = primary.DimensionsDiffered

	if primary.Diff != nil {
		diffRef := filepath.Join(s.outputDir, "diffs",
			fmt.Sprintf("%s.%s.png", key, started.UTC().Format(artifactTimeLayout)))
		if err := artifact.Save(diffRef, primary.Diff); err != nil {
			// The diff raster is a debugging aid; losing it does not change
			// the classification.
			logger.WithTarget(key.Component, key.Viewport).WithError(err).
				Warn("Failed to persist diff raster")
		} else {
			rpt.DiffRef = diffRef
		}
	}

	// Two-stage classification; may trigger a secondary normalize+diff pass
	// against the most recent successful capture.
	outcome := s.classifier.Classify(ctx, key, img, primary.Percentage)
	entry.Status = outcome.Status
	entry.SecondaryDiffPct = outcome.SecondaryDiffPct
	rpt.Status = outcome.Status
	rpt.SecondaryDiffPct = outcome.SecondaryDiffPct
	if outcome.Err != nil {
		entry.Error = outcome.Err.Error()
		rpt.Error = entry.Error
	}

	s.finalize(ctx, &entry, &rpt, started)

	return &rpt, outcome.Err
}

// UpdateBaseline captures the target and installs the result as its current
// baseline, archiving any prior one. Update and comparison are mutually
// exclusive: no history entry is recorded for an update.
func (s *MonitorService) UpdateBaseline(ctx context.Context, target models.Target) (*baseline.Image, error) {
	img, err := s.captures.Capture(ctx, target)
	if err != nil {
		return nil, err
	}

	installed, err := s.baselines.Update(ctx, target.Key, img)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, observer.RunEvent{
		EventType: observer.BaselineUpdated,
		Timestamp: s.now(),
		Key:       target.Key,
	})
	return installed, nil
}

// History exposes the ledger for query surfaces.
func (s *MonitorService) History() *history.Log {
	return s.history
}

// finalize appends the single history entry for this run and fans the report
// out to the sinks. Sink and ledger failures are logged but never override
// the run's classification.
func (s *MonitorService) finalize(ctx context.Context, entry *models.HistoryEntry, rpt *models.RunReport, started time.Time) {
	rpt.Failing = rpt.Status.Failing()
	rpt.DurationMS = s.now().Sub(started).Milliseconds()

	if s.fileSink != nil {
		entry.ReportRef = s.fileSink.ReportPath(*rpt)
	}

	if err := s.history.Append(*entry); err != nil {
		logger.WithError(err).Error("Failed to append history entry")
	}

	for _, sink := range s.sinks {
		if err := sink.Publish(ctx, *rpt); err != nil {
			logger.WithError(err).Error("Failed to publish run report")
		}
	}

	eventType := observer.RunCompleted
	if rpt.Status == models.StatusError {
		eventType = observer.RunFailed
	}
	s.notify(ctx, observer.RunEvent{
		EventType: eventType,
		Timestamp: s.now(),
		Key:       entry.Key,
		Status:    rpt.Status,
		Duration:  time.Duration(rpt.DurationMS) * time.Millisecond,
		Error:     rpt.Error,
	})
}

func (s *MonitorService) notify(ctx context.Context, event observer.RunEvent) {
	if s.events != nil {
		s.events.NotifyObservers(ctx, event)
	}
}
