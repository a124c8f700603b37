package models

import (
	"fmt"
	"time"
)

// Status is the terminal classification of one monitoring run.
type Status string

const (
	// StatusUnknown is the pre-classification state; it never appears in a
	// completed history entry.
	StatusUnknown Status = "UNKNOWN"
	// StatusMatch means the capture stayed within the noise threshold of the baseline.
	StatusMatch Status = "MATCH"
	// StatusNoise means the capture drifted from the baseline but closely matches
	// the most recent successful capture (gradual rendering drift).
	StatusNoise Status = "NOISE"
	// StatusSignificant means the capture differs materially from both the
	// baseline and the most recent observation.
	StatusSignificant Status = "SIGNIFICANT"
	// StatusError means the run failed before a classification could be made.
	StatusError Status = "ERROR"
)

// Failing reports whether the status must surface as a failing process
// outcome. MATCH and NOISE are informational successes.
func (s Status) Failing() bool {
	return s == StatusSignificant || s == StatusError
}

// TargetKey identifies one monitored visual surface. Keys are opaque strings;
// equality is exact.
type TargetKey struct {
	Component string `json:"component"`
	Viewport  string `json:"viewport"`
}

// String renders the key in its canonical artifact-name form.
func (k TargetKey) String() string {
	return fmt.Sprintf("%s__%s", k.Component, k.Viewport)
}

// Target binds a key to the capture endpoint that produces its screenshots.
type Target struct {
	Key        TargetKey `json:"key"`
	CaptureURL string    `json:"capture_url,omitempty"`
}

// PrimaryDiffNotComputed is the sentinel recorded when a run failed before
// the primary comparison produced a percentage.
const PrimaryDiffNotComputed = -1.0

// HistoryEntry is one immutable record of a monitoring run. Entries are only
// ever appended to the history log and evicted by bounded retention.
type HistoryEntry struct {
	Timestamp       time.Time `json:"timestamp"`
	Key             TargetKey `json:"key"`
	BaselineModTime time.Time `json:"baseline_mod_time,omitempty"`

	TestWidth      int `json:"test_width,omitempty"`
	TestHeight     int `json:"test_height,omitempty"`
	BaselineWidth  int `json:"baseline_width,omitempty"`
	BaselineHeight int `json:"baseline_height,omitempty"`

	// PrimaryDiffPct is the mismatch percentage against the baseline, or
	// PrimaryDiffNotComputed when the run failed before comparing.
	PrimaryDiffPct   float64  `json:"primary_diff_pct"`
	SecondaryDiffPct *float64 `json:"secondary_diff_pct,omitempty"`

	Status Status `json:"status"`

	// ReportRef and TestRasterRef point at persisted artifacts; either may be
	// empty when the corresponding artifact was never produced.
	ReportRef     string `json:"report_ref,omitempty"`
	TestRasterRef string `json:"test_raster_ref,omitempty"`

	Error string `json:"error,omitempty"`
}

// RunReport is the structured result handed to report sinks after every run.
type RunReport struct {
	Key              TargetKey `json:"key"`
	Timestamp        time.Time `json:"timestamp"`
	Status           Status    `json:"status"`
	Failing          bool      `json:"failing"`
	PrimaryDiffPct   float64   `json:"primary_diff_pct"`
	SecondaryDiffPct *float64  `json:"secondary_diff_pct,omitempty"`
	DimensionsDiffer bool      `json:"dimensions_differ,omitempty"`

	BaselineRef string `json:"baseline_ref,omitempty"`
	TestRef     string `json:"test_ref,omitempty"`
	DiffRef     string `json:"diff_ref,omitempty"`

	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}
