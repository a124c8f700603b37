package history

import (
	"gonum.org/v1/gonum/stat"

	"chronoview/pkg/models"
)

// TrendStats summarizes recent primary diff percentages for one target.
// Operators use it to tune the noise threshold against observed rendering
// jitter.
type TrendStats struct {
	Key     models.TargetKey `json:"key"`
	Samples int              `json:"samples"`
	Mean    float64          `json:"mean"`
	StdDev  float64          `json:"std_dev"`
	Max     float64          `json:"max"`
}

// Stats computes trend statistics over the most recent window of runs for
// key that produced a primary diff percentage. Returns false when no such
// runs exist.
func (l *Log) Stats(key models.TargetKey, window int) (*TrendStats, bool) {
	if window <= 0 {
		window = l.maxEntries
	}

	var samples []float64
	for _, entry := range l.entries {
		if entry.Key != key || entry.PrimaryDiffPct < 0 {
			continue
		}
		samples = append(samples, entry.PrimaryDiffPct)
	}
	if len(samples) == 0 {
		return nil, false
	}
	if len(samples) > window {
		samples = samples[len(samples)-window:]
	}

	stats := &TrendStats{
		Key:     key,
		Samples: len(samples),
		Mean:    stat.Mean(samples, nil),
	}
	if len(samples) > 1 {
		stats.StdDev = stat.StdDev(samples, nil)
	}
	for _, s := range samples {
		if s > stats.Max {
			stats.Max = s
		}
	}
	return stats, true
}
