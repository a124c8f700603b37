package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"chronoview/pkg/models"
)

// targetsFile is the on-disk shape of the monitored-target roster.
type targetsFile struct {
	Targets []targetEntry `toml:"targets"`
}

type targetEntry struct {
	Component  string `toml:"component"`
	Viewport   string `toml:"viewport"`
	CaptureURL string `toml:"capture_url"`
}

// LoadTargets reads the TOML roster of monitored targets.
func LoadTargets(path string) ([]models.Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read targets file: %w", err)
	}

	var file targetsFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse targets file %s: %w", path, err)
	}
	if len(file.Targets) == 0 {
		return nil, fmt.Errorf("targets file %s declares no targets", path)
	}

	seen := make(map[models.TargetKey]bool, len(file.Targets))
	targets := make([]models.Target, 0, len(file.Targets))
	for i, entry := range file.Targets {
		if entry.Component == "" || entry.Viewport == "" {
			return nil, fmt.Errorf("target %d: component and viewport are required", i)
		}
		key := models.TargetKey{Component: entry.Component, Viewport: entry.Viewport}
		if seen[key] {
			return nil, fmt.Errorf("duplicate target %s", key)
		}
		seen[key] = true
		targets = append(targets, models.Target{Key: key, CaptureURL: entry.CaptureURL})
	}
	return targets, nil
}
