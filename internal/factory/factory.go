package factory

import (
	"fmt"

	"chronoview/internal/capture"
	"chronoview/internal/config"
	"chronoview/internal/report"
	"chronoview/internal/storage"
)

// AdapterType represents the configured capture backend
type AdapterType string

const (
	// HTTPAdapter fetches rendered screenshots from a capture service
	HTTPAdapter AdapterType = "http"
	// DirectoryAdapter reads captures dropped into a local directory
	DirectoryAdapter AdapterType = "directory"
)

// NewCaptureAdapter creates the capture adapter selected by configuration.
func NewCaptureAdapter(cfg *config.Config) (capture.Adapter, error) {
	switch AdapterType(cfg.CaptureAdapter) {
	case HTTPAdapter:
		return capture.NewHTTPAdapter(cfg.CaptureTimeout), nil
	case DirectoryAdapter:
		return capture.NewDirectoryAdapter(cfg.CaptureDir), nil
	default:
		return nil, fmt.Errorf("unsupported capture adapter: %s", cfg.CaptureAdapter)
	}
}

// NewArchiver creates the off-host artifact archiver when configured;
// returns nil (archival disabled) otherwise.
func NewArchiver(cfg *config.Config) (storage.ArtifactArchiver, error) {
	if !cfg.ArchivalEnabled() {
		return nil, nil
	}
	return storage.NewAzureArchiver(cfg.AzureAccountName, cfg.AzureAccountKey, cfg.AzureContainer)
}

// NewSinks creates the report sink fan-out: every deployment logs reports,
// and a file sink persists one JSON artifact per run under the output
// directory.
func NewSinks(fileSink *report.FileSink) []report.Sink {
	return []report.Sink{report.NewLogSink(), fileSink}
}
