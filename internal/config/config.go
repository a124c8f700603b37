package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Host           string
	Port           string
	RequestTimeout time.Duration

	// Capture
	CaptureAdapter string // "http" or "directory"
	CaptureTimeout time.Duration
	CaptureDir     string

	// Storage layout
	BaselineDir string
	OutputDir   string
	HistoryPath string
	TargetsPath string

	// Classification thresholds
	NoiseThreshold     float64 // primary diff ceiling still considered benign (%)
	SecondaryThreshold float64 // secondary diff ceiling for the drift check (%)
	PixelThreshold     float64 // per-pixel color distance tolerance, [0,1]

	MaxHistoryEntries int

	// Optional off-host archival of superseded baselines and diff artifacts
	AzureAccountName string
	AzureAccountKey  string
	AzureContainer   string
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// ArchivalEnabled reports whether superseded artifacts should also be
// uploaded off-host.
func (c *Config) ArchivalEnabled() bool {
	return c.AzureAccountName != "" && c.AzureAccountKey != "" && c.AzureContainer != ""
}

func LoadFromEnv() (*Config, error) {
	// Set defaults
	cfg := &Config{
		Host:           getEnvOrDefault("HOST", "0.0.0.0"),
		Port:           getEnvOrDefault("PORT", "8080"),
		RequestTimeout: parseDurationOrDefault("REQUEST_TIMEOUT", 60*time.Second),

		CaptureAdapter: getEnvOrDefault("CAPTURE_ADAPTER", "http"),
		CaptureTimeout: parseDurationOrDefault("CAPTURE_TIMEOUT", 30*time.Second),
		CaptureDir:     getEnvOrDefault("CAPTURE_DIR", "captures"),

		BaselineDir: getEnvOrDefault("BASELINE_DIR", "baselines"),
		OutputDir:   getEnvOrDefault("OUTPUT_DIR", "output"),
		HistoryPath: getEnvOrDefault("HISTORY_PATH", "history.json"),
		TargetsPath: getEnvOrDefault("TARGETS_PATH", "targets.toml"),

		NoiseThreshold:     parseFloatOrDefault("NOISE_THRESHOLD", 4.0),
		SecondaryThreshold: parseFloatOrDefault("SECONDARY_THRESHOLD", 1.0),
		PixelThreshold:     parseFloatOrDefault("PIXEL_THRESHOLD", 0.1),

		MaxHistoryEntries: int(parseIntOrDefault("MAX_HISTORY_ENTRIES", 500)),

		AzureAccountName: os.Getenv("AZURE_ACCOUNT_NAME"),
		AzureAccountKey:  os.Getenv("AZURE_ACCOUNT_KEY"),
		AzureContainer:   os.Getenv("AZURE_CONTAINER"),
	}

	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(cfg.Port))
	if err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("invalid PORT: %q", cfg.Port)
	}
	if cfg.CaptureAdapter != "http" && cfg.CaptureAdapter != "directory" {
		return nil, fmt.Errorf("invalid CAPTURE_ADAPTER: %q (want \"http\" or \"directory\")", cfg.CaptureAdapter)
	}
	if cfg.RequestTimeout <= 0 || cfg.CaptureTimeout <= 0 {
		return nil, fmt.Errorf("timeouts must be > 0 (got request=%s, capture=%s)",
			cfg.RequestTimeout, cfg.CaptureTimeout)
	}
	if cfg.NoiseThreshold < 0 || cfg.NoiseThreshold > 100 {
		return nil, fmt.Errorf("NOISE_THRESHOLD must be in [0,100] (got %g)", cfg.NoiseThreshold)
	}
	if cfg.SecondaryThreshold < 0 || cfg.SecondaryThreshold > 100 {
		return nil, fmt.Errorf("SECONDARY_THRESHOLD must be in [0,100] (got %g)", cfg.SecondaryThreshold)
	}
	if cfg.PixelThreshold < 0 || cfg.PixelThreshold > 1 {
		return nil, fmt.Errorf("PIXEL_THRESHOLD must be in [0,1] (got %g)", cfg.PixelThreshold)
	}
	if cfg.MaxHistoryEntries <= 0 {
		return nil, fmt.Errorf("MAX_HISTORY_ENTRIES must be > 0 (got %d)", cfg.MaxHistoryEntries)
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
