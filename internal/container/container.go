package container

import (
	"fmt"
	"net/http"
	"path/filepath"

	"chronoview/internal/baseline"
	"chronoview/internal/classifier"
	"chronoview/internal/compare"
	"chronoview/internal/config"
	"chronoview/internal/factory"
	"chronoview/internal/history"
	"chronoview/internal/logger"
	"chronoview/internal/observer"
	"chronoview/internal/report"
	"chronoview/internal/service"
	"chronoview/internal/transport"
	"chronoview/pkg/models"
	"chronoview/pkg/validation"
)

// Container holds all application dependencies
type Container struct {
	config  *config.Config
	targets []models.Target
	monitor *service.MonitorService
	metrics *observer.MetricsObserver
	handler http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	targets, err := config.LoadTargets(cfg.TargetsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load targets: %w", err)
	}

	urlValidator := validation.NewCaptureURLValidator()
	for _, target := range targets {
		if err := validation.ValidateTargetKey(target.Key); err != nil {
			return nil, fmt.Errorf("invalid target %s: %w", target.Key, err)
		}
		if cfg.CaptureAdapter == string(factory.HTTPAdapter) {
			if err := urlValidator.ValidateCaptureURL(target.CaptureURL); err != nil {
				return nil, fmt.Errorf("invalid capture URL for %s: %w", target.Key, err)
			}
		}
	}

	captureAdapter, err := factory.NewCaptureAdapter(cfg)
	if err != nil {
		return nil, err
	}

	archiver, err := factory.NewArchiver(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize archiver: %w", err)
	}

	baselineStore := baseline.NewStore(cfg.BaselineDir, archiver)

	historyLog, err := history.Open(cfg.HistoryPath, cfg.MaxHistoryEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to open history log: %w", err)
	}

	diffOpts := compare.DefaultOptions()
	diffOpts.Threshold = cfg.PixelThreshold

	cls := classifier.New(
		classifier.Config{
			NoiseThreshold:     cfg.NoiseThreshold,
			SecondaryThreshold: cfg.SecondaryThreshold,
		},
		historyLog,
		&service.HistoryComparer{Opts: diffOpts},
	)

	metrics := observer.NewMetricsObserver()
	events := observer.NewEventPublisher()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(metrics)

	fileSink := report.NewFileSink(filepath.Join(cfg.OutputDir, "reports"))
	sinks := factory.NewSinks(fileSink)

	monitor := service.NewMonitorService(
		captureAdapter,
		baselineStore,
		historyLog,
		cls,
		sinks,
		fileSink,
		events,
		cfg.OutputDir,
		diffOpts,
	)

	handler := transport.NewHandler(monitor, metrics, targets, cfg)

	return &Container{
		config:  cfg,
		targets: targets,
		monitor: monitor,
		metrics: metrics,
		handler: handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Monitor returns the run orchestrator
func (c *Container) Monitor() *service.MonitorService {
	return c.monitor
}

// Targets returns the monitored target roster
func (c *Container) Targets() []models.Target {
	return c.targets
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}
