package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"chronoview/pkg/models"
)

// RunEvent describes one lifecycle event of a monitoring run.
type RunEvent struct {
	EventType EventType        `json:"event_type"`
	Timestamp time.Time        `json:"timestamp"`
	Key       models.TargetKey `json:"key"`
	Status    models.Status    `json:"status,omitempty"`
	Duration  time.Duration    `json:"duration,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// EventType represents the type of run event
type EventType string

const (
	// RunStarted when a comparison run begins
	RunStarted EventType = "run_started"
	// RunCompleted when a run reaches a terminal classification
	RunCompleted EventType = "run_completed"
	// RunFailed when a run ends in ERROR
	RunFailed EventType = "run_failed"
	// BaselineUpdated when an operator installs a new baseline
	BaselineUpdated EventType = "baseline_updated"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event RunEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	NotifyObservers(ctx context.Context, event RunEvent)
}

// LoggingObserver logs run events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{logger: logger}
}

// OnEvent handles run events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event RunEvent) {
	fields := logrus.Fields{
		"event_type": event.EventType,
		"component":  event.Key.Component,
		"viewport":   event.Key.Viewport,
	}
	if event.Status != "" {
		fields["status"] = event.Status
	}
	if event.Duration > 0 {
		fields["duration_ms"] = event.Duration.Milliseconds()
	}
	if event.Error != "" {
		fields["error"] = event.Error
	}

	switch event.EventType {
	case RunStarted:
		o.logger.WithFields(fields).Debug("Monitoring run started")
	case RunCompleted:
		o.logger.WithFields(fields).Info("Monitoring run completed")
	case RunFailed:
		o.logger.WithFields(fields).Error("Monitoring run failed")
	case BaselineUpdated:
		o.logger.WithFields(fields).Info("Baseline updated")
	default:
		o.logger.WithFields(fields).Info("Run event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver aggregates run counters per terminal status.
type MetricsObserver struct {
	mu              sync.RWMutex
	totalRuns       int64
	statusCounts    map[models.Status]int64
	baselineUpdates int64
	totalDuration   time.Duration
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{
		statusCounts: make(map[models.Status]int64),
	}
}

// OnEvent handles run events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event RunEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case RunCompleted, RunFailed:
		o.totalRuns++
		o.statusCounts[event.Status]++
		o.totalDuration += event.Duration
	case BaselineUpdated:
		o.baselineUpdates++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current run counters
func (o *MetricsObserver) GetMetrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avgDuration := time.Duration(0)
	if o.totalRuns > 0 {
		avgDuration = o.totalDuration / time.Duration(o.totalRuns)
	}

	counts := make(map[string]int64, len(o.statusCounts))
	for status, n := range o.statusCounts {
		counts[string(status)] = n
	}

	return map[string]interface{}{
		"total_runs":       o.totalRuns,
		"status_counts":    counts,
		"baseline_updates": o.baselineUpdates,
		"avg_duration_ms":  avgDuration.Milliseconds(),
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// NotifyObservers notifies all observers of an event
func (p *EventPublisher) NotifyObservers(ctx context.Context, event RunEvent) {
	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, observer := range observers {
		func(obs Observer) {
			defer func() {
				if r := recover(); r != nil {
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
}
