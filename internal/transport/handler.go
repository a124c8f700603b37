package transport

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"chronoview/internal/config"
	apperrors "chronoview/internal/errors"
	"chronoview/internal/logger"
	"chronoview/internal/observer"
	"chronoview/internal/service"
	"chronoview/pkg/models"
	"chronoview/pkg/validation"
)

// TargetRequest selects one monitored target by key.
type TargetRequest struct {
	Component string `json:"component" binding:"required"`
	Viewport  string `json:"viewport" binding:"required"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// NewHandler builds the monitoring API over the run orchestrator.
func NewHandler(monitor *service.MonitorService, metrics *observer.MetricsObserver, targets []models.Target, cfg *config.Config) http.Handler {
	r := gin.Default()

	roster := make(map[models.TargetKey]models.Target, len(targets))
	for _, t := range targets {
		roster[t.Key] = t
	}

	r.GET("/health", healthCheck)
	r.POST("/runs", runComparison(monitor, roster, cfg))
	r.POST("/baselines", updateBaseline(monitor, roster, cfg))
	r.GET("/history", listHistory(monitor))
	r.GET("/history/stats", historyStats(monitor))
	r.GET("/metrics", runMetrics(metrics))

	return r
}

// runComparison triggers one comparison run for a rostered target. The run's
// classification, including SIGNIFICANT and ERROR, is data rather than a
// transport failure, so completed runs always return 200 with the report.
func runComparison(monitor *service.MonitorService, roster map[models.TargetKey]models.Target, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		target, ok := bindTarget(c, roster)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		logger.WithFields(logrus.Fields{
			"component": target.Key.Component,
			"viewport":  target.Key.Viewport,
			"ip":        c.ClientIP(),
		}).Info("Processing comparison run request")

		rpt, err := monitor.RunComparison(ctx, target)
		if rpt == nil {
			respondError(c, apperrors.GetStatusCode(err), "run failed before producing a report", err)
			return
		}
		c.JSON(http.StatusOK, rpt)
	}
}

// updateBaseline captures the target and installs the result as its current
// baseline. This is the only way a baseline comes into existence.
func updateBaseline(monitor *service.MonitorService, roster map[models.TargetKey]models.Target, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		target, ok := bindTarget(c, roster)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		installed, err := monitor.UpdateBaseline(ctx, target)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "failed to update baseline", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"component": target.Key.Component,
			"viewport":  target.Key.Viewport,
			"path":      installed.Path,
			"width":     installed.Width,
			"height":    installed.Height,
			"mod_time":  installed.ModTime.UTC().Format(time.RFC3339),
		})
	}
}

func listHistory(monitor *service.MonitorService) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, ok := queryKey(c)
		var entries []models.HistoryEntry
		if ok {
			entries = monitor.History().EntriesFor(key)
		} else {
			entries = monitor.History().Entries()
		}

		if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 && limit < len(entries) {
			entries = entries[len(entries)-limit:]
		}

		c.JSON(http.StatusOK, gin.H{
			"count":   len(entries),
			"entries": entries,
		})
	}
}

func historyStats(monitor *service.MonitorService) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, ok := queryKey(c)
		if !ok {
			respondError(c, http.StatusBadRequest, "component and viewport query parameters are required", nil)
			return
		}

		window, _ := strconv.Atoi(c.Query("window"))
		stats, ok := monitor.History().Stats(key, window)
		if !ok {
			respondError(c, http.StatusNotFound,
				fmt.Sprintf("no comparison runs recorded for %s", key), nil)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

func runMetrics(metrics *observer.MetricsObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, metrics.GetMetrics())
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// bindTarget parses the request body and resolves it against the roster.
func bindTarget(c *gin.Context, roster map[models.TargetKey]models.Target) (models.Target, bool) {
	var req TargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request format", err)
		return models.Target{}, false
	}

	key := models.TargetKey{Component: req.Component, Viewport: req.Viewport}
	if err := validation.ValidateTargetKey(key); err != nil {
		respondError(c, apperrors.GetStatusCode(err), "invalid target key", err)
		return models.Target{}, false
	}

	target, ok := roster[key]
	if !ok {
		respondError(c, http.StatusNotFound,
			fmt.Sprintf("target %s is not in the monitored roster", key), nil)
		return models.Target{}, false
	}
	return target, true
}

func queryKey(c *gin.Context) (models.TargetKey, bool) {
	component := c.Query("component")
	viewport := c.Query("viewport")
	if component == "" || viewport == "" {
		return models.TargetKey{}, false
	}
	return models.TargetKey{Component: component, Viewport: viewport}, true
}

func respondError(c *gin.Context, code int, message string, err error) {
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}
