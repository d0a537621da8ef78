// internal/handler/health_handler.go
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"escpos-bridge/internal/config"
	"escpos-bridge/internal/utils"
)

// DatabaseChecker reports journal database health
type DatabaseChecker interface {
	Health(ctx context.Context) error
}

// BusStatus reports the message bus connection
type BusStatus interface {
	Kind() string
	Connected() bool
}

// PrinterCounter counts registry entries
type PrinterCounter interface {
	Count() int
}

// HealthHandler handles health check requests
type HealthHandler struct {
	db        DatabaseChecker
	bus       BusStatus
	printers  PrinterCounter
	config    *config.Config
	startTime time.Time
	logger    *utils.ServiceLogger
}

// NewHealthHandler creates a new health handler. db and bus are nil when
// not configured.
func NewHealthHandler(db DatabaseChecker, bus BusStatus, printers PrinterCounter, config *config.Config, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:        db,
		bus:       bus,
		printers:  printers,
		config:    config,
		startTime: time.Now(),
		logger:    utils.NewServiceLogger(logger, "health-handler"),
	}
}

// HealthCheck performs general health check
// @Summary Health check
// @Description Get overall service health including bus and journal database
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse "Service is healthy"
// @Failure 503 {object} HealthResponse "Service is unhealthy"
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	health := &HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Service:   h.config.App.Name,
		Version:   h.config.App.Version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Checks:    make(map[string]CheckResult),
	}

	if h.bus != nil {
		if h.bus.Connected() {
			health.Checks["bus"] = CheckResult{Status: "healthy", Message: h.bus.Kind() + " connected"}
		} else {
			health.Status = "unhealthy"
			health.Checks["bus"] = CheckResult{Status: "unhealthy", Message: h.bus.Kind() + " disconnected"}
		}
	} else {
		health.Checks["bus"] = CheckResult{Status: "disabled", Message: "No bus configured"}
	}

	if h.db != nil {
		if err := h.db.Health(c.Request.Context()); err != nil {
			health.Status = "unhealthy"
			health.Checks["database"] = CheckResult{Status: "unhealthy", Message: err.Error()}
		} else {
			health.Checks["database"] = CheckResult{Status: "healthy", Message: "Database connection OK"}
		}
	}

	if h.printers != nil {
		health.Checks["printers"] = CheckResult{
			Status: "healthy",
			Data:   map[string]interface{}{"count": h.printers.Count()},
		}
	}

	statusCode := http.StatusOK
	if health.Status == "unhealthy" {
		h.logger.Warn("Health check failed", zap.Any("checks", health.Checks))
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, health)
}

// ReadinessCheck for Kubernetes readiness probe
// @Summary Readiness check
// @Description Ready once the bus is connected and the journal database answers
// @Tags Health
// @Produce json
// @Success 200 {object} object{status=string,timestamp=string} "Service is ready"
// @Failure 503 {object} object{status=string,reason=string} "Service is not ready"
// @Router /ready [get]
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	if h.bus != nil && !h.bus.Connected() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "bus not connected",
		})
		return
	}

	if h.db != nil {
		if err := h.db.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"reason": "database not available",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now(),
	})
}

// LivenessCheck for Kubernetes liveness probe
// @Summary Liveness check
// @Description Check if service is alive
// @Tags Health
// @Produce json
// @Success 200 {object} object{status=string,timestamp=string} "Service is alive"
// @Router /live [get]
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now(),
	})
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]CheckResult `json:"checks"`
}

// CheckResult represents individual check result
type CheckResult struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}
