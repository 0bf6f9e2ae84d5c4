package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/datadog-badges/pkg/logger"
)

// HealthChecker reports dependency health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type HealthHandler struct {
	cache   HealthChecker
	version string
	logger  logger.Logger
}

func NewHealthHandler(cache HealthChecker, version string, logger logger.Logger) *HealthHandler {
	return &HealthHandler{
		cache:   cache,
		version: version,
		logger:  logger,
	}
}

// GET /health - liveness
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "datadog-badges",
		"version":   h.version,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// GET /ready - readiness depends only on the badge cache
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	httpStatus := http.StatusOK
	cacheStatus := "up"
	if err := h.cache.HealthCheck(ctx); err != nil {
		h.logger.Warn("Readiness check failed", "component", "cache", "error", err)
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
		cacheStatus = "down"
	}

	c.JSON(httpStatus, gin.H{
		"status":    status,
		"service":   "datadog-badges",
		"version":   h.version,
		"timestamp": time.Now().Format(time.RFC3339),
		"dependencies": gin.H{
			"cache": cacheStatus,
		},
	})
}
