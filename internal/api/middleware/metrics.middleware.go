// ================================
// internal/api/middleware/metrics.middleware.go - Request metrics collection
// ================================

package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/datadog-badges/internal/metrics"
)

// unmatched routes share one label so scanners can't blow up cardinality
const unmatchedEndpoint = "unmatched"

// MetricsMiddleware collects HTTP request metrics
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = unmatchedEndpoint
		}

		metrics.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		metrics.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(time.Since(start).Seconds())

		if size := c.Writer.Size(); size >= 0 {
			metrics.HTTPResponseSize.WithLabelValues(endpoint).Observe(float64(size))
		}
	}
}
