package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/datadog-badges/internal/monitoring"
	"github.com/platformbuilds/datadog-badges/internal/services"
	"github.com/platformbuilds/datadog-badges/pkg/logger"
)

// ErrorReporter logs and counts the errors handlers attach with c.Error.
// Handlers write their own response; this middleware never touches it.
func ErrorReporter(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		for _, e := range c.Errors {
			errType := errorType(e.Err)
			monitoring.RecordError(errType, "api")

			fields := []interface{}{
				"type", errType,
				"status", c.Writer.Status(),
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"client_ip", c.ClientIP(),
				"error", e.Err.Error(),
			}
			if id := c.GetString(RequestIDKey); id != "" {
				fields = append(fields, "request_id", id)
			}

			// a malformed upstream payload is a property of the monitor, not of us
			if errType == "malformed_payload" {
				log.Warn("Request error", fields...)
			} else {
				log.Error("Request error", fields...)
			}
		}
	}
}

func errorType(err error) string {
	switch {
	case errors.Is(err, services.ErrMalformedPayload):
		return "malformed_payload"
	case errors.Is(err, services.ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "internal"
	}
}
