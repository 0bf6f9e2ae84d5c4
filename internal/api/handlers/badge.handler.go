package handlers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/datadog-badges/internal/badge"
	"github.com/platformbuilds/datadog-badges/internal/services"
	"github.com/platformbuilds/datadog-badges/pkg/cache"
	"github.com/platformbuilds/datadog-badges/pkg/logger"
)

const svgContentType = "image/svg+xml"

// BadgeResolver produces badge decisions.
type BadgeResolver interface {
	Badge(ctx context.Context, req services.BadgeRequest) (cache.Entry, error)
}

type BadgeHandler struct {
	badges   BadgeResolver
	renderer *badge.Renderer
	maxAge   int
	now      func() time.Time
	logger   logger.Logger
}

// NewBadgeHandler serves badges; maxAge is advertised to HTTP caches and
// matches the badge cache TTL.
func NewBadgeHandler(badges BadgeResolver, renderer *badge.Renderer, maxAge time.Duration, logger logger.Logger) *BadgeHandler {
	return &BadgeHandler{
		badges:   badges,
		renderer: renderer,
		maxAge:   int(maxAge / time.Second),
		now:      time.Now,
		logger:   logger,
	}
}

// GET accounts/:account/monitors/:id
func (h *BadgeHandler) GetMonitorBadge(c *gin.Context) {
	req := services.BadgeRequest{
		Account:   c.Param("account"),
		MonitorID: c.Param("id"),
		Query:     c.Request.URL.Query(),
	}

	e, err := h.badges.Badge(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			h.logger.Debug("Client went away before the badge resolved", "account", req.Account, "monitor_id", req.MonitorID)
			c.Abort()
			return
		}
		// reported by middleware.ErrorReporter
		_ = c.Error(err)
		NotFound(c)
		return
	}

	svg := h.renderer.SVG(e.Options, h.now())
	c.Header("Cache-Control", "public, max-age="+strconv.Itoa(h.maxAge))
	c.Data(e.StatusCode, svgContentType, []byte(svg))
}
