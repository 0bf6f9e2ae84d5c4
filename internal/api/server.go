package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/datadog-badges/internal/api/handlers"
	"github.com/platformbuilds/datadog-badges/internal/api/middleware"
	"github.com/platformbuilds/datadog-badges/internal/badge"
	"github.com/platformbuilds/datadog-badges/internal/config"
	"github.com/platformbuilds/datadog-badges/internal/monitoring"
	"github.com/platformbuilds/datadog-badges/internal/services"
	"github.com/platformbuilds/datadog-badges/pkg/logger"
)

type Server struct {
	config     *config.Config
	logger     logger.Logger
	badges     *services.BadgeService
	renderer   *badge.Renderer
	version    string
	router     *gin.Engine
	httpServer *http.Server
}

func NewServer(
	cfg *config.Config,
	log logger.Logger,
	badges *services.BadgeService,
	renderer *badge.Renderer,
	version string,
) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	server := &Server{
		config:   cfg,
		logger:   log,
		badges:   badges,
		renderer: renderer,
		version:  version,
		router:   router,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.RequestLogger(s.logger))
	s.router.Use(middleware.ErrorReporter(s.logger))
	s.router.Use(middleware.MetricsMiddleware())

	if s.config.Monitoring.Enabled {
		monitoring.SetupPrometheusMetrics(s.router, s.config.Monitoring.MetricsPath, s.version)
	}
}

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.badges, s.version, s.logger)
	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/ready", healthHandler.ReadinessCheck)

	badgeHandler := handlers.NewBadgeHandler(s.badges, s.renderer, s.config.CacheTTL(), s.logger)
	root := s.router.Group(ContextRoot(s.config.ContextRoot))
	root.GET("/accounts/:account/monitors/:id", badgeHandler.GetMonitorBadge)

	s.router.NoRoute(handlers.NotFound)
}

// ContextRoot normalizes a configured context root to "/" or "/a/b".
func ContextRoot(root string) string {
	return config.NormalizeContextRoot(root)
}

func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// must outlast the upstream timeout
		WriteTimeout: s.config.Datadog.Timeout + 20*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Listening for connections",
			"addr", s.config.Addr(),
			"context_root", ContextRoot(s.config.ContextRoot),
			"always_ok", s.config.AlwaysOK)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		s.logger.Info("Shutting down datadog-badges gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(shutdownCtx)
}

// Handler returns the underlying Gin engine so tests (or embedders) can mount it.
func (s *Server) Handler() http.Handler {
	return s.router
}
