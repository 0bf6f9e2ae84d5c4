package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformbuilds/datadog-badges/internal/badge"
	"github.com/platformbuilds/datadog-badges/internal/config"
	"github.com/platformbuilds/datadog-badges/internal/services"
	"github.com/platformbuilds/datadog-badges/internal/tracing"
	"github.com/platformbuilds/datadog-badges/pkg/cache"
	"github.com/platformbuilds/datadog-badges/pkg/logger"
)

const upstreamMonitor = `{
  "name": "api latency",
  "options": {"silenced": {}},
  "overall_state": "Alert",
  "overall_state_modified": "2024-01-01T00:00:00Z",
  "state": {"groups": {
    "env:prod,host:a": {"status": "Alert", "last_triggered_ts": 1704067200},
    "env:staging,host:b": {"status": "OK", "last_resolved_ts": 1704067200}
  }}
}`

type testEnv struct {
	server   *Server
	upstream *httptest.Server
	calls    *int32
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var calls int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Header.Get("DD-API-KEY") != "k" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(upstreamMonitor))
	}))
	t.Cleanup(upstream.Close)

	cfg := &config.Config{
		Environment: "test",
		Host:        "127.0.0.1",
		Port:        8080,
		ContextRoot: "/",
		LogLevel:    "error",
		Cache:       config.CacheConfig{Backend: "memory", TTL: 15},
		Datadog:     config.DatadogConfig{BaseURL: upstream.URL, Timeout: time.Second},
		Accounts: map[string]config.AccountConfig{
			"acme": {APIKey: "k", AppKey: "a"},
			"bad":  {APIKey: "wrong", AppKey: "a"},
		},
		Monitoring: config.MonitoringConfig{Enabled: true, MetricsPath: "/metrics"},
	}
	if mutate != nil {
		mutate(cfg)
	}

	log := logger.NewNop()
	c := cache.NewMemoryCache(cfg.CacheTTL(), log, cache.WithoutSweeper())
	t.Cleanup(func() { _ = c.Close() })
	tracer := tracing.NewBadgeTracer()
	dd := services.NewDatadogService(cfg.Datadog, tracer, log)
	badges := services.NewBadgeService(c, config.NewCredentialStore(cfg.Accounts), dd, tracer, log, cfg.AlwaysOK)
	renderer, err := badge.NewRenderer()
	require.NoError(t, err)

	return &testEnv{
		server:   NewServer(cfg, log, badges, renderer, "test"),
		upstream: upstream,
		calls:    &calls,
	}
}

func (e *testEnv) get(path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestServer_BadgeEndToEnd(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.get("/accounts/acme/monitors/1?g&q=env:staging")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), ">Ok<")
	assert.Contains(t, w.Body.String(), badge.ColorSuccess)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = env.get("/accounts/acme/monitors/1?g")
	assert.Contains(t, w.Body.String(), ">Alert<")
	assert.Equal(t, int32(2), atomic.LoadInt32(env.calls))

	// polling parameter shares the cached entry
	w = env.get("/accounts/acme/monitors/1?g&badge-poll=123")
	assert.Contains(t, w.Body.String(), ">Alert<")
	assert.Equal(t, int32(2), atomic.LoadInt32(env.calls))
}

func TestServer_Failures(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.get("/accounts/nobody/monitors/1")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "Unconfigured account: nobody")

	w = env.get("/accounts/bad/monitors/1")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), ">403<")
}

func TestServer_AlwaysOK(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.AlwaysOK = true })

	w := env.get("/accounts/nobody/monitors/1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Unconfigured account: nobody")

	w = env.get("/accounts/bad/monitors/1")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_ContextRoot(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.ContextRoot = "/badges/" })

	assert.Equal(t, http.StatusOK, env.get("/badges/accounts/acme/monitors/1").Code)

	w := env.get("/accounts/acme/monitors/1")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "text/html; charset=UTF-8", w.Header().Get("Content-Type"))
}

func TestServer_BareContextRootFlag(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("context-root", "/", "")
	require.NoError(t, flags.Parse([]string{"--context-root", "badges"}))
	loaded, err := config.Load("", flags)
	require.NoError(t, err)

	env := newTestEnv(t, func(c *config.Config) { c.ContextRoot = loaded.ContextRoot })

	w := env.get("/badges/accounts/acme/monitors/1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))
	assert.Equal(t, http.StatusNotFound, env.get("/accounts/acme/monitors/1").Code)
}

func TestServer_OpsEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	assert.Equal(t, http.StatusOK, env.get("/health").Code)
	assert.Equal(t, http.StatusOK, env.get("/ready").Code)

	w := env.get("/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "datadog_badges_build_info")

	disabled := newTestEnv(t, func(c *config.Config) { c.Monitoring.Enabled = false })
	assert.Equal(t, http.StatusNotFound, disabled.get("/metrics").Code)
}

func TestContextRoot(t *testing.T) {
	assert.Equal(t, "/", ContextRoot(""))
	assert.Equal(t, "/", ContextRoot("/"))
	assert.Equal(t, "/badges", ContextRoot("badges"))
	assert.Equal(t, "/badges", ContextRoot("/badges/"))
	assert.Equal(t, "/a/b", ContextRoot("/a//b"))
}

func TestServer_StartAndShutdown(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Port = freePort(t) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.server.Start(ctx) }()

	addr := "http://" + env.server.config.Addr() + "/health"
	require.Eventually(t, func() bool {
		resp, err := http.Get(addr)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
