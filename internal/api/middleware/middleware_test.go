package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformbuilds/datadog-badges/internal/metrics"
	"github.com/platformbuilds/datadog-badges/internal/services"
	"github.com/platformbuilds/datadog-badges/pkg/logger"
)

func newTestRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(RequestIDKey))
	})
	return r
}

func TestRequestID_Generates(t *testing.T) {
	r := newTestRouter(RequestID())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	id := w.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, w.Body.String())
}

func TestRequestID_ReusesInbound(t *testing.T) {
	r := newTestRouter(RequestID())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "bad id\nwith newline")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.NotEqual(t, "bad id\nwith newline", w.Header().Get(RequestIDHeader))
}

func TestRequestLogger_PassesThrough(t *testing.T) {
	r := newTestRouter(RequestID(), RequestLogger(logger.NewNop()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsMiddleware_CountsByRoute(t *testing.T) {
	r := newTestRouter(MetricsMiddleware())

	ping := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/ping", "200")
	unmatched := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, unmatchedEndpoint, "404")
	beforePing := testutil.ToFloat64(ping)
	beforeUnmatched := testutil.ToFloat64(unmatched)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x/1", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x/2", nil))

	assert.Equal(t, beforePing+1, testutil.ToFloat64(ping))
	assert.Equal(t, beforeUnmatched+2, testutil.ToFloat64(unmatched))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.HTTPRequestsInFlight))
	assert.Positive(t, testutil.CollectAndCount(metrics.HTTPResponseSize))
}

type recordingLogger struct {
	mu     sync.Mutex
	levels []string
	fields [][]interface{}
}

func (l *recordingLogger) record(level string, fields []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.levels = append(l.levels, level)
	l.fields = append(l.fields, fields)
}

func (l *recordingLogger) Info(_ string, f ...interface{})  { l.record("info", f) }
func (l *recordingLogger) Error(_ string, f ...interface{}) { l.record("error", f) }
func (l *recordingLogger) Warn(_ string, f ...interface{})  { l.record("warn", f) }
func (l *recordingLogger) Debug(_ string, f ...interface{}) { l.record("debug", f) }
func (l *recordingLogger) Fatal(_ string, f ...interface{}) { l.record("fatal", f) }

func TestErrorReporter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := &recordingLogger{}
	r := gin.New()
	r.Use(RequestID(), ErrorReporter(log))
	r.GET("/malformed", func(c *gin.Context) {
		_ = c.Error(fmt.Errorf("%w: bad json", services.ErrMalformedPayload))
		c.String(http.StatusNotFound, "nope")
	})
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("boom"))
		c.String(http.StatusNotFound, "nope")
	})
	r.GET("/fine", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/malformed", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "nope", w.Body.String())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fine", nil))

	require.Equal(t, []string{"warn", "error"}, log.levels)
	assert.Contains(t, log.fields[0], "malformed_payload")
	assert.Contains(t, log.fields[0], "request_id")
	assert.Contains(t, log.fields[1], "internal")
}

func TestErrorType(t *testing.T) {
	assert.Equal(t, "upstream_unavailable", errorType(fmt.Errorf("%w: dial", services.ErrUpstreamUnavailable)))
	assert.Equal(t, "timeout", errorType(context.DeadlineExceeded))
	assert.Equal(t, "internal", errorType(errors.New("x")))
}
