// Package monitoring provides the Prometheus metrics of the badge service.
//
// Usage:
//
//  1. Expose the endpoint when building the router:
//     monitoring.SetupPrometheusMetrics(router, "/metrics", version)
//
//  2. Record domain metrics where the work happens:
//
//     monitoring.RecordCacheOperation("get", "hit")
//     monitoring.RecordUpstreamRequest("200", time.Since(start))
//     monitoring.RecordBadge("alert", http.StatusOK)
//
// Available Metrics:
//   - datadog_badges_cache_operations_total{operation, result}
//   - datadog_badges_cache_entries
//   - datadog_badges_upstream_requests_total{status}
//   - datadog_badges_upstream_request_duration_seconds
//   - datadog_badges_badges_total{outcome, code}
//   - datadog_badges_errors_total{type, component}
//   - datadog_badges_build_info{version, go_version}
package monitoring

import (
	"runtime"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	cacheOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datadog_badges_cache_operations_total",
			Help: "Total number of badge cache operations",
		},
		[]string{"operation", "result"}, // result: hit, miss, expired, success, error
	)

	cacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "datadog_badges_cache_entries",
			Help: "Number of entries held by the in-memory badge cache",
		},
	)

	upstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datadog_badges_upstream_requests_total",
			Help: "Total number of Datadog API requests by HTTP status (or \"error\")",
		},
		[]string{"status"},
	)

	upstreamRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "datadog_badges_upstream_request_duration_seconds",
			Help:    "Datadog API request duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	badgesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datadog_badges_badges_total",
			Help: "Total number of badges resolved, by outcome and HTTP code",
		},
		[]string{"outcome", "code"}, // outcome: a monitor status, unconfigured, upstream_error, transport_error
	)

	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datadog_badges_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type", "component"},
	)
)

func init() {
	prometheus.MustRegister(
		cacheOperationsTotal,
		cacheEntries,
		upstreamRequestsTotal,
		upstreamRequestDuration,
		badgesTotal,
		errorsTotal,
	)
}

// SetupPrometheusMetrics exposes the default registry on path.
func SetupPrometheusMetrics(router gin.IRoutes, path, version string) {
	// Register build info (ignore if already registered)
	_ = prometheus.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "datadog_badges_build_info",
		Help: "Build information for datadog-badges",
		ConstLabels: prometheus.Labels{
			"version":    version,
			"go_version": runtime.Version(),
		},
	}, func() float64 { return 1 }))

	router.GET(path, gin.WrapH(promhttp.Handler()))
}

func RecordCacheOperation(operation, result string) {
	cacheOperationsTotal.WithLabelValues(operation, result).Inc()
}

func SetCacheEntries(n int) {
	cacheEntries.Set(float64(n))
}

// RecordUpstreamRequest records one Datadog API call. status is the HTTP
// status code, or "error" for transport failures.
func RecordUpstreamRequest(status string, duration time.Duration) {
	upstreamRequestsTotal.WithLabelValues(status).Inc()
	upstreamRequestDuration.Observe(duration.Seconds())
}

func RecordBadge(outcome string, code int) {
	badgesTotal.WithLabelValues(outcome, strconv.Itoa(code)).Inc()
}

func RecordError(errType, component string) {
	errorsTotal.WithLabelValues(errType, component).Inc()
}
