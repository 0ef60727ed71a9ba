package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kjstillabower/release-health-service/internal/overload"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases, SLO breaches.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation, capacity limits.
	HTTPRequestsInFlight prometheus.Gauge

	// Upstream telemetry API call rate per source. Watch for: error vs success ratio.
	UpstreamCallsTotal *prometheus.CounterVec

	// Upstream API latency per call. Watch for: p95 > 2s (upstream degradation), p99 > 5s (timeout risk).
	UpstreamCallDuration *prometheus.HistogramVec

	// Upstream errors by category per source. Watch for: auth failures vs 5xx bursts.
	UpstreamErrorsTotal *prometheus.CounterVec

	// Snapshot builds by result. Watch for: invalid_params rate (bad callers), build volume.
	SnapshotBuildsTotal *prometheus.CounterVec

	// Classified status level per metric kind (0 normal, 1 warning, 2 critical).
	MetricStatusLevel *prometheus.GaugeVec

	// Snapshot cache hits. Watch for: hit rate vs snapshotBuildsTotal.
	CacheHitsTotal prometheus.Counter

	// Snapshot cache errors by operation (get, set).
	CacheErrorsTotal *prometheus.CounterVec

	// Cache warming runs, failures, and duration.
	CacheWarmingTotal           prometheus.Counter
	CacheWarmingErrorsTotal     prometheus.Counter
	CacheWarmingDurationSeconds prometheus.Histogram

	// Rate limit denials. Watch for: overload, capacity exceeded.
	RateLimitDeniedTotal prometheus.Counter

	// In-flight requests remaining at shutdown.
	ShutdownInFlightRequests prometheus.Gauge

	rateLimitGaugesOnce sync.Once
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	UpstreamCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstreamCallsTotal",
			Help: "Total upstream telemetry API calls by source and status",
		},
		[]string{"source", "status"},
	)
	UpstreamCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstreamCallDurationSeconds",
			Help:    "Upstream telemetry API latency in seconds (per call)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source", "status"},
	)
	UpstreamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstreamErrorsTotal",
			Help: "Upstream telemetry API errors by source and category",
		},
		[]string{"source", "category"},
	)
	SnapshotBuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshotBuildsTotal",
			Help: "Dashboard snapshot builds by result",
		},
		[]string{"result"},
	)
	MetricStatusLevel = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "metricStatusLevel",
			Help: "Classified status level per metric kind (0 normal, 1 warning, 2 critical)",
		},
		[]string{"kind"},
	)
	CacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheHitsTotal",
			Help: "Snapshot cache hits",
		},
	)
	CacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheErrorsTotal",
			Help: "Snapshot cache errors by operation",
		},
		[]string{"operation"},
	)
	CacheWarmingTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingTotal",
			Help: "Snapshot cache warming runs",
		},
	)
	CacheWarmingErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingErrorsTotal",
			Help: "Snapshot cache warming runs that failed",
		},
	)
	CacheWarmingDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cacheWarmingDurationSeconds",
			Help:    "Snapshot cache warming duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Requests denied by the rate limiter",
		},
	)
	ShutdownInFlightRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "shutdownInFlightRequests",
			Help: "In-flight requests remaining when graceful shutdown began",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		HTTPRequestsInFlight,
		UpstreamCallsTotal,
		UpstreamCallDuration,
		UpstreamErrorsTotal,
		SnapshotBuildsTotal,
		MetricStatusLevel,
		CacheHitsTotal,
		CacheErrorsTotal,
		CacheWarmingTotal,
		CacheWarmingErrorsTotal,
		CacheWarmingDurationSeconds,
		RateLimitDeniedTotal,
		ShutdownInFlightRequests,
	)
}

// RegisterRateLimitGauges registers gauges that expose the sliding-window
// request and denial counts used by the overload health check.
func RegisterRateLimitGauges(window time.Duration) {
	rateLimitGaugesOnce.Do(func() {
		registry.MustRegister(
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "rateLimitRequestsInWindow",
					Help: "Requests observed within the overload window",
				},
				func() float64 { return float64(overload.RequestCount(window)) },
			),
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "rateLimitRejectsInWindow",
					Help: "Rate-limit denials within the overload window",
				},
				func() float64 { return float64(overload.DenialCount(window)) },
			),
		)
	})
}

// RecordMetricLevel sets the status level gauge for a metric kind.
func RecordMetricLevel(kind, level string) {
	MetricStatusLevel.WithLabelValues(kind).Set(levelValue(level))
}

func levelValue(level string) float64 {
	switch level {
	case "warning":
		return 1
	case "critical":
		return 2
	default:
		return 0
	}
}

// RecordShutdownInFlight records how many requests were still in flight when
// graceful shutdown began.
func RecordShutdownInFlight(count int64) {
	ShutdownInFlightRequests.Set(float64(count))
}

// MetricsHandler returns the /metrics handler backed by the service registry.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
