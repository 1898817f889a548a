package retrieval

import "github.com/prometheus/client_golang/prometheus"

// metricsRegistry collects every Prometheus metric this package exposes —
// the C13 cache counters and the C14 per-stage latency histogram — so
// internal/transport can serve them all from one /metrics route instead of
// relying on the default global registry.
var metricsRegistry = prometheus.NewRegistry()

// MetricsRegistry returns the registry transport.NewHTTPTransport wires
// into promhttp for its /metrics route.
func MetricsRegistry() *prometheus.Registry {
	return metricsRegistry
}

// stageDurationSeconds is the C14 per-stage histogram: every stageTiming
// call, on every Retrieve (benchmark or live), observes here, so a running
// server gets the same per-stage latency visibility Benchmark reports for
// an offline query set.
var stageDurationSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "retrieval_stage_duration_seconds",
		Help:    "Duration of each retrieval pipeline stage.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"stage"},
)

func init() {
	metricsRegistry.MustRegister(
		cacheHitsTotal,
		cacheMissesTotal,
		cacheEvictionsTotal,
		cacheInvalidationsTotal,
		stageDurationSeconds,
	)
}
