package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for budgetlens.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	computeDuration *prometheus.HistogramVec
	dispatched      *prometheus.CounterVec
	queueDepth      prometheus.Gauge
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
}

// EngineSnapshot is a compact read-back of engine counters for the
// GET /v1/metrics/engine endpoint.
type EngineSnapshot struct {
	Dispatched   int64   `json:"dispatched"`
	Failed       int64   `json:"failed"`
	ErrorRate    float64 `json:"errorRate"`
	CacheHitRate float64 `json:"cacheHitRate"`
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		computeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "budgetlens_compute_duration_seconds",
				Help:    "Duration of engine computations by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		dispatched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budgetlens_dispatched_total",
				Help: "Total analytics requests processed by the dispatcher.",
			},
			[]string{"status"},
		),
		queueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "budgetlens_dispatch_queue_depth",
				Help: "Requests currently waiting in the dispatch queue.",
			},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budgetlens_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budgetlens_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budgetlens_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
	}
}

// RecordComputeDuration records the duration of an engine operation.
func (m *Metrics) RecordComputeDuration(operation string, d time.Duration) {
	m.computeDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrDispatched increments the dispatcher counter with a status label.
func (m *Metrics) IncrDispatched(status string) {
	m.dispatched.WithLabelValues(status).Inc()
}

// SetQueueDepth records the current dispatch queue depth.
func (m *Metrics) SetQueueDepth(n int) {
	m.queueDepth.Set(float64(n))
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// GetEngineSnapshot gathers current counter values.
// Note: Prometheus counters expose cumulative values.
func (m *Metrics) GetEngineSnapshot() *EngineSnapshot {
	done := getCounterValue(m.dispatched, "done")
	failed := getCounterValue(m.dispatched, "failed")
	hits := getCounterValue(m.cacheHits, "results")
	misses := getCounterValue(m.cacheMisses, "results")

	total := done + failed
	errorRate := float64(0)
	if total > 0 {
		errorRate = failed / total
	}
	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &EngineSnapshot{
		Dispatched:   int64(total),
		Failed:       int64(failed),
		ErrorRate:    errorRate,
		CacheHitRate: hitRate,
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
