// Package metrics publishes Prometheus instrumentation for the computation
// core: cache effectiveness, worker pool load, computation latency, and an
// HTTP middleware for the API surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groundtrack_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "groundtrack_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "groundtrack_cache_hits_total",
		Help: "Computation cache hits.",
	})

	cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "groundtrack_cache_misses_total",
		Help: "Computation cache misses.",
	})

	cacheEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "groundtrack_cache_entries",
		Help: "Entries currently held by the computation cache.",
	})

	cacheBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "groundtrack_cache_estimated_bytes",
		Help: "Estimated byte footprint of the computation cache.",
	})

	cacheEvictions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "groundtrack_cache_evictions_total",
		Help: "Entries evicted from the computation cache since start.",
	})

	poolQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "groundtrack_pool_queue_depth",
		Help: "Requests waiting for a free worker unit.",
	})

	poolBusyUnits = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "groundtrack_pool_busy_units",
		Help: "Worker units currently executing a job.",
	})

	computeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "groundtrack_compute_duration_seconds",
			Help:    "End-to-end computation duration per request.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		cacheHits,
		cacheMisses,
		cacheEntries,
		cacheBytes,
		cacheEvictions,
		poolQueueDepth,
		poolBusyUnits,
		computeDuration,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncCacheHits records a computation cache hit.
func IncCacheHits() { cacheHits.Inc() }

// IncCacheMisses records a computation cache miss.
func IncCacheMisses() { cacheMisses.Inc() }

// SetCacheState publishes current cache gauges.
func SetCacheState(entries int, bytes, evictions int64) {
	cacheEntries.Set(float64(entries))
	cacheBytes.Set(float64(bytes))
	cacheEvictions.Set(float64(evictions))
}

// SetPoolState publishes current worker pool gauges.
func SetPoolState(queueDepth, busyUnits int) {
	poolQueueDepth.Set(float64(queueDepth))
	poolBusyUnits.Set(float64(busyUnits))
}

// ObserveComputeDuration records one computation's wall time.
// outcome is "ok", "error", or "cached".
func ObserveComputeDuration(d time.Duration, outcome string) {
	computeDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)

		httpRequestsTotal.WithLabelValues(r.URL.Path, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(r.URL.Path, r.Method).Observe(duration)
	})
}
