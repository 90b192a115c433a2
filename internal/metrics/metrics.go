package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ballisticd_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ballisticd_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	solvesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ballisticd_solves_total",
			Help: "Trajectory solves by outcome.",
		},
		[]string{"outcome"},
	)

	solveDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ballisticd_solve_duration_seconds",
			Help:    "Duration of a single zero-and-integrate solve.",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	batchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ballisticd_batch_size",
			Help:    "Number of requests per batch solve.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 9),
		},
	)

	batchDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ballisticd_batch_duration_seconds",
			Help:    "Wall time of a batch solve across the worker pool.",
			Buckets: prometheus.DefBuckets,
		},
	)

	solverWorkers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ballisticd_solver_workers",
			Help: "Configured size of the solver worker pool.",
		},
	)

	cacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ballisticd_cache_hits_total",
		Help: "Solution cache hits.",
	})

	cacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ballisticd_cache_misses_total",
		Help: "Solution cache misses.",
	})

	cacheEvictionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ballisticd_cache_evictions_total",
		Help: "Solution cache entries evicted.",
	})

	cacheEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ballisticd_cache_entries",
		Help: "Solutions currently cached.",
	})

	cacheSizeBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ballisticd_cache_size_bytes",
		Help: "Estimated memory held by cached solutions.",
	})

	cacheGracePeriod = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ballisticd_cache_grace_period_active",
		Help: "1 while the cache is rebuilding after a catalog change.",
	})

	cacheRegenErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ballisticd_cache_regeneration_errors_total",
		Help: "Profiles that failed to solve during warmup or cutover.",
	})

	cacheRegenDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ballisticd_cache_regeneration_duration_seconds",
		Help:    "Duration of cache warmup and cutover rebuilds.",
		Buckets: prometheus.DefBuckets,
	})

	catalogProfiles = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ballisticd_catalog_profiles",
		Help: "Profiles in the loaded load catalog.",
	})

	catalogAgeSeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ballisticd_catalog_age_seconds",
		Help: "Seconds since the load catalog was fetched.",
	})

	catalogFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ballisticd_catalog_fetches_total",
			Help: "Catalog fetch attempts by result.",
		},
		[]string{"result"},
	)

	streamConnectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ballisticd_stream_connections_total",
			Help: "SSE connection events.",
		},
		[]string{"event"},
	)

	streamsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ballisticd_streams_active",
		Help: "Open SSE streams.",
	})

	streamMessagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ballisticd_stream_messages_total",
		Help: "SSE data messages sent.",
	})

	streamBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ballisticd_stream_bytes_total",
		Help: "Bytes written to SSE streams.",
	})

	streamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ballisticd_stream_errors_total",
			Help: "SSE stream errors by reason.",
		},
		[]string{"reason"},
	)

	analysisDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ballisticd_analysis_duration_seconds",
		Help:    "Duration of trajectory event analysis requests.",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		solvesTotal,
		solveDurationSeconds,
		batchSize,
		batchDurationSeconds,
		solverWorkers,
		cacheHitsTotal,
		cacheMissesTotal,
		cacheEvictionsTotal,
		cacheEntries,
		cacheSizeBytes,
		cacheGracePeriod,
		cacheRegenErrors,
		cacheRegenDuration,
		catalogProfiles,
		catalogAgeSeconds,
		catalogFetchesTotal,
		streamConnectionsTotal,
		streamsActive,
		streamMessagesTotal,
		streamBytesTotal,
		streamErrorsTotal,
		analysisDurationSeconds,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// knownRoutes are labelled by their literal path.
var knownRoutes = map[string]bool{
	"/":                          true,
	"/healthz":                   true,
	"/readyz":                    true,
	"/metrics":                   true,
	"/static/app.js":             true,
	"/static/styles.css":         true,
	"/api/v1/trajectory":         true,
	"/api/v1/zero":               true,
	"/api/v1/atmosphere/correct": true,
	"/api/v1/batch":              true,
	"/api/v1/analysis":           true,
	"/api/v1/profiles":           true,
	"/api/v1/catalog/metadata":   true,
	"/api/v1/catalog/fetch":      true,
	"/api/v1/cache/stats":        true,
	"/api/v1/stream/trajectory":  true,
}

const profilesPrefix = "/api/v1/profiles/"

// normalizeRoute maps a request path to a bounded set of metric labels.
// Profile names collapse into a placeholder and unknown paths become "other".
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if rest, ok := strings.CutPrefix(path, profilesPrefix); ok {
		name, action, found := strings.Cut(rest, "/")
		if found && name != "" && (action == "trajectory" || action == "analysis") {
			return profilesPrefix + "{name}/" + action
		}
	}
	return "other"
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

// Flush passes through so SSE handlers keep working behind the middleware.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}

// RecordSolve counts one solve and its duration.
func RecordSolve(outcome string, d time.Duration) {
	solvesTotal.WithLabelValues(outcome).Inc()
	solveDurationSeconds.Observe(d.Seconds())
}

// RecordBatch records a worker pool batch.
func RecordBatch(size int, d time.Duration) {
	batchSize.Observe(float64(size))
	batchDurationSeconds.Observe(d.Seconds())
}

// SetSolverWorkers publishes the worker pool size.
func SetSolverWorkers(n int) { solverWorkers.Set(float64(n)) }

func IncCacheHits() { cacheHitsTotal.Inc() }
func IncCacheMisses() { cacheMissesTotal.Inc() }
func AddCacheEvictions(n int) { cacheEvictionsTotal.Add(float64(n)) }
func SetCacheEntries(n int) { cacheEntries.Set(float64(n)) }
func SetCacheSizeBytes(n int64) { cacheSizeBytes.Set(float64(n)) }
func IncCacheRegenerationErrors() { cacheRegenErrors.Inc() }
func SetCatalogProfileCount(n int) { catalogProfiles.Set(float64(n)) }
func SetCatalogAge(seconds float64) { catalogAgeSeconds.Set(seconds) }
func IncCatalogFetch(result string) { catalogFetchesTotal.WithLabelValues(result).Inc() }
func IncStreamConnections(event string) { streamConnectionsTotal.WithLabelValues(event).Inc() }
func IncStreamsActive() { streamsActive.Inc() }
func DecStreamsActive() { streamsActive.Dec() }
func IncStreamMessages() { streamMessagesTotal.Inc() }
func AddStreamBytes(n int64) { streamBytesTotal.Add(float64(n)) }
func IncStreamErrors(reason string) { streamErrorsTotal.WithLabelValues(reason).Inc() }

// SetCacheGracePeriodActive flags a cache rebuild in progress.
func SetCacheGracePeriodActive(active bool) {
	if active {
		cacheGracePeriod.Set(1)
		return
	}
	cacheGracePeriod.Set(0)
}

// ObserveCacheRegenerationDuration records a warmup or cutover duration.
func ObserveCacheRegenerationDuration(d time.Duration) {
	cacheRegenDuration.Observe(d.Seconds())
}

// ObserveAnalysisDuration records an analysis request duration.
func ObserveAnalysisDuration(d time.Duration) {
	analysisDurationSeconds.Observe(d.Seconds())
}
