package api

import (
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/star/ballistics/internal/auth"
	"github.com/star/ballistics/internal/cache"
	"github.com/star/ballistics/internal/catalog"
	"github.com/star/ballistics/internal/health"
	"github.com/star/ballistics/internal/metrics"
	"github.com/star/ballistics/internal/solver"
	"github.com/star/ballistics/internal/stream"
)

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(
	addr string,
	logger *slog.Logger,
	authCfg auth.Config,
	store *catalog.Store,
	catCfg CatalogConfig,
	slv *solver.Solver,
	solutions *cache.SolutionCache,
	streamHandler *stream.Handler,
	webContent fs.FS,
) *Server {
	mux := http.NewServeMux()

	// Register routes.
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(func() bool { return store.Get() != nil }))
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("POST /api/v1/trajectory", trajectoryHandler(logger, slv))
	mux.HandleFunc("POST /api/v1/zero", zeroHandler(slv))
	mux.HandleFunc("POST /api/v1/atmosphere/correct", atmosphereHandler())
	mux.HandleFunc("POST /api/v1/batch", batchHandler(logger, slv))
	mux.HandleFunc("POST /api/v1/analysis", analysisHandler(solutions))

	mux.HandleFunc("GET /api/v1/profiles", profilesHandler(store))
	mux.HandleFunc("GET /api/v1/profiles/{name}/trajectory", profileTrajectoryHandler(logger, store, solutions))
	mux.HandleFunc("GET /api/v1/profiles/{name}/analysis", profileAnalysisHandler(store, solutions))
	mux.HandleFunc("GET /api/v1/catalog/metadata", catalogMetadataHandler(store, catCfg))
	mux.HandleFunc("POST /api/v1/catalog/fetch", catalogFetchHandler(logger, store, catCfg))
	mux.HandleFunc("GET /api/v1/cache/stats", cacheStatsHandler(solutions))

	if streamHandler != nil {
		mux.HandleFunc("GET /api/v1/stream/trajectory", streamHandler.HandleTrajectory)
	}

	if webContent != nil {
		mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFileFS(w, r, webContent, "index.html")
		})
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(webContent)))
	}

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(authCfg)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = metrics.Middleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			// Long enough for a full-range PNG; streams extend their own deadline.
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		logger: logger,
	}
}

// Handler returns the root handler with the full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz" || path == "/metrics"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", r.RemoteAddr,
			)
		})
	}
}
