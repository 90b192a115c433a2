// Package stream implements Server-Sent Events (SSE) playback of a solved
// trajectory. Clients connect via GET /api/v1/stream/trajectory and receive
// the range table of a catalog profile as the bullet would reach each row.
//
// SSE message format:
//
//	data: {"type":"sample_batch","t":0.25,"samples":[...]}\n\n
//
// First message is always metadata:
//
//	data: {"type":"metadata","profile":"308-win-168-match","catalog_fetched_at":"...",...}\n\n
//
// The last message is {"type":"complete",...}. Keep-alive comments (:\n\n) are
// sent every KeepaliveInterval while playback is paused between rows.
package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/star/ballistics/internal/ballistics"
	"github.com/star/ballistics/internal/cache"
	"github.com/star/ballistics/internal/catalog"
	"github.com/star/ballistics/internal/httputil"
	"github.com/star/ballistics/internal/metrics"
	"github.com/star/ballistics/internal/solver"
)

// Config holds streaming configuration loaded from environment variables.
type Config struct {
	MaxConcurrentPerIP int           // Max concurrent streams per IP (default: 10).
	MaxTotal           int           // Max concurrent streams overall (default: 1000).
	KeepaliveInterval  time.Duration // Keep-alive ping interval (default: 30s).
	Tick               time.Duration // Playback clock resolution (default: 50ms).
	TrustProxy         bool          // Use X-Forwarded-For for the per-IP limit.
}

// Handler manages SSE streaming connections.
type Handler struct {
	cache   *cache.SolutionCache
	store   *catalog.Store
	config  Config
	limiter *streamLimiter
	logger  *slog.Logger
}

// NewHandler creates a new streaming handler.
func NewHandler(solutions *cache.SolutionCache, store *catalog.Store, config Config, logger *slog.Logger) *Handler {
	if config.MaxConcurrentPerIP < 1 {
		config.MaxConcurrentPerIP = 10
	}
	if config.KeepaliveInterval <= 0 {
		config.KeepaliveInterval = 30 * time.Second
	}
	if config.Tick <= 0 {
		config.Tick = 50 * time.Millisecond
	}
	return &Handler{
		cache:   solutions,
		store:   store,
		config:  config,
		limiter: newStreamLimiter(config.MaxConcurrentPerIP, config.MaxTotal),
		logger:  logger,
	}
}

// HandleTrajectory serves the SSE trajectory playback.
// GET /api/v1/stream/trajectory?profile=308-win-168-match&step=10&speed=1&max=1000
func (h *Handler) HandleTrajectory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	name := q.Get("profile")
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing profile parameter")
		return
	}

	step := 10
	if v := q.Get("step"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "invalid step parameter, must be 1-100")
			return
		}
		step = n
	}

	speed := 1.0
	if v := q.Get("speed"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || !(f >= 0.01 && f <= 1000) {
			writeError(w, http.StatusBadRequest, "invalid speed parameter, must be 0.01-1000")
			return
		}
		speed = f
	}

	maxYard := 1000
	if v := q.Get("max"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 50000 {
			writeError(w, http.StatusBadRequest, "invalid max parameter, must be 1-50000")
			return
		}
		maxYard = n
	}

	profile, ok := h.store.Lookup(name)
	if !ok {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}

	// Rate limiting: enforce concurrent stream limit per client.
	ip := httputil.ClientIP(r, h.config.TrustProxy)
	key := httputil.LimitKey(ip)
	if !h.limiter.acquire(key) {
		metrics.IncStreamErrors("rate_limit")
		h.logger.Warn("stream rate limit exceeded",
			"remote_ip", ip,
			"limit_key", key,
			"current_count", h.limiter.count(key),
		)
		w.Header().Set("Retry-After", "30")
		writeError(w, http.StatusTooManyRequests, "too many concurrent streams")
		return
	}
	defer h.limiter.release(key)

	res, err := h.cache.GetOrSolve(r.Context(), profile.Request())
	if err != nil {
		metrics.IncStreamErrors("solve_error")
		writeError(w, solveStatus(err), err.Error())
		return
	}

	// Verify flusher support (required for SSE).
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	c := &client{
		w:       w,
		flusher: flusher,
		rc:      http.NewResponseController(w),
		ip:      ip,
		logger:  h.logger,
	}

	// Track connection metrics.
	metrics.IncStreamConnections("connect")
	metrics.IncStreamsActive()

	startTime := time.Now()
	h.logger.Info("stream connected",
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
		"profile", name,
		"step", step,
		"speed", speed,
	)

	defer func() {
		metrics.IncStreamConnections("disconnect")
		metrics.DecStreamsActive()
		h.logger.Info("stream disconnected",
			"remote_ip", ip,
			"profile", name,
			"duration_seconds", int(time.Since(startTime).Seconds()),
			"messages_sent", c.messagesSent,
			"bytes_sent", c.bytesSent,
		)
	}()

	// Set SSE response headers.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Clear the server's default WriteTimeout for this connection.
	if err := c.rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}

	// Jittered retry interval (3-7s) spreads reconnects after a restart.
	retry := 3*time.Second + time.Duration(rand.Intn(4000))*time.Millisecond
	if err := c.sendRetry(retry); err != nil {
		h.logger.Debug("stream retry write failed", "remote_ip", ip, "error", err)
		return
	}

	samples := res.Solution.Every(step, maxYard)
	from := resumeRow(r, len(samples))

	meta := metadataMessage{
		Type:      "metadata",
		Profile:   name,
		BoreAngle: res.BoreAngle,
		Rows:      len(samples),
		Step:      step,
		Speed:     speed,
		Truncated: res.Truncated,
		ResumeRow: from,
	}
	if len(samples) > 0 {
		meta.TimeOfFlight = samples[len(samples)-1].Time
	}
	if ds := h.store.Get(); ds != nil {
		meta.CatalogFetchedAt = ds.FetchedAt.UTC().Format(time.RFC3339)
		meta.CatalogAge = int(time.Since(ds.FetchedAt).Seconds())
	}
	if err := c.sendJSON(meta); err != nil {
		metrics.IncStreamErrors("send_error")
		h.logger.Warn("stream send error (metadata)", "remote_ip", ip, "error", err)
		return
	}

	if err := h.play(r, c, samples, from, speed); err != nil {
		metrics.IncStreamErrors("send_error")
		h.logger.Warn("stream send error", "remote_ip", ip, "error", err)
		return
	}
}

// play releases samples from row from onward as simulated flight time
// passes, then sends the completion message. A resumed playback starts its
// clock at the flight time of the last row the client already has.
// Returns nil when the client disconnects.
func (h *Handler) play(r *http.Request, c *client, samples []ballistics.Sample, from int, speed float64) error {
	ticker := time.NewTicker(h.config.Tick)
	defer ticker.Stop()

	keepaliveTicker := time.NewTicker(h.config.KeepaliveInterval)
	defer keepaliveTicker.Stop()

	ctx := r.Context()
	start := time.Now()
	next := from
	var offset float64
	if from > 0 {
		offset = samples[from-1].Time
	}

	for next < len(samples) {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			flight := offset + time.Since(start).Seconds()*speed
			end := next
			for end < len(samples) && samples[end].Time <= flight {
				end++
			}
			if end == next {
				continue
			}

			data, err := json.Marshal(buildBatchMessage(flight, samples[next:end]))
			if err != nil {
				metrics.IncStreamErrors("marshal_error")
				return fmt.Errorf("marshal batch: %w", err)
			}
			if err := c.sendRows(end, data); err != nil {
				return err
			}
			next = end

			// Reset keepalive since we just sent data.
			keepaliveTicker.Reset(h.config.KeepaliveInterval)

		case <-keepaliveTicker.C:
			if err := c.sendKeepalive(); err != nil {
				return fmt.Errorf("keepalive: %w", err)
			}
		}
	}

	done := completeMessage{Type: "complete", Rows: len(samples)}
	if len(samples) > 0 {
		done.LastYard = samples[len(samples)-1].Yard
	}
	return c.sendJSON(done)
}

// buildBatchMessage formats released samples into the SSE batch payload.
func buildBatchMessage(flight float64, samples []ballistics.Sample) sampleBatchMessage {
	return sampleBatchMessage{
		Type:    "sample_batch",
		T:       flight,
		Samples: samples,
	}
}

// solveStatus maps a failed solve to the status the REST endpoints use.
func solveStatus(err error) int {
	switch {
	case errors.Is(err, solver.ErrInvalidRequest),
		errors.Is(err, ballistics.ErrNoZeroSolution),
		errors.Is(err, ballistics.ErrDragOutOfRange):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// SSE message payload types.

type metadataMessage struct {
	Type             string  `json:"type"`
	Profile          string  `json:"profile"`
	CatalogFetchedAt string  `json:"catalog_fetched_at,omitempty"`
	CatalogAge       int     `json:"catalog_age_seconds"`
	BoreAngle        float64 `json:"bore_angle"`
	Rows             int     `json:"rows"`
	Step             int     `json:"step"`
	Speed            float64 `json:"speed"`
	TimeOfFlight     float64 `json:"time_of_flight"`
	Truncated        bool    `json:"truncated"`
	ResumeRow        int     `json:"resume_row,omitempty"`
}

type sampleBatchMessage struct {
	Type    string              `json:"type"`
	T       float64             `json:"t"`
	Samples []ballistics.Sample `json:"samples"`
}

type completeMessage struct {
	Type     string `json:"type"`
	Rows     int    `json:"rows"`
	LastYard int    `json:"last_yard"`
}
