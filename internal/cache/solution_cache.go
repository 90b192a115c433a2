// Package cache provides an in-memory cache of solved trajectories.
//
// Entries are keyed by the request fingerprint and expire after a TTL. A
// background worker keeps every catalog profile warm at standard conditions,
// sweeps expired entries, and rebuilds the cache gracefully when the catalog
// changes without interrupting reads.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/star/ballistics/internal/ballistics"
	"github.com/star/ballistics/internal/catalog"
	"github.com/star/ballistics/internal/metrics"
	"github.com/star/ballistics/internal/solver"
)

// Config holds cache configuration loaded from environment variables.
type Config struct {
	TTL         time.Duration // Entry lifetime (default: 10m)
	MaxEntries  int           // Upper bound on cached results (default: 1024)
	Sweep       time.Duration // Maintenance interval (default: 30s)
	GracePeriod time.Duration // Catalog cutover grace period (default: 30s)
}

// CacheEntry wraps a result with generation metadata.
type CacheEntry struct {
	Result      *solver.Result
	GeneratedAt time.Time
	ExpiresAt   time.Time
}

// SolutionCache is an in-memory cache of solver results.
// Safe for concurrent use by multiple goroutines.
type SolutionCache struct {
	mu      sync.RWMutex
	entries map[string]*CacheEntry

	config Config
	solver *solver.Solver
	store  *catalog.Store
	logger *slog.Logger

	// Track current catalog for change detection.
	currentFetchedAt time.Time

	// Counters (lock-free).
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64

	// Cutover state.
	inGracePeriod atomic.Bool
}

// NewSolutionCache creates a new solution cache.
func NewSolutionCache(config Config, s *solver.Solver, store *catalog.Store, logger *slog.Logger) *SolutionCache {
	if config.TTL <= 0 {
		config.TTL = 10 * time.Minute
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = 1024
	}
	if config.Sweep <= 0 {
		config.Sweep = 30 * time.Second
	}

	logger.Info("cache initialized",
		"ttl_seconds", config.TTL.Seconds(),
		"max_entries", config.MaxEntries,
		"sweep_seconds", config.Sweep.Seconds(),
		"grace_period_seconds", config.GracePeriod.Seconds(),
	)

	return &SolutionCache{
		entries: make(map[string]*CacheEntry),
		config:  config,
		solver:  s,
		store:   store,
		logger:  logger,
	}
}

// Get returns the cached result for req, or nil if absent or expired.
func (c *SolutionCache) Get(req solver.Request) *solver.Result {
	key := req.Key()
	now := time.Now()

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && now.Before(entry.ExpiresAt) {
		c.hits.Add(1)
		metrics.IncCacheHits()
		return entry.Result
	}

	c.misses.Add(1)
	metrics.IncCacheMisses()
	return nil
}

// GetOrSolve returns the cached result for req, solving and caching it on a
// miss. Failed solves are not cached.
func (c *SolutionCache) GetOrSolve(ctx context.Context, req solver.Request) (*solver.Result, error) {
	if res := c.Get(req); res != nil {
		return res, nil
	}
	res, err := c.solver.Solve(ctx, req)
	if err != nil {
		return nil, err
	}
	c.put(res)
	return res, nil
}

// Solve is GetOrSolve, letting the cache stand in for a solver.
func (c *SolutionCache) Solve(ctx context.Context, req solver.Request) (*solver.Result, error) {
	return c.GetOrSolve(ctx, req)
}

// put stores a result in the cache, evicting the oldest entry when full.
// Caller must not hold mu.
func (c *SolutionCache) put(res *solver.Result) {
	now := time.Now()
	entry := &CacheEntry{
		Result:      res,
		GeneratedAt: now,
		ExpiresAt:   now.Add(c.config.TTL),
	}
	key := res.Request.Key()

	var evicted int
	c.mu.Lock()
	if _, exists := c.entries[key]; !exists {
		for len(c.entries) >= c.config.MaxEntries {
			c.removeOldestLocked()
			evicted++
		}
	}
	c.entries[key] = entry
	c.mu.Unlock()

	if evicted > 0 {
		c.evictions.Add(int64(evicted))
		metrics.AddCacheEvictions(evicted)
	}
	c.updateMetrics()
}

// removeOldestLocked drops the entry generated longest ago. Caller must hold mu.
func (c *SolutionCache) removeOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.GeneratedAt.Before(oldest) {
			oldestKey, oldest = k, e.GeneratedAt
		}
	}
	delete(c.entries, oldestKey)
}

// evictExpired removes entries past their expiry.
func (c *SolutionCache) evictExpired() int {
	now := time.Now()
	var removed int

	c.mu.Lock()
	for k, e := range c.entries {
		if !now.Before(e.ExpiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	c.mu.Unlock()

	if removed > 0 {
		c.evictions.Add(int64(removed))
		metrics.AddCacheEvictions(removed)
		c.updateMetrics()
		c.logger.Debug("cache eviction", "entries_removed", removed)
	}

	return removed
}

// replaceAll atomically replaces all cache entries (used during catalog cutover).
func (c *SolutionCache) replaceAll(newEntries map[string]*CacheEntry) {
	c.mu.Lock()
	c.entries = newEntries
	c.mu.Unlock()
	c.updateMetrics()
}

// Stats returns current cache statistics.
func (c *SolutionCache) Stats() CacheStats {
	c.mu.RLock()
	count := len(c.entries)

	var oldest, newest time.Time
	for _, e := range c.entries {
		if oldest.IsZero() || e.GeneratedAt.Before(oldest) {
			oldest = e.GeneratedAt
		}
		if newest.IsZero() || e.GeneratedAt.After(newest) {
			newest = e.GeneratedAt
		}
	}
	c.mu.RUnlock()

	return CacheStats{
		Entries:       count,
		MaxEntries:    c.config.MaxEntries,
		SizeBytes:     c.estimateSizeBytes(),
		OldestEntry:   oldest,
		NewestEntry:   newest,
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Evictions:     c.evictions.Load(),
		InGracePeriod: c.inGracePeriod.Load(),
	}
}

// CacheStats holds cache statistics for the stats endpoint.
type CacheStats struct {
	Entries       int
	MaxEntries    int
	SizeBytes     int64
	OldestEntry   time.Time
	NewestEntry   time.Time
	Hits          int64
	Misses        int64
	Evictions     int64
	InGracePeriod bool
}

// estimateSizeBytes returns a rough estimate of the cache memory footprint.
func (c *SolutionCache) estimateSizeBytes() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sampleSize := int64(unsafe.Sizeof(ballistics.Sample{}))
	var total int64
	for key, entry := range c.entries {
		if entry.Result == nil || entry.Result.Solution == nil {
			continue
		}
		samples := int64(cap(entry.Result.Solution.Samples)) * sampleSize
		// Result plus request, roughly 256 bytes; CacheEntry is a pointer and two times.
		total += samples + 256 + 56 + int64(len(key))
	}

	// Map overhead (rough: 8 bytes per bucket).
	total += int64(len(c.entries)) * 8

	return total
}

// updateMetrics publishes current cache size to Prometheus.
func (c *SolutionCache) updateMetrics() {
	c.mu.RLock()
	count := len(c.entries)
	c.mu.RUnlock()

	metrics.SetCacheEntries(count)
	metrics.SetCacheSizeBytes(c.estimateSizeBytes())
}
