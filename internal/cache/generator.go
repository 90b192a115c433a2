package cache

import (
	"context"
	"time"

	"github.com/star/ballistics/internal/metrics"
)

// Start begins the background cache maintenance loop. It performs an initial
// warmup (solving every catalog profile at standard conditions), then on every
// sweep interval:
//   - Detects catalog changes and triggers cutover
//   - Evicts expired entries
//   - Re-solves catalog profiles that have dropped out
//
// Blocks until ctx is cancelled.
func (c *SolutionCache) Start(ctx context.Context) {
	// Wait for a catalog before warmup.
	if !c.waitForCatalog(ctx) {
		return
	}

	c.warmup(ctx)

	ticker := time.NewTicker(c.config.Sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("cache maintenance stopped")
			return
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

// waitForCatalog blocks until a catalog is available in the store,
// checking every second. Returns false if ctx is cancelled.
func (c *SolutionCache) waitForCatalog(ctx context.Context) bool {
	if c.store.Get() != nil {
		return true
	}

	c.logger.Info("cache waiting for catalog...")
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if c.store.Get() != nil {
				c.logger.Info("catalog available, starting cache warmup")
				return true
			}
		}
	}
}

// warmup solves every catalog profile into the cache.
func (c *SolutionCache) warmup(ctx context.Context) {
	ds := c.store.Get()
	if ds == nil {
		return
	}
	c.currentFetchedAt = ds.FetchedAt

	c.logger.Info("cache warmup starting", "profiles", len(ds.Profiles))

	start := time.Now()
	generated := 0

	for _, p := range ds.Profiles {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := c.solver.Solve(ctx, p.Request())
		if err != nil {
			c.logger.Warn("warmup solve failed", "profile", p.Name, "error", err)
			metrics.IncCacheRegenerationErrors()
			continue
		}

		c.put(res)
		generated++
	}

	duration := time.Since(start)
	c.logger.Info("cache warmup complete",
		"generated", generated,
		"duration_ms", duration.Milliseconds(),
	)
}

// tick runs one iteration of the maintenance loop.
func (c *SolutionCache) tick(ctx context.Context) {
	if c.catalogChanged() {
		c.performCutover(ctx)
		return
	}

	c.evictExpired()
	c.refreshProfiles(ctx)
}

// refreshProfiles re-solves catalog profiles whose entries have expired.
func (c *SolutionCache) refreshProfiles(ctx context.Context) {
	ds := c.store.Get()
	if ds == nil {
		return
	}

	start := time.Now()
	refreshed := 0
	for _, p := range ds.Profiles {
		if ctx.Err() != nil {
			return
		}
		req := p.Request()

		c.mu.RLock()
		_, ok := c.entries[req.Key()]
		c.mu.RUnlock()
		if ok {
			continue
		}

		res, err := c.solver.Solve(ctx, req)
		if err != nil {
			c.logger.Warn("profile refresh failed", "profile", p.Name, "error", err)
			metrics.IncCacheRegenerationErrors()
			continue
		}
		c.put(res)
		refreshed++
	}

	if refreshed > 0 {
		duration := time.Since(start)
		metrics.ObserveCacheRegenerationDuration(duration)
		c.logger.Debug("profiles refreshed",
			"count", refreshed,
			"duration_ms", duration.Milliseconds(),
		)
	}
}
