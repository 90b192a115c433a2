package cache

import (
	"context"
	"time"

	"github.com/star/ballistics/internal/metrics"
)

// catalogChanged checks if the catalog has been replaced since the cache was last built.
func (c *SolutionCache) catalogChanged() bool {
	ds := c.store.Get()
	if ds == nil {
		return false
	}
	return !ds.FetchedAt.Equal(c.currentFetchedAt)
}

// performCutover rebuilds the cache against the new catalog.
//
// Strategy:
//  1. Set grace period flag (old cache continues serving reads)
//  2. Solve every profile of the new catalog into a fresh map
//  3. Atomic swap: replace old entries with new
//  4. Clear grace period flag
//
// Ad-hoc entries are dropped with the old map. During the rebuild, reads
// against the old cache continue uninterrupted.
func (c *SolutionCache) performCutover(ctx context.Context) {
	ds := c.store.Get()
	if ds == nil {
		return
	}

	c.logger.Info("catalog cutover starting",
		"old_catalog_fetched_at", c.currentFetchedAt.UTC().Format(time.RFC3339),
		"new_catalog_fetched_at", ds.FetchedAt.UTC().Format(time.RFC3339),
		"profiles", len(ds.Profiles),
	)

	c.inGracePeriod.Store(true)
	metrics.SetCacheGracePeriodActive(true)

	start := time.Now()
	newEntries := make(map[string]*CacheEntry, len(ds.Profiles))
	generated := 0

	for _, p := range ds.Profiles {
		select {
		case <-ctx.Done():
			c.inGracePeriod.Store(false)
			metrics.SetCacheGracePeriodActive(false)
			c.logger.Warn("cutover cancelled by context")
			return
		default:
		}
		if len(newEntries) >= c.config.MaxEntries {
			break
		}

		res, err := c.solver.Solve(ctx, p.Request())
		if err != nil {
			c.logger.Warn("cutover solve failed", "profile", p.Name, "error", err)
			metrics.IncCacheRegenerationErrors()
			continue
		}

		now := time.Now()
		newEntries[res.Request.Key()] = &CacheEntry{
			Result:      res,
			GeneratedAt: now,
			ExpiresAt:   now.Add(c.config.TTL),
		}
		generated++
	}

	// Atomic swap.
	c.replaceAll(newEntries)
	c.currentFetchedAt = ds.FetchedAt

	c.inGracePeriod.Store(false)
	metrics.SetCacheGracePeriodActive(false)

	duration := time.Since(start)
	c.logger.Info("catalog cutover complete",
		"duration_ms", duration.Milliseconds(),
		"entries_replaced", generated,
	)
	metrics.ObserveCacheRegenerationDuration(duration)
}
