package catalog

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/star/ballistics/internal/metrics"
)

// Refresh downloads, parses and installs a new catalog, then snapshots the
// raw download to the disk cache. The store is left untouched on failure.
// Callers serialize refreshes with Store.Lock.
func Refresh(ctx context.Context, f *Fetcher, c *Cache, s *Store, logger *slog.Logger) (*Dataset, error) {
	start := time.Now()
	data, err := f.Fetch(ctx)
	if err != nil {
		metrics.IncCatalogFetch("error")
		return nil, fmt.Errorf("fetching catalog: %w", err)
	}

	profiles, err := Parse(bytes.NewReader(data), logger)
	if err != nil {
		metrics.IncCatalogFetch("error")
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if len(profiles) == 0 {
		metrics.IncCatalogFetch("empty")
		return nil, fmt.Errorf("catalog from %s has no valid profiles", f.SourceURL())
	}

	ds := &Dataset{
		Source:    f.SourceURL(),
		FetchedAt: time.Now(),
		Profiles:  profiles,
	}
	s.Set(ds)
	metrics.IncCatalogFetch("success")
	metrics.SetCatalogProfileCount(len(profiles))
	metrics.SetCatalogAge(0)

	if c != nil {
		if err := c.Write(data, ds.FetchedAt); err != nil {
			logger.Warn("failed to write catalog cache", "error", err)
		}
	}

	logger.Info("catalog refreshed",
		"source", ds.Source,
		"profiles", len(profiles),
		"bytes", len(data),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return ds, nil
}

// LoadCached installs the newest disk snapshot into the store. It returns
// an error when there is no usable snapshot.
func LoadCached(c *Cache, s *Store, logger *slog.Logger) (*Dataset, error) {
	data, ts, err := c.LoadLatest()
	if err != nil {
		return nil, err
	}
	profiles, err := Parse(bytes.NewReader(data), logger)
	if err != nil {
		return nil, fmt.Errorf("parsing cached catalog: %w", err)
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("cached catalog has no valid profiles")
	}
	ds := &Dataset{
		Source:    "cache",
		FetchedAt: ts,
		Profiles:  profiles,
	}
	s.Set(ds)
	metrics.SetCatalogProfileCount(len(profiles))
	return ds, nil
}
