package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/star/ballistics/internal/analysis"
	"github.com/star/ballistics/internal/cache"
	"github.com/star/ballistics/internal/catalog"
	"github.com/star/ballistics/internal/solver"
	"github.com/star/ballistics/internal/units"
)

// CatalogConfig holds load catalog configuration loaded from environment variables.
type CatalogConfig struct {
	EnableFetch     bool
	SourceURL       string
	ExtraSourceURLs []string
	CacheDir        string
	MaxFiles        int
	MaxAge          time.Duration
}

// fetchTimeout bounds a catalog refresh triggered over HTTP.
const fetchTimeout = 60 * time.Second

// profilesHandler handles GET /api/v1/profiles.
func profilesHandler(store *catalog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ds := store.Get()
		if ds == nil {
			writeError(w, http.StatusServiceUnavailable, "catalog not loaded")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"source":     ds.Source,
			"fetched_at": ds.FetchedAt.UTC().Format(time.RFC3339),
			"count":      len(ds.Profiles),
			"profiles":   ds.Profiles,
		})
	}
}

// profileTrajectoryHandler handles GET /api/v1/profiles/{name}/trajectory.
// Profiles are solved at standard conditions and served from the solution cache.
func profileTrajectoryHandler(logger *slog.Logger, store *catalog.Store, solutions *cache.SolutionCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profile, ok := store.Lookup(r.PathValue("name"))
		if !ok {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}

		sys := units.System(r.URL.Query().Get("units"))
		if !sys.Valid() {
			writeError(w, http.StatusBadRequest, "invalid units parameter, must be imperial or metric")
			return
		}
		step, err := queryInt(r, "step", defaultStep, 1, maxTableDistance)
		if err != nil {
			writeSolveError(w, err)
			return
		}
		maxRange, err := queryInt(r, "max_range", defaultMaxRange, 1, maxTableDistance)
		if err != nil {
			writeSolveError(w, err)
			return
		}
		if maxRange/step+1 > maxRows {
			writeSolveError(w, errRowBudget)
			return
		}
		format, err := parseFormat(r)
		if err != nil {
			writeSolveError(w, err)
			return
		}

		res, err := solutions.GetOrSolve(r.Context(), profile.Request())
		if err != nil {
			writeSolveError(w, err)
			return
		}
		writeTrajectory(w, logger, res, tableOptions{
			step:     step,
			maxRange: maxRange,
			units:    sys,
			format:   format,
			title:    profile.Name,
		})
	}
}

// profileAnalysisHandler handles GET /api/v1/profiles/{name}/analysis.
func profileAnalysisHandler(store *catalog.Store, solutions *cache.SolutionCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profile, ok := store.Lookup(r.PathValue("name"))
		if !ok {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}

		vital := analysis.DefaultVitalZone
		if v := r.URL.Query().Get("vital_zone"); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || !(f > 0 && f <= 100) {
				writeError(w, http.StatusBadRequest, "invalid vital_zone parameter, must be 0-100 inches")
				return
			}
			vital = f
		}

		results := analysis.Analyze(r.Context(), solutions, analysis.Request{
			Shots:     []solver.Request{profile.Request()},
			VitalZone: vital,
		})
		pe := results[0]
		if pe.Error != "" {
			writeError(w, http.StatusUnprocessableEntity, pe.Error)
			return
		}
		writeJSON(w, http.StatusOK, pe)
	}
}

// catalogMetadataHandler handles GET /api/v1/catalog/metadata.
func catalogMetadataHandler(store *catalog.Store, cfg CatalogConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"loaded":        false,
			"fetch_enabled": cfg.EnableFetch,
			"source_url":    cfg.SourceURL,
		}
		if ds := store.Get(); ds != nil {
			age := store.AgeSeconds()
			resp["loaded"] = true
			resp["source"] = ds.Source
			resp["fetched_at"] = ds.FetchedAt.UTC().Format(time.RFC3339)
			resp["age_seconds"] = int(age)
			resp["stale"] = cfg.MaxAge > 0 && age > cfg.MaxAge.Seconds()
			resp["profile_count"] = len(ds.Profiles)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// catalogFetchHandler handles POST /api/v1/catalog/fetch.
func catalogFetchHandler(logger *slog.Logger, store *catalog.Store, cfg CatalogConfig) http.HandlerFunc {
	fetcher := catalog.NewFetcher(cfg.SourceURL, logger, cfg.ExtraSourceURLs...)
	var diskCache *catalog.Cache
	if cfg.CacheDir != "" {
		diskCache = catalog.NewCache(cfg.CacheDir, cfg.MaxFiles)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !cfg.EnableFetch {
			writeError(w, http.StatusForbidden, "catalog fetch disabled")
			return
		}
		if cfg.SourceURL == "" {
			writeError(w, http.StatusServiceUnavailable, "no catalog source URL configured")
			return
		}

		store.Lock()
		defer store.Unlock()

		ctx, cancel := context.WithTimeout(r.Context(), fetchTimeout)
		defer cancel()

		ds, err := catalog.Refresh(ctx, fetcher, diskCache, store, logger)
		if err != nil {
			logger.Warn("catalog fetch failed", "error", err)
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"source":        ds.Source,
			"fetched_at":    ds.FetchedAt.UTC().Format(time.RFC3339),
			"profile_count": len(ds.Profiles),
		})
	}
}

// cacheStatsHandler handles GET /api/v1/cache/stats.
func cacheStatsHandler(solutions *cache.SolutionCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := solutions.Stats()
		resp := map[string]any{
			"entries":         s.Entries,
			"max_entries":     s.MaxEntries,
			"size_bytes":      s.SizeBytes,
			"hits":            s.Hits,
			"misses":          s.Misses,
			"evictions":       s.Evictions,
			"in_grace_period": s.InGracePeriod,
		}
		if total := s.Hits + s.Misses; total > 0 {
			resp["hit_ratio"] = float64(s.Hits) / float64(total)
		}
		if !s.OldestEntry.IsZero() {
			resp["oldest_entry"] = s.OldestEntry.UTC().Format(time.RFC3339)
			resp["newest_entry"] = s.NewestEntry.UTC().Format(time.RFC3339)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
