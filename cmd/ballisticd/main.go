package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/star/ballistics/internal/api"
	"github.com/star/ballistics/internal/auth"
	"github.com/star/ballistics/internal/cache"
	"github.com/star/ballistics/internal/catalog"
	"github.com/star/ballistics/internal/metrics"
	"github.com/star/ballistics/internal/solver"
	"github.com/star/ballistics/internal/stream"
	"github.com/star/ballistics/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	addr := os.Getenv("BALLISTICD_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	authCfg, err := loadAuthConfig(logger)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}

	catCfg := loadCatalogConfig(logger)
	store := catalog.NewStore()
	loadCatalog(logger, store, catCfg)

	solverCfg := loadSolverConfig(logger)
	slv := solver.NewSolver(solverCfg, logger)
	metrics.SetSolverWorkers(solverCfg.Workers)

	cacheCfg := loadCacheConfig(logger)
	solutions := cache.NewSolutionCache(cacheCfg, slv, store, logger)

	streamCfg := loadStreamConfig(logger)
	streamHandler := stream.NewHandler(solutions, store, streamCfg, logger)

	srv := api.NewServer(addr, logger, authCfg, store, catCfg, slv, solutions, streamHandler, web.Content)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start cache background worker.
	go solutions.Start(ctx)

	// Background goroutine to update catalog age gauge.
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				age := store.AgeSeconds()
				if age >= 0 {
					metrics.SetCatalogAge(age)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		logger.Info("starting server", "addr", addr, "auth_enabled", authCfg.Enabled, "catalog_fetch_enabled", catCfg.EnableFetch)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// loadCatalog fills store from the disk cache, then the remote source, then
// the built-in profiles, stopping at the first that succeeds.
func loadCatalog(logger *slog.Logger, store *catalog.Store, cfg api.CatalogConfig) {
	var diskCache *catalog.Cache
	if cfg.CacheDir != "" {
		diskCache = catalog.NewCache(cfg.CacheDir, cfg.MaxFiles)
		if ds, err := catalog.LoadCached(diskCache, store, logger); err != nil {
			logger.Info("no catalog cache found", "error", err)
		} else {
			logger.Info("loaded catalog from cache", "count", len(ds.Profiles), "cached_at", ds.FetchedAt.Format(time.RFC3339))
			return
		}
	}

	if cfg.EnableFetch && cfg.SourceURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		fetcher := catalog.NewFetcher(cfg.SourceURL, logger, cfg.ExtraSourceURLs...)
		if _, err := catalog.Refresh(ctx, fetcher, diskCache, store, logger); err != nil {
			logger.Warn("initial catalog fetch failed, using built-in profiles", "error", err)
		} else {
			return
		}
	}

	ds, err := catalog.Default(logger)
	if err != nil {
		logger.Error("failed to load built-in catalog", "error", err)
		return
	}
	store.Set(ds)
	metrics.SetCatalogProfileCount(len(ds.Profiles))
	logger.Info("loaded built-in catalog", "count", len(ds.Profiles))
}

func loadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	enabledStr := os.Getenv("BALLISTICD_AUTH_ENABLED")
	if enabledStr != "" {
		enabled, err := strconv.ParseBool(enabledStr)
		if err != nil {
			return cfg, errors.New("BALLISTICD_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("BALLISTICD_AUTH_TOKEN")
		if err := cfg.Validate(); err != nil {
			return cfg, err
		}
		logger.Info("auth enabled")
	}

	return cfg, nil
}

func loadSolverConfig(logger *slog.Logger) solver.Config {
	cfg := solver.Config{
		Workers:  runtime.NumCPU(),
		MaxRange: 50000,
		Gravity:  -32.194,
	}

	if v := os.Getenv("BALLISTICD_SOLVER_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid BALLISTICD_SOLVER_WORKERS value, using default", "value", v, "default", cfg.Workers)
		} else {
			cfg.Workers = n
		}
	}

	if v := os.Getenv("BALLISTICD_MAX_RANGE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid BALLISTICD_MAX_RANGE value, using default", "value", v, "default", 50000)
		} else {
			cfg.MaxRange = n
		}
	}

	if v := os.Getenv("BALLISTICD_GRAVITY"); v != "" {
		g, err := strconv.ParseFloat(v, 64)
		if err != nil || !(g < 0) {
			logger.Warn("invalid BALLISTICD_GRAVITY value, using default", "value", v, "default", -32.194)
		} else {
			cfg.Gravity = g
		}
	}

	logger.Info("solver config",
		"workers", cfg.Workers,
		"max_range_yards", cfg.MaxRange,
		"gravity", cfg.Gravity,
	)

	return cfg
}

func loadCacheConfig(logger *slog.Logger) cache.Config {
	cfg := cache.Config{
		TTL:         10 * time.Minute,
		MaxEntries:  1024,
		Sweep:       30 * time.Second,
		GracePeriod: 30 * time.Second,
	}

	if v := os.Getenv("BALLISTICD_CACHE_TTL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid BALLISTICD_CACHE_TTL value, using default", "value", v, "default", 600)
		} else {
			cfg.TTL = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("BALLISTICD_CACHE_MAX_ENTRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid BALLISTICD_CACHE_MAX_ENTRIES value, using default", "value", v, "default", 1024)
		} else {
			cfg.MaxEntries = n
		}
	}

	if v := os.Getenv("BALLISTICD_CACHE_SWEEP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid BALLISTICD_CACHE_SWEEP value, using default", "value", v, "default", 30)
		} else {
			cfg.Sweep = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("BALLISTICD_CACHE_GRACE_PERIOD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid BALLISTICD_CACHE_GRACE_PERIOD value, using default", "value", v, "default", 30)
		} else {
			cfg.GracePeriod = time.Duration(n) * time.Second
		}
	}

	logger.Info("cache config",
		"ttl_seconds", cfg.TTL.Seconds(),
		"max_entries", cfg.MaxEntries,
		"sweep_seconds", cfg.Sweep.Seconds(),
		"grace_period_seconds", cfg.GracePeriod.Seconds(),
	)

	return cfg
}

func loadStreamConfig(logger *slog.Logger) stream.Config {
	cfg := stream.Config{
		MaxConcurrentPerIP: 10,
		MaxTotal:           1000,
		KeepaliveInterval:  30 * time.Second,
		Tick:               50 * time.Millisecond,
	}

	if v := os.Getenv("BALLISTICD_STREAM_MAX_CONCURRENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid BALLISTICD_STREAM_MAX_CONCURRENT value, using default", "value", v, "default", 10)
		} else {
			cfg.MaxConcurrentPerIP = n
		}
	}

	if v := os.Getenv("BALLISTICD_STREAM_MAX_TOTAL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid BALLISTICD_STREAM_MAX_TOTAL value, using default", "value", v, "default", 1000)
		} else {
			cfg.MaxTotal = n
		}
	}

	if v := os.Getenv("BALLISTICD_STREAM_KEEPALIVE_INTERVAL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid BALLISTICD_STREAM_KEEPALIVE_INTERVAL value, using default", "value", v, "default", 30)
		} else {
			cfg.KeepaliveInterval = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("BALLISTICD_TRUST_PROXY"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid BALLISTICD_TRUST_PROXY value, defaulting to false", "value", v)
		} else {
			cfg.TrustProxy = trust
		}
	}

	logger.Info("stream config",
		"max_concurrent_per_ip", cfg.MaxConcurrentPerIP,
		"max_total", cfg.MaxTotal,
		"keepalive_interval_seconds", cfg.KeepaliveInterval.Seconds(),
		"trust_proxy", cfg.TrustProxy,
	)

	return cfg
}

func loadCatalogConfig(logger *slog.Logger) api.CatalogConfig {
	cfg := api.CatalogConfig{
		EnableFetch: false,
		CacheDir:    "/tmp/ballisticd/catalog",
		MaxFiles:    5,
		MaxAge:      7 * 24 * time.Hour,
	}

	if v := os.Getenv("BALLISTICD_ENABLE_CATALOG_FETCH"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid BALLISTICD_ENABLE_CATALOG_FETCH value, defaulting to false", "value", v)
		} else {
			cfg.EnableFetch = enabled
		}
	}

	if v := os.Getenv("BALLISTICD_CATALOG_SOURCE_URL"); v != "" {
		cfg.SourceURL = v
	}

	if v := os.Getenv("BALLISTICD_CATALOG_EXTRA_URLS"); v != "" {
		var urls []string
		for _, u := range strings.Split(v, ",") {
			u = strings.TrimSpace(u)
			if u != "" {
				urls = append(urls, u)
			}
		}
		cfg.ExtraSourceURLs = urls
	}

	if v, ok := os.LookupEnv("BALLISTICD_CATALOG_CACHE_DIR"); ok {
		cfg.CacheDir = v
	}

	if v := os.Getenv("BALLISTICD_CATALOG_MAX_FILES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid BALLISTICD_CATALOG_MAX_FILES value, using default", "value", v, "default", 5)
		} else {
			cfg.MaxFiles = n
		}
	}

	if v := os.Getenv("BALLISTICD_CATALOG_MAX_AGE"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			logger.Warn("invalid BALLISTICD_CATALOG_MAX_AGE value, defaulting to 604800", "value", v)
		} else {
			cfg.MaxAge = time.Duration(seconds) * time.Second
		}
	}

	logger.Info("catalog config",
		"fetch_enabled", cfg.EnableFetch,
		"source_url", cfg.SourceURL,
		"extra_urls", cfg.ExtraSourceURLs,
		"cache_dir", cfg.CacheDir,
	)

	return cfg
}
