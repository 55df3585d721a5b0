package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/obplab/swingmech/internal/api"
	"github.com/obplab/swingmech/internal/cache"
	"github.com/obplab/swingmech/internal/config"
	"github.com/obplab/swingmech/internal/log"
	"github.com/obplab/swingmech/internal/pipeline"
	"github.com/obplab/swingmech/internal/store"
	"github.com/obplab/swingmech/internal/watch"
)

// runServe assembles the long-running service: SQLite store, cache, HTTP
// API, config watcher, and optionally the dataset watcher that refreshes
// the pipeline when new captures land.
func runServe(ctx context.Context, cfg config.AppConfig, configPath string) error {
	logger := log.WithComponent("serve")

	st, err := store.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	ch := buildCache(cfg)

	runner := pipeline.New(cfg, pipeline.WithStore(st))
	srv := api.New(cfg, st, ch, runner)

	holder := config.NewHolder(cfg, config.NewLoader(configPath, cfg.Version), configPath)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(ctx) })

	// Apply reloaded configuration: log level immediately, pipeline knobs on
	// the next run.
	cfgCh := make(chan config.AppConfig, 1)
	holder.RegisterListener(cfgCh)
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case next := <-cfgCh:
				log.Configure(log.Config{Level: next.LogLevel, Service: "swingmech", Version: next.Version})
				runner.Reconfigure(next)
				logger.Info().Str("event", "config.applied").Msg("reloaded configuration applied")
			}
		}
	})

	// Config watcher is best-effort: startup should not fail without it.
	if configPath != "" {
		if err := holder.StartWatcher(ctx); err != nil {
			logger.Warn().Err(err).Str("event", "config.watcher_start_failed").Msg("failed to start config watcher")
		}

		// SIGHUP triggers a manual reload.
		g.Go(func() error {
			hup := make(chan os.Signal, 1)
			signal.Notify(hup, syscall.SIGHUP)
			defer signal.Stop(hup)
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hup:
					logger.Info().Str("event", "config.reload_signal").Msg("received SIGHUP, reloading config")
					if err := holder.Reload(ctx); err != nil {
						logger.Warn().Err(err).Str("event", "config.reload_failed").Msg("config reload failed")
					}
				}
			}
		})
	}

	if cfg.WatchEnabled {
		w := watch.New(cfg.CaptureDir, cfg.WatchDebounce, func(runCtx context.Context) {
			if _, err := runner.Run(runCtx); err != nil {
				logger.Error().Err(err).Str("event", "watch.refresh_failed").Msg("refresh after dataset change failed")
				return
			}
			ch.Clear(runCtx)
		})
		// Watcher failures (missing tree, inotify limits) are not fatal to
		// the API.
		g.Go(func() error {
			if err := w.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Warn().Err(err).Str("event", "watch.start_failed").Msg("dataset watcher stopped")
			}
			return nil
		})
	}

	return g.Wait()
}

// buildCache selects the Redis cache when an address is configured and the
// in-memory cache otherwise. An unreachable Redis falls back to memory so
// the service still comes up.
func buildCache(cfg config.AppConfig) cache.Cache {
	logger := log.WithComponent("cache")
	if cfg.RedisAddr == "" {
		return cache.NewMemory(cache.DefaultCleanupInterval)
	}
	c, err := cache.NewRedis(cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger)
	if err != nil {
		logger.Warn().Err(err).
			Str("event", "cache.redis_unavailable").
			Str("addr", cfg.RedisAddr).
			Msg("redis unreachable, using in-memory cache")
		return cache.NewMemory(cache.DefaultCleanupInterval)
	}
	return c
}
