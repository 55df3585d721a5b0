package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/obplab/swingmech/internal/log"
)

// Holder holds configuration with atomic reloading capability. It provides
// thread-safe access and supports hot reloading from file change or SIGHUP.
type Holder struct {
	mu         sync.RWMutex
	current    AppConfig
	loader     *Loader
	configPath string
	logger     zerolog.Logger

	listenerMu sync.RWMutex
	listeners  []chan<- AppConfig
}

// NewHolder creates a configuration holder with an initial configuration.
func NewHolder(initial AppConfig, loader *Loader, configPath string) *Holder {
	return &Holder{
		current:    initial,
		loader:     loader,
		configPath: configPath,
		logger:     log.WithComponent("config"),
	}
}

// Get returns the current configuration (thread-safe read).
func (h *Holder) Get() AppConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// RegisterListener adds a channel that receives every applied configuration.
// Sends are non-blocking; a full channel drops the notification.
func (h *Holder) RegisterListener(ch chan<- AppConfig) {
	h.listenerMu.Lock()
	defer h.listenerMu.Unlock()
	h.listeners = append(h.listeners, ch)
}

// Reload reloads configuration from file and validates it. If loading or
// validation fails the old configuration is kept and an error is returned, so
// a broken edit never takes down a running daemon.
func (h *Holder) Reload(_ context.Context) error {
	h.logger.Info().Str("event", "config.reload_start").Msg("reloading configuration")

	newCfg, err := h.loader.Load()
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("event", "config.reload_failed").
			Msg("failed to load new configuration")
		return fmt.Errorf("load config: %w", err)
	}

	h.mu.Lock()
	h.current = newCfg
	h.mu.Unlock()

	h.notify(newCfg)
	h.logger.Info().Str("event", "config.reload_applied").Msg("configuration reloaded")
	return nil
}

func (h *Holder) notify(cfg AppConfig) {
	h.listenerMu.RLock()
	defer h.listenerMu.RUnlock()
	for _, ch := range h.listeners {
		select {
		case ch <- cfg:
		default:
		}
	}
}

// StartWatcher begins watching the config file for changes. It is best-effort:
// the caller should treat errors as a warning, not as fatal.
func (h *Holder) StartWatcher(ctx context.Context) error {
	if h.configPath == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify.NewWatcher: %w", err)
	}

	// Watch the directory: editors replace files on save, which would drop a
	// watch installed on the file itself.
	dir := filepath.Dir(h.configPath)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch directory %s: %w", dir, err)
	}

	target := filepath.Base(h.configPath)
	go func() {
		defer func() { _ = watcher.Close() }()

		var debounce *time.Timer
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(500*time.Millisecond, func() {
					if err := h.Reload(ctx); err != nil {
						h.logger.Warn().Err(err).
							Str("event", "config.watch_reload_failed").
							Msg("config file changed but reload failed")
					}
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				h.logger.Warn().Err(err).Msg("config watcher error")
			}
		}
	}()

	h.logger.Info().
		Str("event", "config.watcher_started").
		Str("path", h.configPath).
		Msg("watching config file for changes")
	return nil
}
