// Package watch observes the dataset root for new or changed capture files
// and triggers a pipeline refresh once the directory settles.
package watch

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/obplab/swingmech/internal/log"
	"github.com/obplab/swingmech/internal/metrics"
)

// Watcher debounces filesystem events under the dataset root and invokes the
// refresh callback at most once per quiet period.
type Watcher struct {
	root     string
	debounce time.Duration
	refresh  func(context.Context)

	mu    sync.Mutex
	timer *time.Timer
}

// New creates a Watcher. refresh is called from the watcher goroutine after
// the directory has been quiet for the debounce interval.
func New(root string, debounce time.Duration, refresh func(context.Context)) *Watcher {
	return &Watcher{root: root, debounce: debounce, refresh: refresh}
}

// Run watches until ctx is cancelled. Session directories created while
// running are added to the watch; only capture file events schedule a
// refresh.
func (w *Watcher) Run(ctx context.Context) error {
	logger := log.WithComponent("watch")

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = fw.Close() }()
	defer w.stopTimer()

	if err := w.addRecursive(fw, w.root); err != nil {
		return err
	}
	logger.Info().
		Str("event", "watch.started").
		Str("root", w.root).
		Dur("debounce", w.debounce).
		Msg("dataset watcher started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			metrics.WatchEventsTotal.Inc()
			w.handleEvent(ctx, fw, event)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("watch error")
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, fw *fsnotify.Watcher, event fsnotify.Event) {
	logger := log.WithComponent("watch")

	if event.Op.Has(fsnotify.Create) {
		// A new session directory needs its own watch.
		if err := w.addRecursive(fw, event.Name); err == nil {
			logger.Debug().
				Str("event", "watch.dir_added").
				Str("path", event.Name).
				Msg("watching new directory")
		}
	}

	if !isCapture(event.Name) {
		return
	}
	logger.Debug().
		Str("event", "watch.capture_changed").
		Str("path", event.Name).
		Str("op", event.Op.String()).
		Msg("capture file changed")
	w.schedule(ctx)
}

// schedule arms (or re-arms) the debounce timer.
func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if ctx.Err() != nil {
			return
		}
		metrics.WatchRefreshesTotal.Inc()
		w.refresh(ctx)
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

// addRecursive watches path and every directory below it. Non-directories
// are ignored.
func (w *Watcher) addRecursive(fw *fsnotify.Watcher, path string) error {
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return fw.Add(p)
	})
}

func isCapture(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".c3d") && !strings.HasSuffix(lower, "model.c3d")
}
