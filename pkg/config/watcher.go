package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceInterval is the quiet period after a file event before a
// reload fires. Editors often write a config file in several operations;
// debouncing collapses them into one reload.
const DefaultDebounceInterval = 100 * time.Millisecond

// Watcher reloads the configuration file when it changes on disk and
// hands the parsed result to a callback. The watch covers the file's
// directory because editors typically replace files via rename, which
// would silently detach a watch on the file itself.
type Watcher struct {
	path     string
	notifier *fsnotify.Watcher
	debounce time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// NewWatcher creates a watcher for the config file at path.
func NewWatcher(path string) (*Watcher, error) {
	notifier, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		path:     path,
		notifier: notifier,
		debounce: DefaultDebounceInterval,
	}, nil
}

// Watch blocks, invoking onReload with each successfully reloaded
// configuration, until the context is cancelled or Stop is called.
// Reload failures are logged and the previous configuration stays in
// effect.
func (w *Watcher) Watch(ctx context.Context, onReload func(*Config)) error {
	dir := filepath.Dir(w.path)
	if err := w.notifier.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", dir, err)
	}

	slog.Info("config watcher started", "path", w.path)

	target, err := filepath.Abs(w.path)
	if err != nil {
		target = w.path
	}

	for {
		select {
		case <-ctx.Done():
			slog.Debug("config watcher stopped (context cancelled)")
			return nil

		case event, ok := <-w.notifier.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Chmod != 0 {
				continue
			}
			name, err := filepath.Abs(event.Name)
			if err != nil {
				name = event.Name
			}
			if name != target {
				continue
			}

			w.schedule(func() {
				cfg, err := LoadConfig(w.path)
				if err != nil {
					slog.Error("config reload failed, keeping previous configuration",
						"path", w.path,
						"error", err,
					)
					return
				}
				slog.Info("configuration reloaded", "path", w.path)
				onReload(cfg)
			})

		case err, ok := <-w.notifier.Errors:
			if !ok {
				return nil
			}
			slog.Error("config watcher error", "error", err)
		}
	}
}

// schedule debounces fn: rapid successive events collapse into one call
// after the quiet period.
func (w *Watcher) schedule(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, fn)
}

// Stop cancels any pending reload and closes the watcher. The Watch loop
// returns once the underlying event channel closes.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	return w.notifier.Close()
}
