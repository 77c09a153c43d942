package feature

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// debounceDefault is the quiet period after the last event before reloading.
const debounceDefault = 200 * time.Millisecond

// Watcher reloads a Cache when its file changes.
type Watcher struct {
	cache    *Cache
	debounce time.Duration
	logger   *zap.Logger
	onReload func(error)
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce overrides the debounce interval.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithReloadHook is called after every reload attempt.
func WithReloadHook(fn func(error)) WatcherOption {
	return func(w *Watcher) { w.onReload = fn }
}

// NewWatcher creates a watcher for the cache's file.
func NewWatcher(cache *Cache, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		cache:    cache,
		debounce: debounceDefault,
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Run watches the file's directory (Write renames into place, which
// replaces the inode). Blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("feature: create watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.cache.Path())
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("feature: watch %s: %w", dir, err)
	}
	target := filepath.Clean(w.cache.Path())

	var debounce *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(w.debounce)
			} else {
				debounce.Reset(w.debounce)
			}
			fire = debounce.C

		case <-fire:
			fire = nil
			err := w.cache.Reload()
			if err != nil {
				w.logger.Warn("feature source reload failed",
					zap.String("path", w.cache.Path()), zap.Error(err))
			} else {
				w.logger.Info("feature source reloaded",
					zap.String("path", w.cache.Path()), zap.Int("values", w.cache.Len()))
			}
			if w.onReload != nil {
				w.onReload(err)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("feature watcher error", zap.Error(err))
		}
	}
}
