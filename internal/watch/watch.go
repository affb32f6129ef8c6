// Package watch re-runs a callback when files under a registry change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of events, such as an editor save or a
// bulk copy, into one callback.
const DefaultDebounce = time.Second

// Watcher observes a directory tree.
type Watcher struct {
	root     string
	debounce time.Duration
	logger   *slog.Logger

	// onReady, when set, runs once every initial directory is watched.
	onReady func()
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before the callback runs.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets a structured logger. If not set, logging is disabled.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// New creates a Watcher for every directory below root.
func New(root string, opts ...Option) *Watcher {
	w := &Watcher{
		root:     root,
		debounce: DefaultDebounce,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run blocks until ctx is done, calling onChange after each settled burst
// of changes. Callbacks never overlap. A callback error is logged and the
// watch continues.
func (w *Watcher) Run(ctx context.Context, onChange func(context.Context) error) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := w.addTree(fw, w.root); err != nil {
		return err
	}
	w.logger.Info("watching registry", "root", w.root, "debounce", w.debounce)
	if w.onReady != nil {
		w.onReady()
	}

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(fw, event.Name); err != nil {
						w.logger.Warn("cannot watch new directory", "path", event.Name, "error", err)
					}
				}
			}
			w.logger.Debug("registry changed", "path", event.Name, "op", event.Op.String())

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if err := onChange(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				w.logger.Warn("re-run failed", "error", err)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// addTree watches dir and every directory below it.
func (w *Watcher) addTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path != dir && errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return fmt.Errorf("failed to walk %s: %w", path, err)
		}
		if !d.IsDir() {
			return nil
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}
