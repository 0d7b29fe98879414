// Package watch re-runs a migration whenever the source vault changes.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/kenaz-migrate/internal/storage"
)

// DefaultDebounce is the quiet period after the last event before a re-run.
const DefaultDebounce = 500 * time.Millisecond

// RunFunc is called once per burst of changes.
type RunFunc func(ctx context.Context) error

// Watcher watches a directory tree.
type Watcher struct {
	root     string
	ignore   []string
	debounce time.Duration
	logger   *slog.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithIgnore skips events for paths matching any of patterns.
func WithIgnore(patterns ...string) Option {
	return func(w *Watcher) {
		w.ignore = append(w.ignore, patterns...)
	}
}

// WithDebounce sets the quiet period.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// New returns a Watcher for root.
func New(root string, opts ...Option) *Watcher {
	w := &Watcher{root: root, debounce: DefaultDebounce, logger: slog.Default()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches the tree until ctx is cancelled and calls fn after every burst
// of relevant events. Errors from fn are logged and watching continues.
// New directories are added to the watch list as they appear.
func (w *Watcher) Run(ctx context.Context, fn RunFunc) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	root, err := filepath.Abs(w.root)
	if err != nil {
		return err
	}
	if err := w.addDirs(fw, root); err != nil {
		return err
	}
	w.logger.Info("watcher: started", slog.String("root", root))

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher: stopped")
			return nil

		case <-timer.C:
			w.logger.Info("watcher: change detected, re-running")
			if err := fn(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				w.logger.Error("watcher: run failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			rel, err := filepath.Rel(root, ev.Name)
			if err != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			isDir := false
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					isDir = true
				}
			}
			if storage.Ignored(w.ignore, rel, isDir) {
				continue
			}
			if isDir {
				if err := w.addDirs(fw, ev.Name); err != nil {
					w.logger.Warn("watcher: add new dir failed",
						slog.String("path", rel), slog.String("error", err.Error()))
				}
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			w.logger.Debug("watcher: event", slog.String("path", rel), slog.String("op", ev.Op.String()))
			timer.Reset(w.debounce)

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirs adds dir and every non-ignored subdirectory to fw.
func (w *Watcher) addDirs(fw *fsnotify.Watcher, dir string) error {
	root, err := filepath.Abs(w.root)
	if err != nil {
		return err
	}
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if rel, relErr := filepath.Rel(root, p); relErr == nil && rel != "." {
			if storage.Ignored(w.ignore, filepath.ToSlash(rel), true) {
				return filepath.SkipDir
			}
		}
		return fw.Add(p)
	})
}
