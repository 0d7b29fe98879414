// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"

	"github.com/starford/kenaz-migrate/internal/apperr"
	"github.com/starford/kenaz-migrate/internal/backup"
	"github.com/starford/kenaz-migrate/internal/migrate"
	"github.com/starford/kenaz-migrate/internal/watch"
)

// ErrVerifyFailed is returned by Verify when any destination header breaks
// its category schema.
var ErrVerifyFailed = errors.New("verify: destination headers do not match their schemas")

// setup applies opts and builds the run logger.
func setup(opts []Option) (*application, error) {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.out == nil {
		app.out = os.Stdout
	}
	if app.now == nil {
		app.now = time.Now
	}
	if app.logger == nil {
		app.logger = newLogger(app.config.App, os.Stderr)
	}
	app.logger = app.logger.With(slog.String("run_id", uuid.NewString()))
	slog.SetDefault(app.logger)
	return app, nil
}

// newLogger builds a structured logger. "auto" picks the text handler when
// w is a terminal and JSON otherwise.
func newLogger(cfg ApplicationConfig, w *os.File) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	format := cfg.LogFormat
	if format == "" || format == LogFormatAuto {
		format = LogFormatJSON
		if isTerminal(w.Fd()) {
			format = LogFormatText
		}
	}
	var h slog.Handler
	if format == LogFormatText {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h)
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (a *application) engine() *migrate.Engine {
	m := a.config.Migration
	return migrate.New(migrate.Config{
		SourceRoot:      m.SourceRoot,
		DestinationRoot: m.DestinationRoot,
		AssetsDir:       m.AssetsDir,
		BackupDir:       m.BackupDir,
		AssetsLinkPath:  m.AssetsLinkPath,
		Workers:         m.Workers,
		Ignore:          m.Ignore,
		ImageExtensions: m.ImageExtensions,
		DryRun:          m.DryRun,
		Defaults:        a.config.Defaults,
	}, migrate.WithLogger(a.logger), migrate.WithClock(a.now))
}

// migrateOnce runs the engine and prints its summary, even for failed runs.
func (a *application) migrateOnce(ctx context.Context, eng *migrate.Engine) error {
	rep, err := eng.Run(ctx)
	if rep != nil {
		a.print(renderReport(rep))
	}
	return err
}

func (a *application) print(s string) {
	if s == "" {
		return
	}
	_, _ = io.WriteString(a.out, s+"\n")
}

// Run performs a single migration with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := setup(opts)
	if err != nil {
		return err
	}

	cfg := app.config
	app.logger.Info("Configuration loaded",
		slog.String("source_root", cfg.Migration.SourceRoot),
		slog.String("destination_root", cfg.Migration.DestinationRoot),
		slog.String("assets_dir", cfg.Migration.AssetsDir),
		slog.String("backup_dir", cfg.Migration.BackupDir),
		slog.String("log_level", cfg.App.LogLevel.String()))

	return app.migrateOnce(ctx, app.engine())
}

// Watch migrates once, then again after every change under the source root,
// until ctx is cancelled. Only the first run's error is returned; later
// failures are logged.
func Watch(ctx context.Context, opts ...Option) error {
	app, err := setup(opts)
	if err != nil {
		return err
	}

	eng := app.engine()
	if err := app.migrateOnce(ctx, eng); err != nil {
		return err
	}

	w := watch.New(app.config.Migration.SourceRoot,
		watch.WithIgnore(app.config.Migration.Ignore...),
		watch.WithLogger(app.logger))
	return w.Run(ctx, func(ctx context.Context) error {
		return app.migrateOnce(ctx, eng)
	})
}

// Restore replaces the destination tree with snapshot. An empty snapshot
// selects the newest one under the backup directory.
func Restore(ctx context.Context, snapshot string, opts ...Option) error {
	app, err := setup(opts)
	if err != nil {
		return err
	}
	m := app.config.Migration

	if snapshot == "" {
		snapshot, err = backup.Latest(m.BackupDir)
		if err != nil {
			return err
		}
	}

	unlock, err := migrate.Lock(m.DestinationRoot)
	if err != nil {
		return apperr.Fatal("restore", err)
	}
	defer func() {
		if err := unlock(); err != nil {
			app.logger.Warn("restore: release lock failed", slog.String("error", err.Error()))
		}
	}()

	app.logger.Info("restore: starting",
		slog.String("snapshot", snapshot), slog.String("destination", m.DestinationRoot))
	if err := backup.Restore(ctx, snapshot, m.DestinationRoot); err != nil {
		return apperr.Fatal("restore", err)
	}
	app.logger.Info("restore: done")
	return nil
}

// Verify checks every migrated header against its category schema and
// prints the findings.
func Verify(_ context.Context, opts ...Option) error {
	app, err := setup(opts)
	if err != nil {
		return err
	}

	rep, err := migrate.Verify(app.config.Migration.DestinationRoot)
	if err != nil {
		return err
	}
	app.print(renderFindings(rep))
	app.logger.Info("verify: done",
		slog.Int("checked", rep.Checked), slog.Int("invalid", len(rep.Findings)))
	if len(rep.Findings) > 0 {
		return ErrVerifyFailed
	}
	return nil
}
