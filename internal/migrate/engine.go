// Package migrate drives a vault migration run: backup, index build,
// directory scaffolding, per-document processing and asset relocation.
package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/starford/kenaz-migrate/internal/apperr"
	"github.com/starford/kenaz-migrate/internal/assets"
	"github.com/starford/kenaz-migrate/internal/backup"
	"github.com/starford/kenaz-migrate/internal/frontmatter"
	"github.com/starford/kenaz-migrate/internal/linkgraph"
	"github.com/starford/kenaz-migrate/internal/models"
	"github.com/starford/kenaz-migrate/internal/refindex"
	"github.com/starford/kenaz-migrate/internal/storage"
)

// danglingLimit caps the dangling targets kept in a Report.
const danglingLimit = 10

// Config holds the inputs of a run.
type Config struct {
	SourceRoot      string
	DestinationRoot string
	AssetsDir       string
	BackupDir       string
	AssetsLinkPath  string
	Workers         int
	Ignore          []string
	ImageExtensions []string
	DryRun          bool
	Defaults        frontmatter.Defaults
}

// Engine runs migrations. An Engine may be reused; every Run starts from a
// fresh index and ledger.
type Engine struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock sets the clock used for snapshot names and default publish dates.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New returns an Engine for cfg.
func New(cfg Config, opts ...Option) *Engine {
	e := &Engine{cfg: cfg, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	if e.cfg.Workers < 1 {
		e.cfg.Workers = 1
	}
	if len(e.cfg.ImageExtensions) == 0 {
		e.cfg.ImageExtensions = assets.DefaultExtensions
	}
	return e
}

// run is the state of a single Run.
type run struct {
	*Engine
	started time.Time
	rep     *Report

	src       *storage.FS
	idx       *refindex.Index
	dst       storage.Writer
	assetsDst storage.Writer
	ledger    *linkgraph.DB

	embedsMu sync.Mutex
	embeds   map[string][]string // embedded asset name -> documents embedding it
}

// Run executes every phase in order. Document-level failures are logged and
// counted; any returned error is an *apperr.FatalError and the report's
// Phase is PhaseFailed.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	r := &run{
		Engine:  e,
		started: e.now(),
		rep:     &Report{Phase: PhaseStart, DryRun: e.cfg.DryRun},
	}

	e.logger.Info("migrate: starting",
		slog.String("source", e.cfg.SourceRoot),
		slog.String("destination", e.cfg.DestinationRoot),
		slog.String("assets", e.cfg.AssetsDir),
		slog.Int("workers", e.cfg.Workers),
		slog.Bool("dry_run", e.cfg.DryRun))

	if err := r.execute(ctx); err != nil {
		r.rep.Phase = PhaseFailed
		e.logger.Error("migrate: run failed", slog.String("error", err.Error()))
		return r.rep, err
	}

	e.logger.Info("migrate: done",
		slog.Int("documents", r.rep.Documents),
		slog.Int("written", r.rep.Written),
		slog.Int("skipped", r.rep.Skipped),
		slog.Int("assets", r.rep.Assets.Copied),
		slog.Duration("elapsed", r.rep.Duration()))
	return r.rep, nil
}

func (r *run) execute(ctx context.Context) error {
	if !r.cfg.DryRun {
		unlock, err := Lock(r.cfg.DestinationRoot)
		if err != nil {
			return apperr.Fatal(string(PhaseStart), err)
		}
		defer func() {
			if err := unlock(); err != nil {
				r.logger.Warn("migrate: release lock failed", slog.String("error", err.Error()))
			}
		}()
	}

	ledger, err := linkgraph.Open()
	if err != nil {
		return apperr.Fatal(string(PhaseStart), err)
	}
	defer ledger.Close()
	r.ledger = ledger

	steps := []struct {
		phase Phase
		fn    func(context.Context) error
	}{
		{PhaseBackup, r.backup},
		{PhaseIndexBuilt, r.buildIndex},
		{PhaseScaffolded, r.scaffold},
		{PhaseDocumentsProcessed, r.processDocuments},
		{PhaseAssetsCopied, r.copyAssets},
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return apperr.Fatal(string(s.phase), err)
		}
		start := time.Now()
		if err := s.fn(ctx); err != nil {
			return apperr.Fatal(string(s.phase), err)
		}
		took := time.Since(start)
		r.rep.Timings = append(r.rep.Timings, Timing{Phase: s.phase, Duration: took})
		r.rep.Phase = s.phase
		r.logger.Debug("migrate: phase complete",
			slog.String("phase", string(s.phase)), slog.Duration("took", took))
	}

	r.summarize()
	r.rep.Phase = PhaseDone
	return nil
}

func (r *run) backup(ctx context.Context) error {
	if r.cfg.DryRun {
		if _, err := os.Stat(r.cfg.DestinationRoot); err == nil {
			r.logger.Info("dry-run: snapshot", slog.String("path", r.cfg.DestinationRoot))
		}
		return nil
	}

	dir, err := backup.Snapshot(ctx, r.cfg.DestinationRoot, r.cfg.BackupDir, r.started)
	if err != nil {
		return err
	}
	if dir == "" {
		r.logger.Info("backup: destination absent, skipped", slog.String("path", r.cfg.DestinationRoot))
		return nil
	}
	r.rep.Snapshot = dir
	r.logger.Info("backup: snapshot written", slog.String("path", dir))
	return nil
}

func (r *run) buildIndex(_ context.Context) error {
	src, err := storage.NewFS(r.cfg.SourceRoot, storage.WithIgnore(r.cfg.Ignore...))
	if err != nil {
		return err
	}
	idx, err := refindex.Build(src)
	if err != nil {
		return err
	}
	r.src, r.idx = src, idx

	collisions := idx.Collisions()
	for _, name := range slices.Sorted(maps.Keys(collisions)) {
		paths := make([]string, 0, len(collisions[name]))
		for _, d := range collisions[name] {
			paths = append(paths, d.RelPath)
		}
		r.logger.Warn("index: basename shared by several documents",
			slog.String("name", name), slog.Any("paths", paths))
	}

	r.rep.Documents = idx.Len()
	r.rep.Collisions = len(collisions)
	r.logger.Info("index: built", slog.Int("documents", idx.Len()), slog.Int("collisions", len(collisions)))
	return nil
}

func (r *run) scaffold(_ context.Context) error {
	if r.cfg.DryRun {
		r.dst = storage.NewDryRun(r.logger.With(slog.String("tree", "destination")))
		r.assetsDst = storage.NewDryRun(r.logger.With(slog.String("tree", "assets")))
	} else {
		dst, err := openWritable(r.cfg.DestinationRoot)
		if err != nil {
			return err
		}
		assetsDst, err := openWritable(r.cfg.AssetsDir)
		if err != nil {
			return err
		}
		r.dst, r.assetsDst = dst, assetsDst
	}

	for _, cat := range models.Categories {
		if err := r.dst.MkdirAll(cat.Dir()); err != nil {
			return err
		}
	}
	return nil
}

// openWritable creates root if needed and opens it as a storage tree.
func openWritable(root string) (*storage.FS, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("migrate: create %s: %w", root, err)
	}
	return storage.NewFS(root)
}

func (r *run) copyAssets(ctx context.Context) error {
	list, err := assets.Collect(r.src, r.cfg.ImageExtensions)
	if err != nil {
		return err
	}
	rep, err := assets.Copy(ctx, list, r.assetsDst, r.logger)
	r.rep.Assets = rep
	if err != nil {
		return err
	}
	r.checkEmbeds(list)
	r.logger.Info("assets: copied",
		slog.Int("found", rep.Found),
		slog.Int("copied", rep.Copied),
		slog.Int("duplicates", rep.Duplicates),
		slog.Int("collisions", rep.Collisions),
		slog.Int("failed", rep.Failed))
	return nil
}

// recordEmbeds notes the asset names a document embeds.
func (r *run) recordEmbeds(source string, names []string) {
	if len(names) == 0 {
		return
	}
	r.embedsMu.Lock()
	defer r.embedsMu.Unlock()
	if r.embeds == nil {
		r.embeds = make(map[string][]string)
	}
	for _, n := range names {
		r.embeds[n] = append(r.embeds[n], source)
	}
}

// checkEmbeds warns about embedded names that no discovered asset provides,
// such as images kept in ignored folders or outside the extension list.
func (r *run) checkEmbeds(list []models.Asset) {
	found := make(map[string]struct{}, len(list))
	for _, a := range list {
		found[a.Basename] = struct{}{}
	}
	for _, name := range slices.Sorted(maps.Keys(r.embeds)) {
		if _, ok := found[name]; ok {
			continue
		}
		sources := slices.Compact(slices.Sorted(slices.Values(r.embeds[name])))
		r.rep.MissingAssets = append(r.rep.MissingAssets, name)
		r.logger.Warn("assets: embedded image not found",
			slog.String("name", name), slog.Any("sources", sources))
	}
}

// summarize pulls link outcomes out of the ledger. Ledger failures only
// degrade the report.
func (r *run) summarize() {
	dangling, err := r.ledger.Dangling(danglingLimit)
	if err != nil {
		r.logger.Warn("migrate: dangling summary failed", slog.String("error", err.Error()))
		return
	}
	r.rep.Dangling = dangling
}
