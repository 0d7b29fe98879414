package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/kenaz-migrate/internal/apperr"
	"github.com/starford/kenaz-migrate/internal/checksum"
	"github.com/starford/kenaz-migrate/internal/classifier"
	"github.com/starford/kenaz-migrate/internal/frontmatter"
	"github.com/starford/kenaz-migrate/internal/linkgraph"
	"github.com/starford/kenaz-migrate/internal/models"
	"github.com/starford/kenaz-migrate/internal/parser"
	"github.com/starford/kenaz-migrate/internal/transform"
)

// job is one document with its precomputed destination.
type job struct {
	doc  models.Document
	cat  models.Category
	dest string
	err  error // set when the destination is already claimed
}

// plan classifies docs and assigns destinations. Destinations are compared
// case-insensitively; every document after the first to claim one gets an
// ErrDestinationCollision.
func plan(docs []models.Document) []job {
	jobs := make([]job, len(docs))
	owner := make(map[string]string, len(docs))
	for i, d := range docs {
		j := job{doc: d, cat: classifier.Classify(d.RelPath), dest: classifier.Destination(d)}
		key := strings.ToLower(j.dest)
		if prev, ok := owner[key]; ok {
			j.err = fmt.Errorf("%w: %s is already taken by %s", apperr.ErrDestinationCollision, j.dest, prev)
		} else {
			owner[key] = d.RelPath
		}
		jobs[i] = j
	}
	return jobs
}

// pipeline bundles the per-document stages shared by all workers.
type pipeline struct {
	tr  *transform.Transformer
	syn *frontmatter.Synthesizer
}

func (r *run) processDocuments(ctx context.Context) error {
	jobs := plan(r.idx.Documents())
	for _, j := range jobs {
		row := linkgraph.DocumentRow{
			Path:     j.doc.RelPath,
			Basename: j.doc.Basename,
			Category: j.cat,
			Dest:     j.dest,
		}
		if err := r.ledger.UpsertDocument(row); err != nil {
			return err
		}
	}

	started := r.started
	p := pipeline{
		tr:  transform.New(r.idx, r.cfg.AssetsLinkPath),
		syn: frontmatter.NewSynthesizer(r.cfg.Defaults, func() time.Time { return started }),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for _, j := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r.processOne(p, j)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	stats, err := r.ledger.Stats()
	if err != nil {
		return err
	}
	r.rep.Written = stats.Written
	r.rep.Skipped = stats.Skipped
	r.rep.Resolved = stats.Resolved
	r.rep.Ambiguous = stats.Ambiguous
	r.rep.Missing = stats.Missing

	r.reportOrphanedLinks()
	r.logger.Info("documents: processed",
		slog.Int("written", stats.Written),
		slog.Int("skipped", stats.Skipped),
		slog.Int("links_resolved", stats.Resolved),
		slog.Int("links_ambiguous", stats.Ambiguous),
		slog.Int("links_missing", stats.Missing))
	return nil
}

// processOne migrates a single document. Failures are logged and recorded
// as skipped; they never escape.
func (r *run) processOne(p pipeline, j job) {
	if j.err != nil {
		r.skip(j, j.err)
		return
	}

	td, err := r.convert(p, j)
	if err != nil {
		r.skip(j, err)
		return
	}
	out, err := parser.Render(td.Header, frontmatter.KeyOrder, td.Body)
	if err != nil {
		r.skip(j, fmt.Errorf("render: %w", err))
		return
	}
	if err := r.dst.MkdirAll(path.Dir(td.DestPath)); err != nil {
		r.skip(j, err)
		return
	}
	if err := r.dst.Write(td.DestPath, out); err != nil {
		r.skip(j, err)
		return
	}

	if err := r.ledger.ReplaceLinks(j.doc.RelPath, td.Links); err != nil {
		r.logger.Warn("documents: record links failed",
			slog.String("path", j.doc.RelPath), slog.String("error", err.Error()))
	}
	if err := r.ledger.SetStatus(j.doc.RelPath, linkgraph.StatusWritten, ""); err != nil {
		r.logger.Warn("documents: record status failed",
			slog.String("path", j.doc.RelPath), slog.String("error", err.Error()))
	}
	r.logger.Debug("documents: written",
		slog.String("path", j.doc.RelPath),
		slog.String("dest", td.DestPath),
		slog.String("category", j.cat.String()),
		slog.String("sha256", checksum.Sum(out)))
}

// convert reads, splits, rewrites and synthesizes one document.
func (r *run) convert(p pipeline, j job) (*models.TransformedDocument, error) {
	data, err := r.src.Read(j.doc.RelPath)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	parsed, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}

	res := p.tr.Transform(j.doc, parsed.Body)
	r.recordEmbeds(j.doc.RelPath, res.Embeds)
	for _, l := range res.Links {
		switch l.Status {
		case models.LinkMissing:
			r.logger.Warn("documents: reference not found",
				slog.String("path", j.doc.RelPath), slog.String("target", l.Target))
		case models.LinkAmbiguous:
			r.logger.Warn("documents: ambiguous reference",
				slog.String("path", j.doc.RelPath),
				slog.String("target", l.Target),
				slog.String("resolved", l.TargetPath))
		}
	}

	return &models.TransformedDocument{
		Source:   j.doc,
		Category: j.cat,
		DestPath: j.dest,
		Header:   p.syn.Synthesize(parsed.Header, j.cat, j.doc.RelPath),
		Body:     res.Body,
		Links:    res.Links,
	}, nil
}

func (r *run) skip(j job, err error) {
	r.logger.Warn("documents: skipped",
		slog.String("path", j.doc.RelPath), slog.String("error", err.Error()))
	if lerr := r.ledger.SetStatus(j.doc.RelPath, linkgraph.StatusSkipped, err.Error()); lerr != nil {
		r.logger.Warn("documents: record status failed",
			slog.String("path", j.doc.RelPath), slog.String("error", lerr.Error()))
	}
}

// reportOrphanedLinks warns about written documents linking to documents
// that were skipped, since those links now point at nothing.
func (r *run) reportOrphanedLinks() {
	rows, err := r.ledger.Documents()
	if err != nil {
		r.logger.Warn("documents: list ledger failed", slog.String("error", err.Error()))
		return
	}
	for _, row := range rows {
		if row.Status != linkgraph.StatusSkipped {
			continue
		}
		sources, err := r.ledger.Backlinks(row.Path)
		if err != nil || len(sources) == 0 {
			continue
		}
		r.logger.Warn("documents: links point at a skipped document",
			slog.String("path", row.Path), slog.Any("sources", sources))
	}
}
