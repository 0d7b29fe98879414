// Package assets relocates image files from the source vault into the flat
// destination assets directory.
package assets

import (
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/starford/kenaz-migrate/internal/checksum"
	"github.com/starford/kenaz-migrate/internal/models"
	"github.com/starford/kenaz-migrate/internal/storage"
)

// DefaultExtensions is the image allow-list.
var DefaultExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp"}

// Report counts the outcome of a copy pass.
type Report struct {
	Found      int
	Copied     int
	Duplicates int // same basename, identical content
	Collisions int // same basename, different content
	Failed     int
	Bytes      int64
}

// Collect lists every image under the source root in enumeration order.
func Collect(src storage.Reader, exts []string) ([]models.Asset, error) {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	entries, err := src.List("", exts...)
	if err != nil {
		return nil, fmt.Errorf("assets: scan: %w", err)
	}
	out := make([]models.Asset, 0, len(entries))
	for _, e := range entries {
		out = append(out, models.Asset{
			Basename: path.Base(e.Path),
			RelPath:  e.Path,
			AbsPath:  e.AbsPath,
			Size:     e.Size,
			ModTime:  e.ModTime,
		})
	}
	return out, nil
}

// Copy writes every asset into dst by basename. The first asset seen for a
// basename wins; later ones are skipped and reported as duplicates when their
// content matches, collisions otherwise. A failed copy is logged and counted
// without stopping the pass. Only ctx cancellation returns an error.
func Copy(ctx context.Context, list []models.Asset, dst storage.Writer, logger *slog.Logger) (Report, error) {
	rep := Report{Found: len(list)}
	seen := make(map[string]*claim, len(list))

	for _, a := range list {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		if first, ok := seen[a.Basename]; ok {
			same, err := first.sameContent(a)
			if err != nil {
				logger.Warn("assets: checksum failed",
					slog.String("path", a.RelPath), slog.String("error", err.Error()))
				rep.Failed++
				continue
			}
			if same {
				rep.Duplicates++
				logger.Debug("assets: duplicate skipped",
					slog.String("path", a.RelPath), slog.String("kept", first.asset.RelPath))
				continue
			}
			rep.Collisions++
			logger.Warn("assets: basename collision, keeping first",
				slog.String("name", a.Basename),
				slog.String("kept", first.asset.RelPath),
				slog.String("skipped", a.RelPath))
			continue
		}
		seen[a.Basename] = &claim{asset: a}

		n, err := dst.CopyFrom(a.AbsPath, a.Basename)
		if err != nil {
			rep.Failed++
			logger.Warn("assets: copy failed",
				slog.String("path", a.RelPath), slog.String("error", err.Error()))
			continue
		}
		rep.Copied++
		rep.Bytes += n
		logger.Debug("assets: copied", slog.String("path", a.RelPath), slog.String("name", a.Basename))
	}
	return rep, nil
}

// claim is the asset that owns a destination basename. Its checksum is only
// computed once a second asset competes for the name.
type claim struct {
	asset models.Asset
	sum   string
}

func (c *claim) sameContent(other models.Asset) (bool, error) {
	if c.asset.Size != other.Size {
		return false, nil
	}
	if c.sum == "" {
		s, err := checksum.SumFile(c.asset.AbsPath)
		if err != nil {
			return false, err
		}
		c.sum = s
	}
	s, err := checksum.SumFile(other.AbsPath)
	if err != nil {
		return false, err
	}
	return s == c.sum, nil
}
