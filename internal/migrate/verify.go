package migrate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/starford/kenaz-migrate/internal/contentschema"
	"github.com/starford/kenaz-migrate/internal/models"
	"github.com/starford/kenaz-migrate/internal/parser"
	"github.com/starford/kenaz-migrate/internal/refindex"
	"github.com/starford/kenaz-migrate/internal/storage"
)

// Finding is a destination document whose header breaks its category schema.
type Finding struct {
	Path     string
	Category models.Category
	Errors   []contentschema.ValidationError
}

// VerifyReport is the outcome of Verify.
type VerifyReport struct {
	Checked  int
	Findings []Finding
}

// Verify validates the header of every document under the category
// directories of destRoot against its category's content schema. Missing
// category directories are not an error.
func Verify(destRoot string) (*VerifyReport, error) {
	dst, err := storage.NewFS(destRoot)
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}

	rep := &VerifyReport{}
	for _, cat := range models.Categories {
		_, err := os.Stat(filepath.Join(dst.Root(), cat.Dir()))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		entries, err := dst.List(cat.Dir(), refindex.DocumentExt)
		if err != nil {
			return nil, fmt.Errorf("verify: list %s: %w", cat.Dir(), err)
		}
		for _, e := range entries {
			rep.Checked++
			f, err := verifyOne(dst, cat, e.Path)
			if err != nil {
				return nil, err
			}
			if f != nil {
				rep.Findings = append(rep.Findings, *f)
			}
		}
	}
	return rep, nil
}

func verifyOne(dst *storage.FS, cat models.Category, rel string) (*Finding, error) {
	data, err := dst.Read(rel)
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	parsed, err := parser.Parse(data)
	if err != nil {
		return &Finding{
			Path:     rel,
			Category: cat,
			Errors:   []contentschema.ValidationError{{Path: "(root)", Message: err.Error()}},
		}, nil
	}
	res, err := contentschema.Validate(cat, parsed.Header)
	if err != nil {
		return nil, fmt.Errorf("verify: %s: %w", rel, err)
	}
	if res.Valid {
		return nil, nil
	}
	return &Finding{Path: rel, Category: cat, Errors: res.Errors}, nil
}
