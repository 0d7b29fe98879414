// Package contentschema holds the per-category frontmatter contracts expected
// by the destination site's content collections, as JSON Schema.
package contentschema

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/starford/kenaz-migrate/internal/models"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

// ValidationError describes one failed constraint.
type ValidationError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Result is the outcome of validating a header.
type Result struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type compiled struct {
	schema   *gojsonschema.Schema
	required []string
}

var (
	registryOnce sync.Once
	registry     map[models.Category]*compiled
	registryErr  error
)

func load() (map[models.Category]*compiled, error) {
	registryOnce.Do(func() {
		registry = make(map[models.Category]*compiled, len(models.Categories))
		for _, cat := range models.Categories {
			raw, err := schemaFS.ReadFile("schemas/" + cat.Dir() + ".schema.json")
			if err != nil {
				registryErr = fmt.Errorf("contentschema: read %s: %w", cat, err)
				return
			}
			sch, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
			if err != nil {
				registryErr = fmt.Errorf("contentschema: compile %s: %w", cat, err)
				return
			}
			var meta struct {
				Required []string `json:"required"`
			}
			if err := json.Unmarshal(raw, &meta); err != nil {
				registryErr = fmt.Errorf("contentschema: decode %s: %w", cat, err)
				return
			}
			registry[cat] = &compiled{schema: sch, required: meta.Required}
		}
	})
	return registry, registryErr
}

// RequiredFields returns the fields the category's collection requires, sorted.
func RequiredFields(cat models.Category) ([]string, error) {
	reg, err := load()
	if err != nil {
		return nil, err
	}
	c, ok := reg[cat]
	if !ok {
		return nil, fmt.Errorf("contentschema: unknown category %q", cat)
	}
	out := append([]string(nil), c.required...)
	sort.Strings(out)
	return out, nil
}

// Validate checks header against the category's schema.
func Validate(cat models.Category, header models.Header) (*Result, error) {
	reg, err := load()
	if err != nil {
		return nil, err
	}
	c, ok := reg[cat]
	if !ok {
		return nil, fmt.Errorf("contentschema: unknown category %q", cat)
	}
	if header == nil {
		header = models.Header{}
	}
	data, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("contentschema: encode header: %w", err)
	}
	res, err := c.schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("contentschema: validate: %w", err)
	}
	out := &Result{Valid: res.Valid()}
	for _, verr := range res.Errors() {
		field := verr.Field()
		if field == "" {
			field = "root"
		}
		out.Errors = append(out.Errors, ValidationError{Path: field, Message: verr.Description()})
	}
	return out, nil
}
