// Package classifier maps source paths to destination categories.
package classifier

import (
	"path/filepath"
	"strings"

	"github.com/starford/kenaz-migrate/internal/models"
)

var (
	quickNoteSegments  = []string{"quick-notes", "problems"}
	collectionSegments = []string{"collections", "collect"}
)

// Classify returns the destination category for a source-relative path.
// Any path not recognised as a quick note or a collection is Primary.
func Classify(relPath string) models.Category {
	parts := Segments(relPath)
	switch {
	case containsAny(parts, quickNoteSegments):
		return models.QuickNote
	case containsAny(parts, collectionSegments):
		return models.Collection
	default:
		return models.Primary
	}
}

// Segments splits a relative path on both slash and the OS separator,
// dropping empty and "." elements.
func Segments(relPath string) []string {
	p := filepath.ToSlash(relPath)
	raw := strings.Split(p, "/")
	out := raw[:0]
	for _, s := range raw {
		if s == "" || s == "." {
			continue
		}
		out = append(out, s)
	}
	return out
}

func containsAny(parts, want []string) bool {
	for _, p := range parts {
		for _, w := range want {
			if p == w {
				return true
			}
		}
	}
	return false
}
