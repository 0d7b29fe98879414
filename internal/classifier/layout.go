package classifier

import (
	"path"
	"strings"

	"github.com/starford/kenaz-migrate/internal/models"
)

// primaryRoots are top-level source folders dropped from Primary paths.
var primaryRoots = map[string]struct{}{"learn": {}, "build": {}}

// StripPrimaryRoot removes a single leading "learn" or "build" segment and
// returns the remaining slash-separated path.
func StripPrimaryRoot(relPath string) string {
	parts := Segments(relPath)
	if len(parts) > 1 {
		if _, ok := primaryRoots[parts[0]]; ok {
			parts = parts[1:]
		}
	}
	return strings.Join(parts, "/")
}

// IsBuild reports whether any segment of relPath is "build".
func IsBuild(relPath string) bool {
	for _, p := range Segments(relPath) {
		if p == "build" {
			return true
		}
	}
	return false
}

// Destination returns the slash-separated path of doc relative to the
// destination root. Primary documents keep their sub-tree under blog/;
// other categories are flattened to <category>/<basename>.md.
func Destination(doc models.Document) string {
	cat := Classify(doc.RelPath)
	if cat == models.Primary {
		return path.Join(cat.Dir(), StripPrimaryRoot(doc.RelPath))
	}
	return path.Join(cat.Dir(), doc.Basename+".md")
}
