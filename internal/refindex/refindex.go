// Package refindex builds the frozen basename index used to resolve
// wiki-links across the source vault.
package refindex

import (
	"fmt"
	"path"
	"strings"

	"github.com/starford/kenaz-migrate/internal/models"
	"github.com/starford/kenaz-migrate/internal/storage"
)

// DocumentExt is the file type indexed as a document.
const DocumentExt = ".md"

// Index maps document basenames to their records. It has no mutators after
// Build and is safe for concurrent readers.
type Index struct {
	docs   []models.Document
	byBase map[string][]int // basename -> indexes into docs, enumeration order
}

// Build scans the whole source tree once and indexes every document.
func Build(src storage.Reader) (*Index, error) {
	entries, err := src.List("", DocumentExt)
	if err != nil {
		return nil, fmt.Errorf("refindex: scan %s: %w", src.Root(), err)
	}
	docs := make([]models.Document, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, models.Document{
			Basename: basename(e.Path),
			RelPath:  e.Path,
			AbsPath:  e.AbsPath,
		})
	}
	return New(docs), nil
}

// New indexes docs in the given order.
func New(docs []models.Document) *Index {
	idx := &Index{
		docs:   append([]models.Document(nil), docs...),
		byBase: make(map[string][]int, len(docs)),
	}
	for i, d := range idx.docs {
		idx.byBase[d.Basename] = append(idx.byBase[d.Basename], i)
	}
	return idx
}

func basename(rel string) string {
	b := path.Base(rel)
	return strings.TrimSuffix(b, path.Ext(b))
}

// Len returns the number of indexed documents.
func (idx *Index) Len() int {
	return len(idx.docs)
}

// Documents returns every document in enumeration order.
func (idx *Index) Documents() []models.Document {
	return append([]models.Document(nil), idx.docs...)
}

// Collisions returns basenames shared by more than one document.
func (idx *Index) Collisions() map[string][]models.Document {
	out := make(map[string][]models.Document)
	for base, ids := range idx.byBase {
		if len(ids) < 2 {
			continue
		}
		for _, i := range ids {
			out[base] = append(out[base], idx.docs[i])
		}
	}
	return out
}

// Lookup resolves a wiki-link target as written in the document at fromRel.
//
// A target containing "/" is matched against the end of each document path,
// which lets authors disambiguate colliding basenames. When several documents
// still match, the one sharing the longest directory prefix with fromRel wins
// (earliest in enumeration order on ties) and the status is LinkAmbiguous.
func (idx *Index) Lookup(target, fromRel string) (models.Document, models.LinkStatus) {
	t := strings.TrimSpace(target)
	t = strings.TrimSuffix(t, DocumentExt)
	t = strings.Trim(t, "/")
	if t == "" {
		return models.Document{}, models.LinkMissing
	}

	var candidates []int
	if strings.Contains(t, "/") {
		for _, i := range idx.byBase[path.Base(t)] {
			p := strings.TrimSuffix(idx.docs[i].RelPath, path.Ext(idx.docs[i].RelPath))
			if p == t || strings.HasSuffix(p, "/"+t) {
				candidates = append(candidates, i)
			}
		}
	} else {
		candidates = idx.byBase[t]
	}

	switch len(candidates) {
	case 0:
		return models.Document{}, models.LinkMissing
	case 1:
		return idx.docs[candidates[0]], models.LinkResolved
	}

	fromDir := path.Dir(fromRel)
	best, bestScore := candidates[0], -1
	for _, i := range candidates {
		if s := sharedPrefix(fromDir, path.Dir(idx.docs[i].RelPath)); s > bestScore {
			best, bestScore = i, s
		}
	}
	return idx.docs[best], models.LinkAmbiguous
}

// sharedPrefix counts leading directory segments common to a and b.
func sharedPrefix(a, b string) int {
	if a == "." || b == "." {
		return 0
	}
	as, bs := strings.Split(a, "/"), strings.Split(b, "/")
	n := 0
	for n < len(as) && n < len(bs) && as[n] == bs[n] {
		n++
	}
	return n
}
