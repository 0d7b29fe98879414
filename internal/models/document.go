// Package models defines the domain types for the vault migration.
package models

import "time"

// Category is the destination classification of a document.
type Category string

// Destination categories.
const (
	Primary    Category = "blog"
	QuickNote  Category = "quick-notes"
	Collection Category = "collections"
)

// Categories lists every category in scaffolding order.
var Categories = []Category{Primary, QuickNote, Collection}

// Dir returns the destination subdirectory for the category.
func (c Category) Dir() string {
	return string(c)
}

// String implements fmt.Stringer.
func (c Category) String() string {
	return string(c)
}

// Document is a markdown file discovered in the source vault.
type Document struct {
	Basename string `json:"basename"`
	RelPath  string `json:"rel_path"` // slash-separated, relative to source root
	AbsPath  string `json:"abs_path"`
}

// Header is a document's metadata block (YAML frontmatter).
type Header map[string]any

// Clone returns a shallow copy of h. A nil header clones to an empty one.
func (h Header) Clone() Header {
	out := make(Header, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// Has reports whether key is present with a non-nil value.
func (h Header) Has(key string) bool {
	v, ok := h[key]
	return ok && v != nil
}

// LinkStatus describes how a wiki-link was resolved.
type LinkStatus string

// Link resolution outcomes.
const (
	LinkResolved  LinkStatus = "resolved"
	LinkAmbiguous LinkStatus = "ambiguous"
	LinkMissing   LinkStatus = "missing"
)

// Link is one rewritten wiki-link inside a document.
type Link struct {
	Source     string     `json:"source"`                // RelPath of the linking document
	Target     string     `json:"target"`                // link target as written
	TargetPath string     `json:"target_path,omitempty"` // RelPath of the resolved document
	Status     LinkStatus `json:"status"`
	Href       string     `json:"href"`
}

// TransformedDocument is the fully migrated form of a Document.
type TransformedDocument struct {
	Source   Document
	Category Category
	DestPath string // slash-separated, relative to destination root
	Header   Header
	Body     string
	Links    []Link
}

// Asset is an image file discovered in the source vault.
type Asset struct {
	Basename string    `json:"basename"`
	RelPath  string    `json:"rel_path"`
	AbsPath  string    `json:"abs_path"`
	Size     int64     `json:"size"`
	ModTime  time.Time `json:"mod_time"`
}
