// Package storage defines the vault file-system abstraction.
package storage

import "time"

// Entry is a file found while listing a tree.
type Entry struct {
	Path    string // slash-separated, relative to root
	AbsPath string
	Size    int64
	ModTime time.Time
}

// Reader is the read side of a vault tree.
type Reader interface {
	// Root returns the absolute root directory.
	Root() string
	// List walks dir (relative to root) and returns every non-ignored file
	// whose extension is in exts (case-insensitive). Empty exts matches all.
	List(dir string, exts ...string) ([]Entry, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
}

// Writer is the write side of a vault tree.
type Writer interface {
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte) error
	// CopyFrom copies the file at srcAbs to path (relative to root) and
	// returns the number of bytes copied.
	CopyFrom(srcAbs, path string) (int64, error)
	// MkdirAll creates dir (relative to root) and any parents.
	MkdirAll(dir string) error
}

// Provider combines Reader and Writer.
type Provider interface {
	Reader
	Writer
}

// DefaultIgnore skips hidden files and folders (including .obsidian) and
// vendored node_modules trees.
var DefaultIgnore = []string{"**/.*", "**/node_modules/**"}
