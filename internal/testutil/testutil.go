// Package testutil provides shared test helpers for building source vaults.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/kenaz-migrate/internal/storage"
)

// WriteTree creates a temporary directory populated with files (slash-
// separated relative path -> content) and returns its path.
func WriteTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

// Source opens root as a read-only source tree with the default ignores.
func Source(t *testing.T, root string) *storage.FS {
	t.Helper()
	src, err := storage.NewFS(root, storage.WithIgnore(storage.DefaultIgnore...))
	if err != nil {
		t.Fatal(err)
	}
	return src
}

// ReadFile returns the content of rel under root, failing the test if absent.
func ReadFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("read %s: %v", rel, err)
	}
	return string(data)
}

// Exists reports whether rel exists under root.
func Exists(root, rel string) bool {
	_, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
	return err == nil
}
