package refindex

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/kenaz-migrate/internal/models"
	"github.com/starford/kenaz-migrate/internal/testutil"
)

func TestBuild_IndexesOnlyDocuments(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"learn/rust/ownership.md": "own",
		"learn/rust/borrowing.md": "borrow",
		"quick-notes/git.md":      "git",
		"learn/rust/diagram.png":  "png",
		".obsidian/config.md":     "hidden",
	})
	src := testutil.Source(t, root)

	idx, err := Build(src)
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())

	var rels []string
	for _, d := range idx.Documents() {
		rels = append(rels, d.RelPath)
	}
	assert.Equal(t, []string{"learn/rust/borrowing.md", "learn/rust/ownership.md", "quick-notes/git.md"}, rels)

	doc, status := idx.Lookup("borrowing", "learn/rust/ownership.md")
	assert.Equal(t, models.LinkResolved, status)
	assert.Equal(t, "borrowing", doc.Basename)
	assert.NotEmpty(t, doc.AbsPath)
}

func TestBuild_UnreadableRoot(t *testing.T) {
	src := testutil.Source(t, t.TempDir())
	require.NoError(t, os.RemoveAll(src.Root()))
	_, err := Build(src)
	assert.Error(t, err)
}

func TestLookup_Missing(t *testing.T) {
	idx := New([]models.Document{{Basename: "a", RelPath: "a.md"}})
	_, status := idx.Lookup("missing-doc", "a.md")
	assert.Equal(t, models.LinkMissing, status)

	_, status = idx.Lookup("  ", "a.md")
	assert.Equal(t, models.LinkMissing, status)
}

func TestLookup_ExtensionAndSpaces(t *testing.T) {
	idx := New([]models.Document{{Basename: "ownership", RelPath: "learn/rust/ownership.md"}})
	_, status := idx.Lookup(" ownership.md ", "x.md")
	assert.Equal(t, models.LinkResolved, status)
}

func TestLookup_CollisionPrefersNearest(t *testing.T) {
	idx := New([]models.Document{
		{Basename: "index", RelPath: "build/app/index.md"},
		{Basename: "index", RelPath: "learn/go/index.md"},
		{Basename: "index", RelPath: "learn/rust/index.md"},
	})

	doc, status := idx.Lookup("index", "learn/rust/ownership.md")
	assert.Equal(t, models.LinkAmbiguous, status)
	assert.Equal(t, "learn/rust/index.md", doc.RelPath)

	// No shared prefix: earliest in enumeration order.
	doc, status = idx.Lookup("index", "top.md")
	assert.Equal(t, models.LinkAmbiguous, status)
	assert.Equal(t, "build/app/index.md", doc.RelPath)

	collisions := idx.Collisions()
	require.Len(t, collisions, 1)
	assert.Len(t, collisions["index"], 3)
}

func TestLookup_PathSuffixDisambiguates(t *testing.T) {
	idx := New([]models.Document{
		{Basename: "index", RelPath: "build/app/index.md"},
		{Basename: "index", RelPath: "learn/go/index.md"},
	})

	doc, status := idx.Lookup("go/index", "build/app/other.md")
	assert.Equal(t, models.LinkResolved, status)
	assert.Equal(t, "learn/go/index.md", doc.RelPath)

	_, status = idx.Lookup("rust/index", "build/app/other.md")
	assert.Equal(t, models.LinkMissing, status)
}

func TestDocuments_ReturnsCopy(t *testing.T) {
	idx := New([]models.Document{{Basename: "a", RelPath: "a.md"}})
	docs := idx.Documents()
	docs[0].Basename = "mutated"
	_, status := idx.Lookup("a", "")
	assert.Equal(t, models.LinkResolved, status)
}

func TestCollisions_NoneForUniqueNames(t *testing.T) {
	idx := New([]models.Document{{Basename: "a", RelPath: "a.md"}, {Basename: "b", RelPath: "x/b.md"}})
	assert.Empty(t, idx.Collisions())
}
