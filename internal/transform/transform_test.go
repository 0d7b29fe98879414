package transform

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/starford/kenaz-migrate/internal/models"
	"github.com/starford/kenaz-migrate/internal/refindex"
)

var ownership = models.Document{Basename: "ownership", RelPath: "learn/rust/ownership.md"}

func testIndex() *refindex.Index {
	return refindex.New([]models.Document{
		{Basename: "borrowing", RelPath: "learn/rust/borrowing.md"},
		ownership,
		{Basename: "git-reset", RelPath: "quick-notes/git-reset.md"},
		{Basename: "reading", RelPath: "collections/reading.md"},
		{Basename: "top", RelPath: "top.md"},
		{Basename: "index", RelPath: "learn/rust/index.md"},
		{Basename: "index", RelPath: "build/app/index.md"},
	})
}

func TestTransform_Images(t *testing.T) {
	tr := New(testIndex(), "")
	tests := []struct {
		in, want string
	}{
		{"![[diagram.png]]", "![](./assets/diagram.png)"},
		{"![[diagram.png|A diagram]]", "![A diagram](./assets/diagram.png)"},
		{"![[attachments/sub/diagram.png| spaced alt ]]", "![spaced alt](./assets/diagram.png)"},
		{"![[Pasted image 1.png]]", "![](<./assets/Pasted image 1.png>)"},
		{"a ![[x.gif]] b ![[y.svg|y]] c", "a ![](./assets/x.gif) b ![y](./assets/y.svg) c"},
	}
	for _, tt := range tests {
		got := tr.Transform(ownership, tt.in)
		assert.Equal(t, tt.want, got.Body, "input %q", tt.in)
		assert.Empty(t, got.Links, "images are not links")
	}
}

func TestTransform_CustomAssetsPath(t *testing.T) {
	tr := New(testIndex(), "/static/img/")
	got := tr.Transform(ownership, "![[a.png|alt]]")
	assert.Equal(t, "![alt](/static/img/a.png)", got.Body)
}

func TestTransform_ReportsEmbeds(t *testing.T) {
	tr := New(testIndex(), "")
	got := tr.Transform(ownership, "![[img/a.png|alt]] text ![[b.jpg]] [[borrowing]]")
	assert.Equal(t, []string{"a.png", "b.jpg"}, got.Embeds)

	none := tr.Transform(ownership, "plain [[borrowing]]")
	assert.Empty(t, none.Embeds)
}

func TestTransform_ResolvedAndMissingLinks(t *testing.T) {
	tr := New(testIndex(), "")
	got := tr.Transform(ownership, "See ![[diagram.png]] and [[borrowing]] or [[missing-doc|the doc]]")

	assert.Equal(t, "See ![](./assets/diagram.png) and [borrowing](./borrowing.md) or [the doc](#)", got.Body)
	want := []models.Link{
		{Source: "learn/rust/ownership.md", Target: "borrowing", TargetPath: "learn/rust/borrowing.md", Status: models.LinkResolved, Href: "./borrowing.md"},
		{Source: "learn/rust/ownership.md", Target: "missing-doc", Status: models.LinkMissing, Href: "#"},
	}
	if diff := cmp.Diff(want, got.Links); diff != "" {
		t.Errorf("links mismatch (-want +got):\n%s", diff)
	}
}

func TestTransform_CrossCategoryRelativePaths(t *testing.T) {
	tr := New(testIndex(), "")
	tests := []struct {
		from models.Document
		in   string
		want string
	}{
		{ownership, "[[git-reset]]", "[git-reset](../../quick-notes/git-reset.md)"},
		{ownership, "[[reading|Reading list]]", "[Reading list](../../collections/reading.md)"},
		{ownership, "[[top]]", "[top](../top.md)"},
		{models.Document{Basename: "git-reset", RelPath: "quick-notes/git-reset.md"}, "[[borrowing]]", "[borrowing](../blog/rust/borrowing.md)"},
		{models.Document{Basename: "top", RelPath: "top.md"}, "[[borrowing]]", "[borrowing](./rust/borrowing.md)"},
	}
	for _, tt := range tests {
		got := tr.Transform(tt.from, tt.in)
		assert.Equal(t, tt.want, got.Body, "from %s input %q", tt.from.RelPath, tt.in)
	}
}

func TestTransform_Headings(t *testing.T) {
	tr := New(testIndex(), "")
	got := tr.Transform(ownership, "[[borrowing#Mutable References]] and [[#Move Semantics|moves]]")
	assert.Equal(t, "[borrowing#Mutable References](./borrowing.md#mutable-references) and [moves](#move-semantics)", got.Body)
	assert.Len(t, got.Links, 1)
}

func TestTransform_AmbiguousLink(t *testing.T) {
	tr := New(testIndex(), "")
	got := tr.Transform(ownership, "[[index]]")
	assert.Equal(t, "[index](./index.md)", got.Body)
	assert.Equal(t, models.LinkAmbiguous, got.Links[0].Status)
}

func TestTransform_EscapedPipeInTable(t *testing.T) {
	tr := New(testIndex(), "")
	got := tr.Transform(ownership, `| [[borrowing\|Borrow]] |`)
	assert.Equal(t, "| [Borrow](./borrowing.md) |", got.Body)
}

func TestTransform_LeavesOtherSyntaxAlone(t *testing.T) {
	tr := New(testIndex(), "")
	body := "# Title\n\n> [!note] Callout\n> body\n\n[regular](https://example.com) ![img](a.png) [single] `code`\n"
	got := tr.Transform(ownership, body)
	assert.Equal(t, body, got.Body)
	assert.Empty(t, got.Links)
}

func TestRelative(t *testing.T) {
	tests := []struct {
		fromDir, to, want string
	}{
		{"blog/rust", "blog/rust/borrowing.md", "./borrowing.md"},
		{"blog/rust", "blog/go/x.md", "../go/x.md"},
		{"blog", "blog/rust/x.md", "./rust/x.md"},
		{"quick-notes", "blog/x.md", "../blog/x.md"},
		{".", "blog/x.md", "./blog/x.md"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, relative(tt.fromDir, tt.to), "%s -> %s", tt.fromDir, tt.to)
	}
}
