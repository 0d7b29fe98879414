package classifier

import (
	"testing"

	"github.com/starford/kenaz-migrate/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want models.Category
	}{
		{"learn/rust/ownership.md", models.Primary},
		{"build/kenaz/design.md", models.Primary},
		{"random/note.md", models.Primary},
		{"top.md", models.Primary},
		{"", models.Primary},
		{"quick-notes/git-reset.md", models.QuickNote},
		{"learn/problems/segfault.md", models.QuickNote},
		{"collections/links.md", models.Collection},
		{"misc/collect/reading.md", models.Collection},
		// quick-note segments win over collection segments.
		{"collect/problems/x.md", models.QuickNote},
		// Segment match, not substring match.
		{"learn/collections-archive/x.md", models.Primary},
		{"my-problems/x.md", models.Primary},
	}
	for _, tt := range tests {
		if got := Classify(tt.path); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.path, got, tt.want)
		}
	}
}

func TestClassify_Deterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		if got := Classify("collections/a.md"); got != models.Collection {
			t.Fatalf("run %d: got %s", i, got)
		}
	}
}

func TestSegments(t *testing.T) {
	got := Segments("./learn//rust/ownership.md")
	want := []string{"learn", "rust", "ownership.md"}
	if len(got) != len(want) {
		t.Fatalf("Segments = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Segments[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
