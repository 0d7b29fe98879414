package internal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/kenaz-migrate/internal/apperr"
	"github.com/starford/kenaz-migrate/internal/linkgraph"
	"github.com/starford/kenaz-migrate/internal/migrate"
	"github.com/starford/kenaz-migrate/internal/testutil"
)

func testConfig(t *testing.T, files map[string]string) *Config {
	t.Helper()
	base := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Migration.SourceRoot = testutil.WriteTree(t, files)
	cfg.Migration.DestinationRoot = filepath.Join(base, "content")
	cfg.Migration.AssetsDir = filepath.Join(base, "content", "assets")
	cfg.Migration.BackupDir = filepath.Join(base, "backup")
	return cfg
}

func testOptions(cfg *Config, out io.Writer) []Option {
	return []Option{
		WithConfig(cfg),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithOutput(out),
		WithClock(func() time.Time { return time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC) }),
	}
}

func TestRun_RequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Fatal("expected error without config")
	}
}

func TestRun_MigratesAndPrintsSummary(t *testing.T) {
	cfg := testConfig(t, map[string]string{
		"learn/rust/ownership.md": "See ![[diagram.png]] and [[borrowing]] and [[missing-doc]]",
		"learn/rust/borrowing.md": "b",
		"learn/rust/diagram.png":  "png",
	})
	var out bytes.Buffer
	if err := Run(context.Background(), testOptions(cfg, &out)...); err != nil {
		t.Fatalf("run: %v", err)
	}

	got := testutil.ReadFile(t, cfg.Migration.DestinationRoot, "blog/rust/ownership.md")
	if !strings.Contains(got, "[borrowing](./borrowing.md)") {
		t.Errorf("link not rewritten:\n%s", got)
	}
	if !testutil.Exists(cfg.Migration.AssetsDir, "diagram.png") {
		t.Error("asset not copied")
	}

	summary := out.String()
	for _, want := range []string{"done", "Written", "missing-doc"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
}

func TestRun_FatalErrorSurfaces(t *testing.T) {
	cfg := testConfig(t, nil)
	cfg.Migration.SourceRoot = filepath.Join(t.TempDir(), "missing")
	var out bytes.Buffer

	err := Run(context.Background(), testOptions(cfg, &out)...)
	if !apperr.IsFatal(err) {
		t.Fatalf("err = %v, want fatal", err)
	}
	if !strings.Contains(out.String(), string(migrate.PhaseFailed)) {
		t.Errorf("summary should report failure:\n%s", out.String())
	}
}

func TestVerify_AfterRun(t *testing.T) {
	cfg := testConfig(t, map[string]string{
		"learn/a.md":       "a",
		"problems/b.md":    "b",
		"collections/c.md": "c",
	})
	var out bytes.Buffer
	opts := testOptions(cfg, &out)
	if err := Run(context.Background(), opts...); err != nil {
		t.Fatal(err)
	}
	out.Reset()

	if err := Verify(context.Background(), opts...); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !strings.Contains(out.String(), "3 documents checked") {
		t.Errorf("unexpected output: %s", out.String())
	}
}

func TestVerify_ReportsFindings(t *testing.T) {
	cfg := testConfig(t, nil)
	dest := cfg.Migration.DestinationRoot
	if err := os.MkdirAll(filepath.Join(dest, "quick-notes"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dest, "quick-notes", "x.md"), []byte("---\ntitle: x\n---\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	err := Verify(context.Background(), testOptions(cfg, &out)...)
	if !errors.Is(err, ErrVerifyFailed) {
		t.Fatalf("err = %v, want ErrVerifyFailed", err)
	}
	if !strings.Contains(out.String(), "quick-notes/x.md") {
		t.Errorf("findings should name the document:\n%s", out.String())
	}
}

func TestRestore_LatestSnapshot(t *testing.T) {
	cfg := testConfig(t, map[string]string{"learn/x.md": "first"})
	var out bytes.Buffer
	opts := testOptions(cfg, &out)
	if err := Run(context.Background(), opts...); err != nil {
		t.Fatal(err)
	}
	firstRun := testutil.ReadFile(t, cfg.Migration.DestinationRoot, "blog/x.md")

	if err := os.WriteFile(filepath.Join(cfg.Migration.SourceRoot, "learn", "x.md"), []byte("second"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Run(context.Background(), opts...); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ReadFile(t, cfg.Migration.DestinationRoot, "blog/x.md"); got == firstRun {
		t.Fatal("second run should have changed the document")
	}

	if err := Restore(context.Background(), "", opts...); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := testutil.ReadFile(t, cfg.Migration.DestinationRoot, "blog/x.md"); got != firstRun {
		t.Errorf("restored content = %q, want %q", got, firstRun)
	}
}

func TestRestore_NoSnapshot(t *testing.T) {
	cfg := testConfig(t, nil)
	err := Restore(context.Background(), "", testOptions(cfg, io.Discard)...)
	if err == nil {
		t.Fatal("expected error without snapshots")
	}
}

func TestNewLogger_FormatSelection(t *testing.T) {
	tests := []struct {
		format   string
		wantJSON bool
	}{
		{LogFormatJSON, true},
		{LogFormatText, false},
		{LogFormatAuto, true}, // a regular file is not a terminal
	}
	for _, tt := range tests {
		f, err := os.CreateTemp(t.TempDir(), "log")
		if err != nil {
			t.Fatal(err)
		}
		logger := newLogger(ApplicationConfig{LogLevel: slog.LevelInfo, LogFormat: tt.format}, f)
		logger.Info("hello")
		f.Close()

		data, err := os.ReadFile(f.Name())
		if err != nil {
			t.Fatal(err)
		}
		isJSON := strings.HasPrefix(string(data), "{")
		if isJSON != tt.wantJSON {
			t.Errorf("format %q: output %q", tt.format, data)
		}
	}
}

func TestRenderReport_Dangling(t *testing.T) {
	rep := &migrate.Report{
		Phase:     migrate.PhaseDone,
		Documents: 1200,
		Dangling:  []linkgraph.Dangling{{Target: "ghost", Sources: []string{"a.md", "b.md"}}},
	}
	out := renderReport(rep)
	for _, want := range []string{"1,200", "ghost", "a.md, b.md"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}
