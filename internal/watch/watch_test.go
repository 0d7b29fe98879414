package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// start runs a watcher on root and returns a run counter plus a stop func
// that waits for the watcher to exit.
func start(t *testing.T, root string, opts ...Option) (*atomic.Int32, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32
	done := make(chan error, 1)

	opts = append([]Option{WithDebounce(50 * time.Millisecond), WithLogger(quietLogger())}, opts...)
	w := New(root, opts...)
	go func() {
		done <- w.Run(ctx, func(context.Context) error {
			runs.Add(1)
			return nil
		})
	}()
	// Give fsnotify time to register the initial directories.
	time.Sleep(100 * time.Millisecond)

	return &runs, func() {
		cancel()
		require.NoError(t, <-done)
	}
}

func TestWatch_RerunsOnChange(t *testing.T) {
	root := t.TempDir()
	runs, stop := start(t, root)
	defer stop()

	require.NoError(t, os.WriteFile(filepath.Join(root, "note.md"), []byte("x"), 0o644))
	require.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
}

func TestWatch_DebouncesBursts(t *testing.T) {
	root := t.TempDir()
	runs, stop := start(t, root, WithDebounce(300*time.Millisecond))
	defer stop()

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, "note.md"), []byte{byte('a' + i)}, 0o644))
	}
	require.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(500 * time.Millisecond)
	require.Equal(t, int32(1), runs.Load())
}

func TestWatch_NewDirectoriesAreWatched(t *testing.T) {
	root := t.TempDir()
	runs, stop := start(t, root)
	defer stop()

	sub := filepath.Join(root, "learn")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	before := runs.Load()

	require.NoError(t, os.WriteFile(filepath.Join(sub, "x.md"), []byte("x"), 0o644))
	require.Eventually(t, func() bool { return runs.Load() > before }, 3*time.Second, 20*time.Millisecond)
}

func TestWatch_IgnoredPathsDoNotTrigger(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".obsidian"), 0o755))
	runs, stop := start(t, root, WithIgnore("**/.*"))
	defer stop()

	require.NoError(t, os.WriteFile(filepath.Join(root, ".obsidian", "workspace.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".hidden.md"), []byte("x"), 0o644))
	time.Sleep(300 * time.Millisecond)
	require.Equal(t, int32(0), runs.Load())
}

func TestWatch_StopsOnCancel(t *testing.T) {
	root := t.TempDir()
	_, stop := start(t, root)
	stop()
}
