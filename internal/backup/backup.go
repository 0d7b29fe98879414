// Package backup snapshots the destination tree before a migration
// overwrites it, and restores snapshots.
package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// SnapshotLayout names snapshot directories under the backup root.
const SnapshotLayout = "20060102-150405"

// ErrNoSnapshot is returned by Latest when the backup root holds none.
var ErrNoSnapshot = errors.New("backup: no snapshot found")

// Snapshot copies destRoot into a new timestamped directory under
// backupRoot and returns its path. When destRoot does not exist there is
// nothing to protect and Snapshot returns "" with a nil error.
func Snapshot(ctx context.Context, destRoot, backupRoot string, now time.Time) (string, error) {
	info, err := os.Stat(destRoot)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("backup: stat %s: %w", destRoot, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("backup: destination is not a directory: %s", destRoot)
	}

	if err := os.MkdirAll(backupRoot, 0o755); err != nil {
		return "", fmt.Errorf("backup: create root: %w", err)
	}
	dir, err := uniqueDir(backupRoot, now.Format(SnapshotLayout))
	if err != nil {
		return "", err
	}
	if err := copyTree(ctx, destRoot, dir); err != nil {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("backup: snapshot %s: %w", destRoot, err)
	}
	return dir, nil
}

// uniqueDir creates and returns backupRoot/name, suffixing -1, -2, ... when
// a snapshot from the same second already exists.
func uniqueDir(backupRoot, name string) (string, error) {
	for i := 0; i < 100; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s-%d", name, i)
		}
		dir := filepath.Join(backupRoot, candidate)
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("backup: create snapshot dir: %w", err)
		}
	}
	return "", fmt.Errorf("backup: too many snapshots named %s", name)
}

// Latest returns the most recent snapshot directory under backupRoot.
// Snapshots from the same second are ordered by their numeric suffix.
func Latest(backupRoot string) (string, error) {
	entries, err := os.ReadDir(backupRoot)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoSnapshot
	}
	if err != nil {
		return "", fmt.Errorf("backup: read root: %w", err)
	}

	var best string
	var bestAt time.Time
	bestSeq := -1
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		at, seq, ok := parseSnapshotName(e.Name())
		if !ok {
			continue
		}
		if bestSeq < 0 || at.After(bestAt) || (at.Equal(bestAt) && seq > bestSeq) {
			best, bestAt, bestSeq = e.Name(), at, seq
		}
	}
	if best == "" {
		return "", ErrNoSnapshot
	}
	return filepath.Join(backupRoot, best), nil
}

// parseSnapshotName splits "<timestamp>" or "<timestamp>-<n>" as written by
// uniqueDir.
func parseSnapshotName(name string) (time.Time, int, bool) {
	if len(name) < len(SnapshotLayout) {
		return time.Time{}, 0, false
	}
	at, err := time.Parse(SnapshotLayout, name[:len(SnapshotLayout)])
	if err != nil {
		return time.Time{}, 0, false
	}
	rest := name[len(SnapshotLayout):]
	if rest == "" {
		return at, 0, true
	}
	if rest[0] != '-' {
		return time.Time{}, 0, false
	}
	seq, err := strconv.Atoi(rest[1:])
	if err != nil || seq < 1 {
		return time.Time{}, 0, false
	}
	return at, seq, true
}

// Restore replaces destRoot with the contents of snapshotDir. The snapshot is
// first copied next to destRoot so a failed copy leaves destRoot untouched.
func Restore(ctx context.Context, snapshotDir, destRoot string) error {
	info, err := os.Stat(snapshotDir)
	if err != nil {
		return fmt.Errorf("backup: stat snapshot: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("backup: snapshot is not a directory: %s", snapshotDir)
	}

	staging := destRoot + ".restore-tmp"
	if err := os.RemoveAll(staging); err != nil {
		return fmt.Errorf("backup: clear staging: %w", err)
	}
	if err := copyTree(ctx, snapshotDir, staging); err != nil {
		_ = os.RemoveAll(staging)
		return fmt.Errorf("backup: stage restore: %w", err)
	}

	old := destRoot + ".restore-old"
	_ = os.RemoveAll(old)
	hadDest := true
	if err := os.Rename(destRoot, old); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			_ = os.RemoveAll(staging)
			return fmt.Errorf("backup: move current destination aside: %w", err)
		}
		hadDest = false
	}
	if err := os.Rename(staging, destRoot); err != nil {
		if hadDest {
			_ = os.Rename(old, destRoot)
		}
		return fmt.Errorf("backup: swap in snapshot: %w", err)
	}
	if hadDest {
		if err := os.RemoveAll(old); err != nil {
			return fmt.Errorf("backup: remove replaced destination: %w", err)
		}
	}
	return nil
}

// copyTree recursively copies src into dst, preserving file modes.
func copyTree(ctx context.Context, src, dst string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		case info.Mode().IsRegular():
			return copyFile(p, target, info.Mode().Perm())
		default:
			// Symlinks and special files are not part of a content tree.
			return nil
		}
	})
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
