package migrate

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/starford/kenaz-migrate/internal/apperr"
)

// Lock takes the exclusive lock guarding destRoot, a "<destRoot>.lock" file
// beside it. The returned func releases it.
func Lock(destRoot string) (func() error, error) {
	dest, err := filepath.Abs(destRoot)
	if err != nil {
		return nil, fmt.Errorf("migrate: resolve destination: %w", err)
	}
	lockPath := dest + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("migrate: create lock dir: %w", err)
	}

	fl := flock.New(lockPath)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("migrate: acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("migrate: %s: %w", lockPath, apperr.ErrLocked)
	}
	return fl.Unlock, nil
}
