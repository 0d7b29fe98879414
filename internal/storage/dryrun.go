package storage

import (
	"log/slog"
	"os"
)

// DryRun is a Writer that logs intended mutations instead of performing them.
type DryRun struct {
	logger *slog.Logger
}

// NewDryRun returns a Writer whose operations only log.
func NewDryRun(logger *slog.Logger) *DryRun {
	return &DryRun{logger: logger}
}

// Write logs the intended write.
func (d *DryRun) Write(path string, content []byte) error {
	d.logger.Info("dry-run: write", slog.String("path", path), slog.Int("bytes", len(content)))
	return nil
}

// CopyFrom logs the intended copy and reports the source size.
func (d *DryRun) CopyFrom(srcAbs, path string) (int64, error) {
	info, err := os.Stat(srcAbs)
	if err != nil {
		return 0, err
	}
	d.logger.Info("dry-run: copy", slog.String("src", srcAbs), slog.String("path", path))
	return info.Size(), nil
}

// MkdirAll logs the intended directory creation.
func (d *DryRun) MkdirAll(dir string) error {
	d.logger.Debug("dry-run: mkdir", slog.String("path", dir))
	return nil
}
