package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/kenaz-migrate/internal/assets"
	"github.com/starford/kenaz-migrate/internal/frontmatter"
	"github.com/starford/kenaz-migrate/internal/storage"
	"github.com/starford/kenaz-migrate/internal/transform"
)

// Log formats.
const (
	LogFormatAuto = "auto"
	LogFormatJSON = "json"
	LogFormatText = "text"
)

var extensionRe = regexp.MustCompile(`^\.[A-Za-z0-9]+$`)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig    `yaml:"app"`
	Migration MigrationConfig      `yaml:"migration"`
	Defaults  frontmatter.Defaults `yaml:"defaults"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Migration.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(&c.Defaults,
		validation.Field(&c.Defaults.QuickNoteCategory, validation.Required),
		validation.Field(&c.Defaults.Difficulty, validation.Required),
		validation.Field(&c.Defaults.CollectionCategory, validation.Required),
		validation.Field(&c.Defaults.CollectionType, validation.Required),
		validation.Field(&c.Defaults.CollectionSource, validation.Required),
	)
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = LogFormatAuto
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatAuto, LogFormatJSON, LogFormatText)),
	)
}

// MigrationConfig holds the paths and knobs of a migration run.
type MigrationConfig struct {
	SourceRoot      string   `yaml:"source_root"`
	DestinationRoot string   `yaml:"destination_root"`
	AssetsDir       string   `yaml:"assets_dir"`
	BackupDir       string   `yaml:"backup_dir"`
	AssetsLinkPath  string   `yaml:"assets_link_path"`
	Workers         int      `yaml:"workers"`
	Ignore          []string `yaml:"ignore"`
	ImageExtensions []string `yaml:"image_extensions"`
	DryRun          bool     `yaml:"dry_run"`
}

// Validate validates the migration configuration.
func (c *MigrationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.SourceRoot, validation.Required),
		validation.Field(&c.DestinationRoot, validation.Required),
		validation.Field(&c.AssetsDir, validation.Required),
		validation.Field(&c.BackupDir, validation.Required),
		validation.Field(&c.AssetsLinkPath, validation.Required),
		validation.Field(&c.Workers, validation.Required, validation.Min(1), validation.Max(64)),
		validation.Field(&c.ImageExtensions, validation.Required, validation.Each(validation.Match(extensionRe))),
	); err != nil {
		return err
	}

	src, dst, bak := clean(c.SourceRoot), clean(c.DestinationRoot), clean(c.BackupDir)
	switch {
	case src == dst:
		return fmt.Errorf("migration: source_root and destination_root are the same: %s", src)
	case within(dst, src):
		return fmt.Errorf("migration: destination_root %s is inside source_root %s", dst, src)
	case bak == dst || within(bak, dst):
		return fmt.Errorf("migration: backup_dir %s must be outside destination_root %s", bak, dst)
	case bak == src || within(bak, src):
		return fmt.Errorf("migration: backup_dir %s must be outside source_root %s", bak, src)
	}
	return nil
}

func clean(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// within reports whether child lies strictly below parent.
func within(child, parent string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatAuto,
		},
		Migration: MigrationConfig{
			SourceRoot:      "./obsidian-vault",
			DestinationRoot: "./src/content",
			AssetsDir:       "./src/content/assets",
			BackupDir:       "./backup",
			AssetsLinkPath:  transform.DefaultAssetsLinkPath,
			Workers:         1,
			Ignore:          append([]string(nil), storage.DefaultIgnore...),
			ImageExtensions: append([]string(nil), assets.DefaultExtensions...),
		},
		Defaults: frontmatter.NewDefaults(),
	}
}
