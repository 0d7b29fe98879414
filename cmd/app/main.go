package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/kenaz-migrate/internal"
	"github.com/starford/kenaz-migrate/internal/apperr"
	pkgconfig "github.com/starford/kenaz-migrate/pkg/config"
)

// Exit codes.
const (
	exitOK      = 0
	exitGeneral = 1
	exitConfig  = 2
	exitFatalIO = 4
)

var errConfig = errors.New("configuration error")

// loadConfig reads the --config file over the built-in defaults. A missing
// file is not an error.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	found, err := pkgconfig.LoadOptional(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %w", errConfig, err)
	}
	if cmd.Bool("dry-run") {
		cfg.Migration.DryRun = true
	}
	if !found {
		slog.Debug("config file not found, using defaults", slog.String("path", configPath))
	}
	return cfg, nil
}

func withConfig(fn func(ctx context.Context, cmd *cli.Command, opts []internal.Option) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return fn(ctx, cmd, []internal.Option{internal.WithConfig(cfg)})
	}
}

func runMigrate(ctx context.Context, _ *cli.Command, opts []internal.Option) error {
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func runWatch(ctx context.Context, _ *cli.Command, opts []internal.Option) error {
	if err := internal.Watch(ctx, opts...); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	return nil
}

func runRestore(ctx context.Context, cmd *cli.Command, opts []internal.Option) error {
	if err := internal.Restore(ctx, cmd.String("snapshot"), opts...); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	return nil
}

func runVerify(ctx context.Context, _ *cli.Command, opts []internal.Option) error {
	return internal.Verify(ctx, opts...)
}

// exitCode maps an error returned by the command tree to a process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errConfig):
		return exitConfig
	case apperr.IsFatal(err):
		return exitFatalIO
	default:
		return exitGeneral
	}
}

func main() {
	cmd := &cli.Command{
		Name:   "kenaz-migrate",
		Usage:  "Migrate an Obsidian vault into a static site's content collections",
		Action: withConfig(runMigrate),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Log every change without writing anything",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Run the migration once (default)",
				Action: withConfig(runMigrate),
			},
			{
				Name:   "watch",
				Usage:  "Migrate, then migrate again whenever the vault changes",
				Action: withConfig(runWatch),
			},
			{
				Name:   "restore",
				Usage:  "Replace the destination with a backup snapshot",
				Action: withConfig(runRestore),
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "snapshot",
						Usage: "Snapshot directory (default: newest under backup_dir)",
					},
				},
			},
			{
				Name:   "verify",
				Usage:  "Check migrated headers against the content schemas",
				Action: withConfig(runVerify),
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := cmd.Run(ctx, os.Args)
	stop()
	if err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
	}
	os.Exit(exitCode(err))
}
