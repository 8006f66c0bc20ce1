package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type options struct {
	databaseURL string
	source      string
}

func main() {
	_ = godotenv.Load()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if err := newRootCommand(logger).Execute(); err != nil {
		logger.Error("migrate failed", "error", err)
		os.Exit(1)
	}
}

func newRootCommand(logger *slog.Logger) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply lampd schema migrations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if opts.databaseURL == "" {
				return errors.New("database URL is required (--database or POSTGRES_URL)")
			}
			return nil
		},
	}

	source := os.Getenv("MIGRATIONS_PATH")
	if source == "" {
		source = "file://migrations"
	}
	cmd.PersistentFlags().StringVar(&opts.databaseURL, "database", os.Getenv("POSTGRES_URL"), "postgres connection URL")
	cmd.PersistentFlags().StringVar(&opts.source, "path", source, "migrations source URL")

	cmd.AddCommand(
		newUpCommand(opts, logger),
		newDownCommand(opts, logger),
		newVersionCommand(opts, logger),
		newForceCommand(opts, logger),
	)
	return cmd
}

func open(opts *options) (*migrate.Migrate, error) {
	m, err := migrate.New(opts.source, opts.databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return m, nil
}

func newUpCommand(opts *options, logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			m, err := open(opts)
			if err != nil {
				return err
			}
			defer func() { _, _ = m.Close() }()

			err = m.Up()
			if errors.Is(err, migrate.ErrNoChange) {
				logger.Info("no pending migrations")
				return nil
			}
			if err != nil {
				return fmt.Errorf("migration up: %w", err)
			}
			logger.Info("migrations applied successfully")
			return nil
		},
	}
}

func newDownCommand(opts *options, logger *slog.Logger) *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if steps < 1 {
				return fmt.Errorf("--steps must be at least 1, got %d", steps)
			}
			m, err := open(opts)
			if err != nil {
				return err
			}
			defer func() { _, _ = m.Close() }()

			err = m.Steps(-steps)
			if errors.Is(err, migrate.ErrNoChange) {
				logger.Info("no migrations to rollback")
				return nil
			}
			if err != nil {
				return fmt.Errorf("migration down: %w", err)
			}
			logger.Info("migrations rolled back successfully", slog.Int("steps", steps))
			return nil
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	return cmd
}

func newVersionCommand(opts *options, logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the applied migration version",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			m, err := open(opts)
			if err != nil {
				return err
			}
			defer func() { _, _ = m.Close() }()

			version, dirty, err := m.Version()
			if errors.Is(err, migrate.ErrNilVersion) {
				logger.Info("no migrations applied yet")
				return nil
			}
			if err != nil {
				return fmt.Errorf("get version: %w", err)
			}
			logger.Info("current migration version", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
			return nil
		},
	}
}

func newForceCommand(opts *options, logger *slog.Logger) *cobra.Command {
	var version int

	cmd := &cobra.Command{
		Use:   "force",
		Short: "Set the version without running migrations, clearing the dirty flag",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			m, err := open(opts)
			if err != nil {
				return err
			}
			defer func() { _, _ = m.Close() }()

			if err := m.Force(version); err != nil {
				return fmt.Errorf("force version %d: %w", version, err)
			}
			logger.Info("migration version forced", slog.Int("version", version))
			return nil
		},
	}
	cmd.Flags().IntVar(&version, "version", 0, "version to record")
	_ = cmd.MarkFlagRequired("version")
	return cmd
}
