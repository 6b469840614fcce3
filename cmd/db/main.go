package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/ora-civic/ora/internal/database"
	"github.com/ora-civic/ora/internal/database/migrations"
	"github.com/ora-civic/ora/internal/setup/config"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// ErrNameRequired is returned when create is called without a migration name.
var ErrNameRequired = errors.New("expected exactly one migration name")

func main() {
	if err := run(); err != nil {
		log.Printf("db: %v", err)
		os.Exit(1)
	}
}

func run() error {
	db, tool, err := openTool()
	if err != nil {
		return err
	}
	defer db.Close()

	return newCommand(tool).Run(context.Background(), os.Args)
}

// migrationTool runs schema changes for the ledger, post and comment tables.
type migrationTool struct {
	migrator *migrate.Migrator
	logger   *zap.Logger
}

// newCommand builds the command tree around a migration tool.
func newCommand(tool *migrationTool) *cli.Command {
	return &cli.Command{
		Name:  "db",
		Usage: "Manage the ORA PostgreSQL schema",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Create the bun_migrations bookkeeping tables",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return tool.migrator.Init(ctx)
				},
			},
			{
				Name:   "migrate",
				Usage:  "Apply every migration not yet recorded",
				Action: tool.up,
			},
			{
				Name:   "rollback",
				Usage:  "Revert the most recently applied group",
				Action: tool.down,
			},
			{
				Name:   "status",
				Usage:  "Print applied and pending migrations",
				Action: tool.status,
			},
			{
				Name:      "create",
				Usage:     "Scaffold a Go migration in the current directory",
				ArgsUsage: "NAME",
				Action:    tool.create,
			},
		},
	}
}

// locked runs fn while holding the migration table lock.
func (t *migrationTool) locked(ctx context.Context, fn func() error) error {
	if err := t.migrator.Lock(ctx); err != nil {
		return fmt.Errorf("failed to lock migrations: %w", err)
	}
	defer func() {
		if err := t.migrator.Unlock(ctx); err != nil {
			t.logger.Warn("Failed to release migration lock", zap.Error(err))
		}
	}()

	return fn()
}

func (t *migrationTool) up(ctx context.Context, _ *cli.Command) error {
	return t.locked(ctx, func() error {
		group, err := t.migrator.Migrate(ctx)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}

		if group.IsZero() {
			t.logger.Info("Schema already current")
			return nil
		}

		t.logger.Info("Applied migrations", zap.String("group", group.String()))
		return nil
	})
}

func (t *migrationTool) down(ctx context.Context, _ *cli.Command) error {
	return t.locked(ctx, func() error {
		group, err := t.migrator.Rollback(ctx)
		if err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}

		if group.IsZero() {
			t.logger.Info("Nothing applied, nothing reverted")
			return nil
		}

		t.logger.Info("Reverted migrations", zap.String("group", group.String()))
		return nil
	})
}

func (t *migrationTool) status(ctx context.Context, _ *cli.Command) error {
	ms, err := t.migrator.MigrationsWithStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}

	t.logger.Info("Schema status",
		zap.String("known", ms.String()),
		zap.String("pending", ms.Unapplied().String()),
		zap.String("latest_group", ms.LastGroup().String()))
	return nil
}

func (t *migrationTool) create(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 1 {
		return ErrNameRequired
	}

	mf, err := t.migrator.CreateGoMigration(ctx, c.Args().First())
	if err != nil {
		return fmt.Errorf("failed to scaffold migration: %w", err)
	}

	t.logger.Info("Scaffolded migration", zap.String("name", mf.Name), zap.String("path", mf.Path))
	return nil
}

// openTool loads the config and opens the database without pinging it, so
// create works offline.
func openTool() (*bun.DB, *migrationTool, error) {
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db := database.Open(&cfg.PostgreSQL, logger)

	return db, &migrationTool{
		migrator: migrate.NewMigrator(db, migrations.Migrations, migrate.WithMarkAppliedOnSuccess(true)),
		logger:   logger.Named("db"),
	}, nil
}
