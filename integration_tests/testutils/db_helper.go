package testutils

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	timermigrations "github.com/Black-And-White-Club/tourney-bot/app/modules/timer/infrastructure/repositories/migrations"
	tournamentmigrations "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/infrastructure/repositories/migrations"
)

// appTables lists every table the modules write to.
var appTables = []string{"participants", "register_messages", "tournaments", "round_timers"}

// runMigrations applies the River schema and every module migration.
func runMigrations(ctx context.Context, db *bun.DB, dsn string) error {
	if err := runRiverMigrations(ctx, dsn); err != nil {
		return fmt.Errorf("failed to run River migrations: %w", err)
	}

	modules := []struct {
		name       string
		migrations *migrate.Migrations
		options    []migrate.MigratorOption
	}{
		{"tournament", tournamentmigrations.Migrations, tournamentmigrations.Options},
		{"timer", timermigrations.Migrations, timermigrations.Options},
	}
	for _, mod := range modules {
		migrator := migrate.NewMigrator(db, mod.migrations, mod.options...)
		if err := migrator.Init(ctx); err != nil {
			return fmt.Errorf("failed to init %s migrations: %w", mod.name, err)
		}
		group, err := migrator.Migrate(ctx)
		if err != nil {
			return fmt.Errorf("failed to run %s migrations: %w", mod.name, err)
		}
		if !group.IsZero() {
			log.Printf("Ran %s migrations group #%d", mod.name, group.ID)
		}
	}
	return nil
}

func runRiverMigrations(ctx context.Context, dsn string) error {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool: %w", err)
	}
	defer pool.Close()

	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("failed to create River migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return err
	}
	return nil
}

// CleanupDatabase truncates the module tables and deletes queued jobs.
func CleanupDatabase(ctx context.Context, db *bun.DB) error {
	query := fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(appTables, ", "))
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM river_job"); err != nil {
		return fmt.Errorf("failed to cleanup river jobs: %w", err)
	}
	return nil
}
