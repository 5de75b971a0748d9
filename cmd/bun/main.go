package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"

	"github.com/Black-And-White-Club/tourney-bot/config"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"

	timermigrations "github.com/Black-And-White-Club/tourney-bot/app/modules/timer/infrastructure/repositories/migrations"
	tournamentmigrations "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/infrastructure/repositories/migrations"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	pgdb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.DSN)))
	db := bun.NewDB(pgdb, pgdialect.New())
	defer db.Close()

	migrators := []moduleMigrator{
		{name: "tournament", migrator: migrate.NewMigrator(db, tournamentmigrations.Migrations, tournamentmigrations.Options...)},
		{name: "timer", migrator: migrate.NewMigrator(db, timermigrations.Migrations, timermigrations.Options...)},
	}

	cliApp := &cli.App{
		Name: "bun",
		Commands: []*cli.Command{
			newMultiModuleDBCommand(migrators),
			newRiverCommand(cfg.Postgres.DSN),
		},
	}

	if err := cliApp.Run(append([]string{os.Args[0]}, flag.Args()...)); err != nil {
		log.Fatal(err)
	}
}

// newRiverCommand manages the job queue tables, which live outside the bun migrators.
func newRiverCommand(dsn string) *cli.Command {
	withMigrator := func(ctx context.Context, fn func(*rivermigrate.Migrator[pgx.Tx]) error) error {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return fmt.Errorf("failed to create pgx pool: %w", err)
		}
		defer pool.Close()
		migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
		if err != nil {
			return fmt.Errorf("failed to create river migrator: %w", err)
		}
		return fn(migrator)
	}

	return &cli.Command{
		Name:  "river",
		Usage: "job queue migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply river migrations",
				Action: func(c *cli.Context) error {
					return withMigrator(c.Context, func(m *rivermigrate.Migrator[pgx.Tx]) error {
						res, err := m.Migrate(c.Context, rivermigrate.DirectionUp, nil)
						if err != nil {
							return err
						}
						for _, v := range res.Versions {
							fmt.Printf("Applied river migration %d\n", v.Version)
						}
						return nil
					})
				},
			},
			{
				Name:  "down",
				Usage: "roll back one river migration",
				Action: func(c *cli.Context) error {
					return withMigrator(c.Context, func(m *rivermigrate.Migrator[pgx.Tx]) error {
						res, err := m.Migrate(c.Context, rivermigrate.DirectionDown, &rivermigrate.MigrateOpts{MaxSteps: 1})
						if err != nil {
							return err
						}
						for _, v := range res.Versions {
							fmt.Printf("Rolled back river migration %d\n", v.Version)
						}
						return nil
					})
				},
			},
		},
	}
}

// moduleMigrator pairs a module with its bun migrator. Migrations run in
// slice order and roll back in reverse.
type moduleMigrator struct {
	name     string
	migrator *migrate.Migrator
}

// selectModules narrows migrators to the --module flag when it is set.
func selectModules(c *cli.Context, migrators []moduleMigrator) ([]moduleMigrator, error) {
	only := c.String("module")
	if only == "" {
		return migrators, nil
	}
	for _, m := range migrators {
		if m.name == only {
			return []moduleMigrator{m}, nil
		}
	}
	return nil, fmt.Errorf("unknown module %q", only)
}

func findModule(migrators []moduleMigrator, name string) (*migrate.Migrator, error) {
	for _, m := range migrators {
		if m.name == name {
			return m.migrator, nil
		}
	}
	return nil, fmt.Errorf("unknown module %q", name)
}

func newMultiModuleDBCommand(migrators []moduleMigrator) *cli.Command {
	moduleFlag := &cli.StringFlag{Name: "module", Usage: "limit the command to one module"}

	forEach := func(c *cli.Context, reverse bool, fn func(m moduleMigrator) error) error {
		selected, err := selectModules(c, migrators)
		if err != nil {
			return err
		}
		if reverse {
			selected = slices.Clone(selected)
			slices.Reverse(selected)
		}
		for _, m := range selected {
			if err := fn(m); err != nil {
				return fmt.Errorf("module %s: %w", m.name, err)
			}
		}
		return nil
	}

	return &cli.Command{
		Name:  "migrate",
		Usage: "database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create migration tables",
				Flags: []cli.Flag{moduleFlag},
				Action: func(c *cli.Context) error {
					return forEach(c, false, func(m moduleMigrator) error {
						fmt.Printf("Initializing migrations for %s\n", m.name)
						return m.migrator.Init(c.Context)
					})
				},
			},
			{
				Name:  "migrate",
				Usage: "apply pending migrations",
				Flags: []cli.Flag{moduleFlag},
				Action: func(c *cli.Context) error {
					return forEach(c, false, func(m moduleMigrator) error {
						if err := m.migrator.Lock(c.Context); err != nil {
							return err
						}
						defer m.migrator.Unlock(c.Context) //nolint:errcheck

						group, err := m.migrator.Migrate(c.Context)
						if err != nil {
							return err
						}
						if group.IsZero() {
							fmt.Printf("%s: up to date\n", m.name)
							return nil
						}
						fmt.Printf("%s: migrated to %s\n", m.name, group)
						return nil
					})
				},
			},
			{
				Name:  "rollback",
				Usage: "roll back the last migration group of each module",
				Flags: []cli.Flag{moduleFlag},
				Action: func(c *cli.Context) error {
					return forEach(c, true, func(m moduleMigrator) error {
						if err := m.migrator.Lock(c.Context); err != nil {
							return err
						}
						defer m.migrator.Unlock(c.Context) //nolint:errcheck

						group, err := m.migrator.Rollback(c.Context)
						if err != nil {
							return err
						}
						if group.IsZero() {
							fmt.Printf("%s: nothing to roll back\n", m.name)
							return nil
						}
						fmt.Printf("%s: rolled back %s\n", m.name, group)
						return nil
					})
				},
			},
			{
				Name:      "create_go",
				Usage:     "create a Go migration",
				ArgsUsage: "<module> <name...>",
				Action: func(c *cli.Context) error {
					migrator, err := findModule(migrators, c.Args().First())
					if err != nil {
						return err
					}
					mf, err := migrator.CreateGoMigration(c.Context, strings.Join(c.Args().Tail(), "_"))
					if err != nil {
						return err
					}
					fmt.Printf("Created %s (%s)\n", mf.Name, mf.Path)
					return nil
				},
			},
			{
				Name:      "create_sql",
				Usage:     "create up and down SQL migrations",
				ArgsUsage: "<module> <name...>",
				Action: func(c *cli.Context) error {
					migrator, err := findModule(migrators, c.Args().First())
					if err != nil {
						return err
					}
					files, err := migrator.CreateSQLMigrations(c.Context, strings.Join(c.Args().Tail(), "_"))
					if err != nil {
						return err
					}
					for _, mf := range files {
						fmt.Printf("Created %s (%s)\n", mf.Name, mf.Path)
					}
					return nil
				},
			},
			{
				Name:  "status",
				Usage: "print migration status",
				Flags: []cli.Flag{moduleFlag},
				Action: func(c *cli.Context) error {
					return forEach(c, false, func(m moduleMigrator) error {
						ms, err := m.migrator.MigrationsWithStatus(c.Context)
						if err != nil {
							return err
						}
						fmt.Printf("%s\n  applied:   %s\n  unapplied: %s\n", m.name, ms.Applied(), ms.Unapplied())
						return nil
					})
				},
			},
		},
	}
}
