package migrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()

// Options keep this module's migration history apart from the other modules.
var Options = []migrate.MigratorOption{
	migrate.WithTableName("tournament_migrations"),
	migrate.WithLocksTableName("tournament_migration_locks"),
}

func init() {
	if err := Migrations.DiscoverCaller(); err != nil {
		panic(err)
	}
}
