package migrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()

// Options keep this module's migration history apart from the other modules.
var Options = []migrate.MigratorOption{
	migrate.WithTableName("timer_migrations"),
	migrate.WithLocksTableName("timer_migration_locks"),
}

func init() {
	if err := Migrations.DiscoverCaller(); err != nil {
		panic(err)
	}
}
