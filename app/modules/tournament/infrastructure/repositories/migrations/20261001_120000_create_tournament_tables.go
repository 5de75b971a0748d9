package migrations

import (
	"context"
	"fmt"

	tournamentdb "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/infrastructure/repositories"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
				fmt.Println("Creating tournament tables...")
				models := []any{
					(*tournamentdb.Tournament)(nil),
					(*tournamentdb.Participant)(nil),
					(*tournamentdb.RegisterMessage)(nil),
				}
				for _, model := range models {
					if _, err := tx.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
						return fmt.Errorf("failed to create table for %T: %w", model, err)
					}
				}

				stmts := []string{
					`ALTER TABLE participants ADD CONSTRAINT fk_participants_tournament
						FOREIGN KEY (tournament_id) REFERENCES tournaments (id) ON DELETE CASCADE`,
					`ALTER TABLE register_messages ADD CONSTRAINT fk_register_messages_tournament
						FOREIGN KEY (tournament_id) REFERENCES tournaments (id) ON DELETE CASCADE`,
					`ALTER TABLE tournaments ADD CONSTRAINT chk_tournaments_hosts
						CHECK (cardinality(hosts) >= 1)`,
					// a user may be pending in at most one tournament
					`CREATE UNIQUE INDEX IF NOT EXISTS idx_participants_single_pending
						ON participants (discord_id) WHERE status = 'pending'`,
					`CREATE INDEX IF NOT EXISTS idx_participants_register_message
						ON participants (register_channel_id, register_message_id)`,
					`CREATE INDEX IF NOT EXISTS idx_register_messages_tournament
						ON register_messages (tournament_id)`,
					`CREATE INDEX IF NOT EXISTS idx_tournaments_server_status
						ON tournaments (server_id, status)`,
				}
				for _, stmt := range stmts {
					if _, err := tx.ExecContext(ctx, stmt); err != nil {
						return fmt.Errorf("failed to apply %q: %w", stmt, err)
					}
				}
				fmt.Println("Tournament tables created successfully!")
				return nil
			})
		},
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Dropping tournament tables...")
			for _, model := range []any{
				(*tournamentdb.RegisterMessage)(nil),
				(*tournamentdb.Participant)(nil),
				(*tournamentdb.Tournament)(nil),
			} {
				if _, err := db.NewDropTable().Model(model).IfExists().Cascade().Exec(ctx); err != nil {
					return fmt.Errorf("failed to drop table for %T: %w", model, err)
				}
			}
			fmt.Println("Tournament tables dropped successfully!")
			return nil
		},
	)
}
