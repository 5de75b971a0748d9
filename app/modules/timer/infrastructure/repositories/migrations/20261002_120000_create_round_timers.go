package migrations

import (
	"context"
	"fmt"

	timerdb "github.com/Black-And-White-Club/tourney-bot/app/modules/timer/infrastructure/repositories"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Creating round_timers table...")
			if _, err := db.NewCreateTable().Model((*timerdb.RoundTimer)(nil)).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("failed to create round_timers table: %w", err)
			}
			if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_round_timers_tournament ON round_timers (tournament_id);`); err != nil {
				return fmt.Errorf("failed to index round_timers: %w", err)
			}
			fmt.Println("round_timers table created successfully!")
			return nil
		},
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Dropping round_timers table...")
			if _, err := db.NewDropTable().Model((*timerdb.RoundTimer)(nil)).IfExists().Cascade().Exec(ctx); err != nil {
				return fmt.Errorf("failed to drop round_timers table: %w", err)
			}
			fmt.Println("round_timers table dropped successfully!")
			return nil
		},
	)
}
