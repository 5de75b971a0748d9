package timerdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
	"github.com/uptrace/bun"
)

// TimerDBImpl is the bun implementation of Repository.
type TimerDBImpl struct {
	DB *bun.DB
}

var _ Repository = (*TimerDBImpl)(nil)

func (r *TimerDBImpl) idb(db bun.IDB) bun.IDB {
	if db == nil {
		return r.DB
	}
	return db
}

func (r *TimerDBImpl) CreateTimer(ctx context.Context, db bun.IDB, timer *RoundTimer) error {
	err := r.idb(db).NewInsert().
		Model(timer).
		ExcludeColumn("id").
		Returning("id").
		Scan(ctx, &timer.ID)
	if err != nil {
		return fmt.Errorf("failed to create round timer: %w", err)
	}
	return nil
}

func (r *TimerDBImpl) GetTimer(ctx context.Context, db bun.IDB, id int64) (*RoundTimer, error) {
	timer := new(RoundTimer)
	err := r.idb(db).NewSelect().Model(timer).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch round timer: %w", err)
	}
	return timer, nil
}

func (r *TimerDBImpl) ListTimers(ctx context.Context, db bun.IDB) ([]RoundTimer, error) {
	var timers []RoundTimer
	if err := r.idb(db).NewSelect().Model(&timers).Order("end_at ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list round timers: %w", err)
	}
	return timers, nil
}

func (r *TimerDBImpl) ListTournamentTimers(ctx context.Context, db bun.IDB, tournamentID tournamentdomain.TournamentID) ([]RoundTimer, error) {
	var timers []RoundTimer
	err := r.idb(db).NewSelect().
		Model(&timers).
		Where("tournament_id = ?", tournamentID).
		Order("end_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list round timers for tournament %s: %w", tournamentID, err)
	}
	return timers, nil
}

func (r *TimerDBImpl) DeleteTimer(ctx context.Context, db bun.IDB, id int64) error {
	if _, err := r.idb(db).NewDelete().Model((*RoundTimer)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete round timer %d: %w", id, err)
	}
	return nil
}
