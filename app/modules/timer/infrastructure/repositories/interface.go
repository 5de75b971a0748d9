package timerdb

import (
	"context"

	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
	"github.com/uptrace/bun"
)

// Repository defines the contract for round timer persistence.
// A nil db runs the call on the repository's own connection.
//
// Error semantics:
//   - ErrNotFound: Record does not exist (GetTimer)
//   - Other errors: Infrastructure failures (DB connection, query errors)
type Repository interface {
	// CreateTimer inserts the record and fills in its generated ID.
	CreateTimer(ctx context.Context, db bun.IDB, timer *RoundTimer) error

	// GetTimer retrieves a timer by ID.
	GetTimer(ctx context.Context, db bun.IDB, id int64) (*RoundTimer, error)

	// ListTimers returns every stored timer ordered by end time.
	ListTimers(ctx context.Context, db bun.IDB) ([]RoundTimer, error)

	// ListTournamentTimers returns the timers of one tournament.
	ListTournamentTimers(ctx context.Context, db bun.IDB, tournamentID tournamentdomain.TournamentID) ([]RoundTimer, error)

	// DeleteTimer removes a timer. Idempotent: deleting a missing timer is not an error.
	DeleteTimer(ctx context.Context, db bun.IDB, id int64) error
}
