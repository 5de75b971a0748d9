package tournamentdb

import "errors"

// Sentinel errors for the repository layer.
var (
	// ErrNotFound indicates the tournament does not exist or is not in one of the
	// requested statuses.
	ErrNotFound = errors.New("tournament not found")

	// ErrNoRowsAffected indicates an UPDATE/DELETE matched no rows.
	ErrNoRowsAffected = errors.New("no rows affected")

	// ErrLastHost indicates a removal would leave the tournament without hosts.
	ErrLastHost = errors.New("cannot remove the last host")
)
