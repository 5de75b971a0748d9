package tournamentdomain

import "time"

// Intent records a multi-step operation that spans the bracket service and
// local persistence. It is written before the first external call and removed
// after the last, so a leftover intent marks a tournament that may have diverged.
type Intent struct {
	ID           string       `json:"id"`
	TournamentID TournamentID `json:"tournament_id"`
	Operation    string       `json:"operation"`
	Step         string       `json:"step"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Stale reports whether the intent has not progressed for longer than age.
func (i Intent) Stale(now time.Time, age time.Duration) bool {
	return now.Sub(i.UpdatedAt) > age
}
