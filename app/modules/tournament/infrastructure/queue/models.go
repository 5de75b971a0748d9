package tournamentqueue

import (
	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
)

// TopCutSpawnJob creates the top cut of a tournament that just completed.
type TopCutSpawnJob struct {
	TournamentID tournamentdomain.TournamentID `json:"tournament_id"`
}

// Kind returns the job type identifier for River
func (TopCutSpawnJob) Kind() string { return "top_cut_spawn" }

// IntentSweepJob reports saga intents that stopped progressing.
type IntentSweepJob struct{}

// Kind returns the job type identifier for River
func (IntentSweepJob) Kind() string { return "intent_sweep" }

// JobInfo describes a job row for a tournament.
type JobInfo struct {
	ID           int64  `json:"id"`
	Kind         string `json:"kind"`
	TournamentID string `json:"tournament_id"`
	State        string `json:"state"`
	CreatedAt    string `json:"created_at"`
	Attempt      int    `json:"attempt"`
	MaxAttempts  int    `json:"max_attempts"`
}
