package timerservice

import (
	"context"
	"time"

	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
)

// Messenger is the part of the chat adapter the countdown needs.
type Messenger interface {
	SendMessage(ctx context.Context, channel tournamentdomain.ChannelID, content string) (tournamentdomain.MessageID, error)
	EditMessage(ctx context.Context, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID, content string) error
}

// LiveCheck reports whether a tournament may still own running timers.
type LiveCheck func(ctx context.Context, id tournamentdomain.TournamentID) (bool, error)

// Service manages round countdowns.
type Service interface {
	CreateTimer(ctx context.Context, end time.Time, channel tournamentdomain.ChannelID, finalMessage string, interval time.Duration, tournamentID tournamentdomain.TournamentID) (*Timer, error)
	CancelTournament(ctx context.Context, tournamentID tournamentdomain.TournamentID) error
	LoadAll(ctx context.Context, live LiveCheck) (int, error)
	Active(tournamentID tournamentdomain.TournamentID) int
	Stop()
}
