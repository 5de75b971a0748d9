package tournamentdb

import (
	"context"

	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
	"github.com/uptrace/bun"
)

// ListFilter narrows ListTournaments. Zero values match everything.
type ListFilter struct {
	ServerID tournamentdomain.ServerID
	Statuses []tournamentdomain.Status
}

// Repository defines the contract for tournament persistence.
// All methods are context-aware for cancellation and timeout propagation.
// A nil db runs the call on the repository's own connection.
//
// Error semantics:
//   - ErrNotFound: Tournament does not exist, or is not in a requested status
//   - ErrNoRowsAffected: UPDATE/DELETE matched no rows
//   - ErrLastHost: RemoveHost would leave the tournament without hosts
//   - Other errors: Infrastructure failures (DB connection, query errors)
//
// Methods returning (*Tournament, error) for a player change return (nil, nil)
// when there was nothing to change.
type Repository interface {
	// CreateTournament inserts a new tournament in status preparing.
	CreateTournament(ctx context.Context, db bun.IDB, t *tournamentdomain.Tournament) error

	// GetTournament loads a tournament with its confirmed players.
	// With statuses given, any other status is reported as ErrNotFound.
	GetTournament(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, statuses ...tournamentdomain.Status) (*tournamentdomain.Tournament, error)

	ListTournaments(ctx context.Context, db bun.IDB, filter ListFilter) ([]tournamentdomain.Tournament, error)

	// UpdateTournament changes name and description while the tournament has not started.
	UpdateTournament(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, name, description string) error

	// SetStatus moves a tournament from one status to another.
	// Returns ErrNotFound if it is not currently in from.
	SetStatus(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, from, to tournamentdomain.Status) error

	// AddHost is idempotent.
	AddHost(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, host tournamentdomain.DiscordID) error
	RemoveHost(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, host tournamentdomain.DiscordID) error

	// AddChannel is idempotent.
	AddChannel(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, channel tournamentdomain.ChannelID, kind tournamentdomain.ChannelKind) error
	RemoveChannel(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, channel tournamentdomain.ChannelID, kind tournamentdomain.ChannelKind) error

	// RegisterBye and RemoveBye return the updated tournament.
	RegisterBye(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, player tournamentdomain.DiscordID) (*tournamentdomain.Tournament, error)
	RemoveBye(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, player tournamentdomain.DiscordID) (*tournamentdomain.Tournament, error)

	// PendingTournaments lists open tournaments where user has registered but not confirmed.
	PendingTournaments(ctx context.Context, db bun.IDB, user tournamentdomain.DiscordID) ([]tournamentdomain.Tournament, error)

	// ConfirmedTournaments lists open tournaments where user is confirmed.
	ConfirmedTournaments(ctx context.Context, db bun.IDB, user tournamentdomain.DiscordID) ([]tournamentdomain.Tournament, error)

	// AddPendingPlayer records user against the registration message's tournament.
	// No-op (nil, nil) if the message is unknown, the tournament is not open or
	// the user already takes part.
	AddPendingPlayer(ctx context.Context, db bun.IDB, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID, user tournamentdomain.DiscordID) (*tournamentdomain.Tournament, error)

	RemovePendingPlayer(ctx context.Context, db bun.IDB, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID, user tournamentdomain.DiscordID) (*tournamentdomain.Tournament, error)

	// RemoveConfirmedPlayerReaction and RemoveConfirmedPlayerForce return the
	// tournament as it was before removal, so the dropped player can still be found.
	RemoveConfirmedPlayerReaction(ctx context.Context, db bun.IDB, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID, user tournamentdomain.DiscordID) (*tournamentdomain.Tournament, error)
	RemoveConfirmedPlayerForce(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, user tournamentdomain.DiscordID) (*tournamentdomain.Tournament, error)

	// ConfirmPlayer upserts user as confirmed with the given bracket ID and deck.
	ConfirmPlayer(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, user tournamentdomain.DiscordID, bracketID int, deck string) error

	// OpenRegistration stores a registration message for the tournament.
	OpenRegistration(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID) error

	// RegisterMessages lists registration messages; an empty id lists all of them.
	RegisterMessages(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID) ([]tournamentdomain.RegisterMessage, error)

	// CleanRegistration forgets a registration message and the pending players it produced.
	CleanRegistration(ctx context.Context, db bun.IDB, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID) error

	// StartTournament moves registration_open to in_progress, dropping pending
	// players and registration messages. Returns the dropped users.
	StartTournament(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID) ([]tournamentdomain.DiscordID, error)

	// CancelRegistration cancels a tournament that has not started, dropping
	// pending players and registration messages. Returns the dropped users.
	CancelRegistration(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID) ([]tournamentdomain.DiscordID, error)

	// FinishTournament moves in_progress to complete, or cancelled if cancel is set.
	FinishTournament(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, cancel bool) error

	// Synchronise overwrites name, description and bracket IDs from a bracket snapshot.
	Synchronise(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, snapshot tournamentdomain.Snapshot) error
}
