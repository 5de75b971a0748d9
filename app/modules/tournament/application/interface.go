package tournamentservice

import (
	"context"
	"time"

	"github.com/Black-And-White-Club/tourney-bot/app/modules/deck"
	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
)

// Service coordinates tournaments between chat, the bracket service and persistence.
type Service interface {
	// Management
	CreateTournament(ctx context.Context, host tournamentdomain.DiscordID, server tournamentdomain.ServerID, name, description string) (*CreateResult, error)
	UpdateTournament(ctx context.Context, id tournamentdomain.TournamentID, name, description string) error
	AddChannel(ctx context.Context, id tournamentdomain.TournamentID, channel tournamentdomain.ChannelID, kind tournamentdomain.ChannelKind) error
	RemoveChannel(ctx context.Context, id tournamentdomain.TournamentID, channel tournamentdomain.ChannelID, kind tournamentdomain.ChannelKind) error
	AddHost(ctx context.Context, id tournamentdomain.TournamentID, host tournamentdomain.DiscordID) error
	RemoveHost(ctx context.Context, id tournamentdomain.TournamentID, host tournamentdomain.DiscordID) error
	ListTournaments(ctx context.Context, server tournamentdomain.ServerID) (string, error)
	SyncTournament(ctx context.Context, id tournamentdomain.TournamentID) (*SyncResult, error)
	RegisterBye(ctx context.Context, id tournamentdomain.TournamentID, player tournamentdomain.DiscordID) ([]tournamentdomain.DiscordID, error)
	RemoveBye(ctx context.Context, id tournamentdomain.TournamentID, player tournamentdomain.DiscordID) ([]tournamentdomain.DiscordID, error)
	AuthenticateHost(ctx context.Context, id tournamentdomain.TournamentID, user tournamentdomain.DiscordID) error
	AuthenticatePlayer(ctx context.Context, id tournamentdomain.TournamentID, user tournamentdomain.DiscordID) error
	AuthenticateOrganiser(ctx context.Context, server tournamentdomain.ServerID, user tournamentdomain.DiscordID) error

	// Lifecycle
	OpenTournament(ctx context.Context, id tournamentdomain.TournamentID) error
	StartTournament(ctx context.Context, id tournamentdomain.TournamentID) error
	FinishTournament(ctx context.Context, id tournamentdomain.TournamentID, cancel bool) error
	CancelTournament(ctx context.Context, id tournamentdomain.TournamentID) error
	NextRound(ctx context.Context, id tournamentdomain.TournamentID, skip bool, length time.Duration) (RoundResult, error)
	SpawnTopCut(ctx context.Context, id tournamentdomain.TournamentID) (tournamentdomain.TournamentID, error)

	// Registration
	RegisterPlayer(ctx context.Context, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID, user tournamentdomain.DiscordID) error
	ConfirmPlayer(ctx context.Context, msg tournamentdomain.InboundMessage) error
	DropPlayerReaction(ctx context.Context, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID, user tournamentdomain.DiscordID) error
	DropPlayer(ctx context.Context, id tournamentdomain.TournamentID, user tournamentdomain.DiscordID, force bool) error
	CleanRegistration(ctx context.Context, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID) error

	// Scores
	SubmitScore(ctx context.Context, id tournamentdomain.TournamentID, user tournamentdomain.DiscordID, own, opp int, host bool) (string, error)

	// Reports
	ListPlayers(ctx context.Context, id tournamentdomain.TournamentID) (tournamentdomain.Attachment, error)
	PieChart(ctx context.Context, id tournamentdomain.TournamentID) (tournamentdomain.Attachment, error)
	DeckDump(ctx context.Context, id tournamentdomain.TournamentID) (tournamentdomain.Attachment, error)
	GetPlayerDeck(ctx context.Context, id tournamentdomain.TournamentID, user tournamentdomain.DiscordID) (*deck.Deck, error)

	// Startup and maintenance
	RestoreTimers(ctx context.Context) (int, error)
	RestoreRegistrations(ctx context.Context) (int, error)
	SweepIntents(ctx context.Context, age time.Duration) (int, error)
}

var _ Service = (*TournamentService)(nil)
