package tournamentservice

import (
	"context"

	"github.com/Black-And-White-Club/tourney-bot/app/modules/deck"
	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
)

// BracketService is the external system of record for pairings and standings.
// Errors from the remote side are *tournamentdomain.BracketAPIError.
type BracketService interface {
	CreateTournament(ctx context.Context, name, description, url string, topCut bool) (*tournamentdomain.BracketTournament, error)
	UpdateTournament(ctx context.Context, id tournamentdomain.TournamentID, name, description string) error
	GetTournament(ctx context.Context, id tournamentdomain.TournamentID) (*tournamentdomain.BracketTournament, error)
	FinishTournament(ctx context.Context, id tournamentdomain.TournamentID) (*tournamentdomain.BracketTournament, error)
	StartTournament(ctx context.Context, id tournamentdomain.TournamentID) error

	// RegisterPlayer returns the bracket ID of the new participant.
	RegisterPlayer(ctx context.Context, id tournamentdomain.TournamentID, name string, user tournamentdomain.DiscordID) (int, error)
	RemovePlayer(ctx context.Context, id tournamentdomain.TournamentID, bracketID int) error

	// SubmitScore reports the open match of bracketID from that player's view.
	// The higher score wins; equal scores are a tie.
	SubmitScore(ctx context.Context, id tournamentdomain.TournamentID, bracketID, ownScore, oppScore int) error

	// FindMatch returns the open match of bracketID, or nil if there is none.
	FindMatch(ctx context.Context, id tournamentdomain.TournamentID, bracketID int) (*tournamentdomain.Match, error)
	GetMatches(ctx context.Context, id tournamentdomain.TournamentID) ([]tournamentdomain.Match, error)
	GetPlayers(ctx context.Context, id tournamentdomain.TournamentID) ([]tournamentdomain.BracketPlayer, error)

	// GetBye returns the player sitting out the current round, or "".
	GetBye(ctx context.Context, id tournamentdomain.TournamentID) (tournamentdomain.DiscordID, error)
	GetTopCut(ctx context.Context, id tournamentdomain.TournamentID, size int) ([]tournamentdomain.BracketPlayer, error)

	// AssignByes seeds placeholder opponents so the given players win round one;
	// DropByes removes the placeholders once the bracket has started.
	AssignByes(ctx context.Context, id tournamentdomain.TournamentID, players []tournamentdomain.DiscordID) error
	DropByes(ctx context.Context, id tournamentdomain.TournamentID, count int) error
}

// Messenger is the chat adapter. DirectMessage fails with
// tournamentdomain.ErrBlockedDMs when the user refuses DMs.
type Messenger interface {
	SendMessage(ctx context.Context, channel tournamentdomain.ChannelID, content string) (tournamentdomain.MessageID, error)
	SendFile(ctx context.Context, channel tournamentdomain.ChannelID, content string, file tournamentdomain.Attachment) (tournamentdomain.MessageID, error)
	EditMessage(ctx context.Context, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID, content string) error
	DeleteMessage(ctx context.Context, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID) error
	MessageExists(ctx context.Context, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID) (bool, error)

	DirectMessage(ctx context.Context, user tournamentdomain.DiscordID, content string) error
	DirectFile(ctx context.Context, user tournamentdomain.DiscordID, content string, file tournamentdomain.Attachment) error

	AddReaction(ctx context.Context, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID, emoji string) error
	RemoveUserReaction(ctx context.Context, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID, emoji string, user tournamentdomain.DiscordID) error

	Username(ctx context.Context, user tournamentdomain.DiscordID) (string, error)

	// PlayerRole resolves the participant role of t, creating it if needed.
	PlayerRole(ctx context.Context, t *tournamentdomain.Tournament) (tournamentdomain.RoleID, error)
	GrantRole(ctx context.Context, server tournamentdomain.ServerID, user tournamentdomain.DiscordID, role tournamentdomain.RoleID) error
	RemoveRole(ctx context.Context, server tournamentdomain.ServerID, user tournamentdomain.DiscordID, role tournamentdomain.RoleID) error
	DeletePlayerRole(ctx context.Context, t *tournamentdomain.Tournament) error

	IsOrganiser(ctx context.Context, server tournamentdomain.ServerID, user tournamentdomain.DiscordID) (bool, error)
}

// DeckParser turns submissions and stored URLs into decks.
type DeckParser interface {
	FromMessage(content string, files []deck.File) (*deck.Deck, error)
	FromURL(url string) (*deck.Deck, error)
}

// ReportRenderer produces the host-facing report files.
type ReportRenderer interface {
	PlayersCSV(tournamentName string, rows []tournamentdomain.PlayerRow) (tournamentdomain.Attachment, error)
	ThemePie(tournamentName string, counts []tournamentdomain.ThemeCount) (tournamentdomain.Attachment, error)
	DeckDump(tournamentName string, rows []tournamentdomain.DeckRow) (tournamentdomain.Attachment, error)
}

// ClaimStore holds unconfirmed score reports keyed by match. Get returns nil
// when there is no claim.
type ClaimStore interface {
	Get(ctx context.Context, matchID int) (*tournamentdomain.MatchScoreClaim, error)
	Put(ctx context.Context, claim tournamentdomain.MatchScoreClaim) error
	Delete(ctx context.Context, matchID int) error
}

// IntentStore persists saga intents. An empty tournament ID lists all intents.
type IntentStore interface {
	Begin(ctx context.Context, id tournamentdomain.TournamentID, operation string) (*tournamentdomain.Intent, error)
	Step(ctx context.Context, intent *tournamentdomain.Intent, step string) error
	Complete(ctx context.Context, intent *tournamentdomain.Intent) error
	List(ctx context.Context, id tournamentdomain.TournamentID) ([]tournamentdomain.Intent, error)
	Clear(ctx context.Context, id tournamentdomain.TournamentID) ([]tournamentdomain.Intent, error)
}

// TopCutScheduler runs SpawnTopCut for a finished tournament.
type TopCutScheduler interface {
	ScheduleTopCut(ctx context.Context, id tournamentdomain.TournamentID) error
}
