package tournamentdomain

import (
	"fmt"
	"slices"
)

// Status is the lifecycle state of a tournament.
type Status string

const (
	StatusPreparing        Status = "preparing"
	StatusRegistrationOpen Status = "registration_open"
	StatusInProgress       Status = "in_progress"
	StatusComplete         Status = "complete"
	StatusCancelled        Status = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusCancelled
}

// CanTransition reports whether from -> to is a legal lifecycle transition.
func CanTransition(from, to Status) bool {
	switch to {
	case StatusRegistrationOpen:
		return from == StatusPreparing
	case StatusInProgress:
		return from == StatusRegistrationOpen
	case StatusComplete:
		return from == StatusInProgress
	case StatusCancelled:
		return !from.Terminal()
	}
	return false
}

// ActiveStatuses are the statuses listed by the list command.
var ActiveStatuses = []Status{StatusPreparing, StatusRegistrationOpen, StatusInProgress}

type (
	TournamentID string
	DiscordID    string
	ChannelID    string
	MessageID    string
	RoleID       string
	ServerID     string
)

// ChannelKind separates participant-visible from host-only announcement channels.
type ChannelKind string

const (
	ChannelPublic  ChannelKind = "public"
	ChannelPrivate ChannelKind = "private"
)

// ParseChannelKind defaults anything but "private" to public.
func ParseChannelKind(s string) ChannelKind {
	if s == string(ChannelPrivate) {
		return ChannelPrivate
	}
	return ChannelPublic
}

// Player is a confirmed participant.
type Player struct {
	DiscordID DiscordID
	BracketID int
	// Deck is the validated ydke:// URL of the submitted deck.
	Deck string
}

// Tournament is the locally persisted view of a tournament.
type Tournament struct {
	ID              TournamentID
	Name            string
	Description     string
	Status          Status
	ServerID        ServerID
	Hosts           []DiscordID
	PublicChannels  []ChannelID
	PrivateChannels []ChannelID
	Players         []Player
	Byes            []DiscordID
	TopCut          bool
}

// FindPlayer returns the confirmed player for user, or nil.
func (t *Tournament) FindPlayer(user DiscordID) *Player {
	for i := range t.Players {
		if t.Players[i].DiscordID == user {
			return &t.Players[i]
		}
	}
	return nil
}

// IsHost reports whether user hosts t.
func (t *Tournament) IsHost(user DiscordID) bool {
	return slices.Contains(t.Hosts, user)
}

// PrimaryHost is the owner; a tournament always has at least one host.
func (t *Tournament) PrimaryHost() DiscordID {
	if len(t.Hosts) == 0 {
		return ""
	}
	return t.Hosts[0]
}

// RoleName is the name of the participant role created for t.
func (t *Tournament) RoleName() string {
	return fmt.Sprintf("MC-%s-player", t.ID)
}

// RegisterMessage ties a registration post to its tournament.
type RegisterMessage struct {
	ChannelID    ChannelID
	MessageID    MessageID
	TournamentID TournamentID
}

// MatchScoreClaim is an unconfirmed score report waiting for the opponent.
type MatchScoreClaim struct {
	MatchID           int       `json:"match_id"`
	ReporterBracketID int       `json:"reporter_bracket_id"`
	ReporterDiscordID DiscordID `json:"reporter_discord_id"`
	OwnScore          int       `json:"own_score"`
	OppScore          int       `json:"opp_score"`
}

// Mirrors reports whether own-opp is the opponent's view of the claim.
func (c MatchScoreClaim) Mirrors(own, opp int) bool {
	return own == c.OppScore && opp == c.OwnScore
}

// Snapshot is the bracket-side state pulled by sync.
type Snapshot struct {
	Name        string
	Description string
	Players     []BracketPlayer
}

// BracketTournament is the bracket service view of a tournament.
type BracketTournament struct {
	ID          TournamentID
	Name        string
	Description string
	URL         string
	Players     []BracketPlayer
}

// BracketPlayer links a bracket participant to a messaging identity. Bye
// placeholders carry a DiscordID that is not a user snowflake.
type BracketPlayer struct {
	BracketID int
	DiscordID DiscordID
	Name      string
}

// Match is an open pairing. Player2 is zero for a bye.
type Match struct {
	ID      int
	Round   int
	Player1 int
	Player2 int
}

// Attachment is a file sent alongside a message.
type Attachment struct {
	Filename string
	Content  []byte
}

// IsUserSnowflake reports whether id looks like a real Discord user ID rather than
// a bye or dummy placeholder inserted into the bracket.
func IsUserSnowflake(id DiscordID) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return id[0] != '0'
}

// InboundMessage is a chat message delivered to the bot. ServerID is empty
// and Direct is set for direct messages.
type InboundMessage struct {
	ID          MessageID
	ChannelID   ChannelID
	ServerID    ServerID
	Author      DiscordID
	Content     string
	Attachments []Attachment
	Direct      bool
}
