package tournamentdb

import (
	"time"

	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
	"github.com/uptrace/bun"
)

// Tournament is the persisted tournament row. Set-like columns are Postgres arrays.
type Tournament struct {
	bun.BaseModel   `bun:"table:tournaments,alias:t"`
	ID              string                  `bun:"id,pk,type:varchar(64)"`
	Name            string                  `bun:"name,notnull"`
	Description     string                  `bun:"description,notnull,default:''"`
	Status          tournamentdomain.Status `bun:"status,notnull,type:varchar(32)"`
	ServerID        string                  `bun:"server_id,notnull,type:varchar(20)"`
	Hosts           []string                `bun:"hosts,array,notnull"`
	PublicChannels  []string                `bun:"public_channels,array,notnull,default:'{}'"`
	PrivateChannels []string                `bun:"private_channels,array,notnull,default:'{}'"`
	Byes            []string                `bun:"byes,array,notnull,default:'{}'"`
	TopCut          bool                    `bun:"top_cut,notnull,default:false"`
	CreatedAt       time.Time               `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt       time.Time               `bun:"updated_at,nullzero,notnull,default:current_timestamp"`

	Participants []*Participant `bun:"rel:has-many,join:id=tournament_id"`
}

// ParticipantStatus separates registered intent from an accepted deck.
type ParticipantStatus string

const (
	ParticipantPending   ParticipantStatus = "pending"
	ParticipantConfirmed ParticipantStatus = "confirmed"
)

// Participant is a pending or confirmed player. Pending rows remember the
// registration message they came from.
type Participant struct {
	bun.BaseModel     `bun:"table:participants,alias:p"`
	ID                int64             `bun:"id,pk,autoincrement"`
	TournamentID      string            `bun:"tournament_id,notnull,type:varchar(64),unique:participants_tournament_user"`
	DiscordID         string            `bun:"discord_id,notnull,type:varchar(20),unique:participants_tournament_user"`
	Status            ParticipantStatus `bun:"status,notnull,type:varchar(16)"`
	BracketID         int               `bun:"bracket_id,nullzero"`
	Deck              string            `bun:"deck,nullzero"`
	RegisterChannelID string            `bun:"register_channel_id,nullzero,type:varchar(20)"`
	RegisterMessageID string            `bun:"register_message_id,nullzero,type:varchar(20)"`
	CreatedAt         time.Time         `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// RegisterMessage is a registration announcement awaiting reactions.
type RegisterMessage struct {
	bun.BaseModel `bun:"table:register_messages,alias:rm"`
	ChannelID     string `bun:"channel_id,pk,type:varchar(20)"`
	MessageID     string `bun:"message_id,pk,type:varchar(20)"`
	TournamentID  string `bun:"tournament_id,notnull,type:varchar(64)"`
}

func toDomain(t *Tournament) *tournamentdomain.Tournament {
	if t == nil {
		return nil
	}
	out := &tournamentdomain.Tournament{
		ID:              tournamentdomain.TournamentID(t.ID),
		Name:            t.Name,
		Description:     t.Description,
		Status:          t.Status,
		ServerID:        tournamentdomain.ServerID(t.ServerID),
		Hosts:           convert[tournamentdomain.DiscordID](t.Hosts),
		PublicChannels:  convert[tournamentdomain.ChannelID](t.PublicChannels),
		PrivateChannels: convert[tournamentdomain.ChannelID](t.PrivateChannels),
		Byes:            convert[tournamentdomain.DiscordID](t.Byes),
		TopCut:          t.TopCut,
	}
	for _, p := range t.Participants {
		if p.Status != ParticipantConfirmed {
			continue
		}
		out.Players = append(out.Players, tournamentdomain.Player{
			DiscordID: tournamentdomain.DiscordID(p.DiscordID),
			BracketID: p.BracketID,
			Deck:      p.Deck,
		})
	}
	return out
}

func toDomainList(ts []Tournament) []tournamentdomain.Tournament {
	out := make([]tournamentdomain.Tournament, 0, len(ts))
	for i := range ts {
		out = append(out, *toDomain(&ts[i]))
	}
	return out
}

func convert[T ~string, S ~string](in []S) []T {
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = T(v)
	}
	return out
}
