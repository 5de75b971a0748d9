package tournamenthandlers

import (
	"context"
	"time"

	"github.com/Black-And-White-Club/tourney-bot/app/modules/deck"
	tournamentservice "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/application"
	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
)

// ------------------------
// Fake Tournament Service
// ------------------------

// FakeTournamentService is a programmable stub for tournamentservice.Service.
// Authentication passes unless the matching Func is set.
type FakeTournamentService struct {
	tournamentservice.Service // panics on methods the handlers never call

	trace []string

	AuthenticateHostFunc      func(ctx context.Context, id tournamentdomain.TournamentID, user tournamentdomain.DiscordID) error
	AuthenticatePlayerFunc    func(ctx context.Context, id tournamentdomain.TournamentID, user tournamentdomain.DiscordID) error
	AuthenticateOrganiserFunc func(ctx context.Context, server tournamentdomain.ServerID, user tournamentdomain.DiscordID) error

	CreateTournamentFunc func(ctx context.Context, host tournamentdomain.DiscordID, server tournamentdomain.ServerID, name, description string) (*tournamentservice.CreateResult, error)
	ListTournamentsFunc  func(ctx context.Context, server tournamentdomain.ServerID) (string, error)
	AddChannelFunc       func(ctx context.Context, id tournamentdomain.TournamentID, channel tournamentdomain.ChannelID, kind tournamentdomain.ChannelKind) error
	AddHostFunc          func(ctx context.Context, id tournamentdomain.TournamentID, host tournamentdomain.DiscordID) error
	SyncTournamentFunc   func(ctx context.Context, id tournamentdomain.TournamentID) (*tournamentservice.SyncResult, error)
	RegisterByeFunc      func(ctx context.Context, id tournamentdomain.TournamentID, player tournamentdomain.DiscordID) ([]tournamentdomain.DiscordID, error)

	StartTournamentFunc func(ctx context.Context, id tournamentdomain.TournamentID) error
	NextRoundFunc       func(ctx context.Context, id tournamentdomain.TournamentID, skip bool, length time.Duration) (tournamentservice.RoundResult, error)

	RegisterPlayerFunc     func(ctx context.Context, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID, user tournamentdomain.DiscordID) error
	ConfirmPlayerFunc      func(ctx context.Context, msg tournamentdomain.InboundMessage) error
	DropPlayerReactionFunc func(ctx context.Context, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID, user tournamentdomain.DiscordID) error
	DropPlayerFunc         func(ctx context.Context, id tournamentdomain.TournamentID, user tournamentdomain.DiscordID, force bool) error
	CleanRegistrationFunc  func(ctx context.Context, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID) error

	SubmitScoreFunc func(ctx context.Context, id tournamentdomain.TournamentID, user tournamentdomain.DiscordID, own, opp int, host bool) (string, error)

	ListPlayersFunc   func(ctx context.Context, id tournamentdomain.TournamentID) (tournamentdomain.Attachment, error)
	GetPlayerDeckFunc func(ctx context.Context, id tournamentdomain.TournamentID, user tournamentdomain.DiscordID) (*deck.Deck, error)
}

func NewFakeTournamentService() *FakeTournamentService {
	return &FakeTournamentService{trace: []string{}}
}

func (f *FakeTournamentService) record(step string) {
	f.trace = append(f.trace, step)
}

// Trace returns the sequence of service methods called.
func (f *FakeTournamentService) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeTournamentService) AuthenticateHost(ctx context.Context, id tournamentdomain.TournamentID, user tournamentdomain.DiscordID) error {
	f.record("AuthenticateHost")
	if f.AuthenticateHostFunc != nil {
		return f.AuthenticateHostFunc(ctx, id, user)
	}
	return nil
}

func (f *FakeTournamentService) AuthenticatePlayer(ctx context.Context, id tournamentdomain.TournamentID, user tournamentdomain.DiscordID) error {
	f.record("AuthenticatePlayer")
	if f.AuthenticatePlayerFunc != nil {
		return f.AuthenticatePlayerFunc(ctx, id, user)
	}
	return nil
}

func (f *FakeTournamentService) AuthenticateOrganiser(ctx context.Context, server tournamentdomain.ServerID, user tournamentdomain.DiscordID) error {
	f.record("AuthenticateOrganiser")
	if f.AuthenticateOrganiserFunc != nil {
		return f.AuthenticateOrganiserFunc(ctx, server, user)
	}
	return nil
}

func (f *FakeTournamentService) CreateTournament(ctx context.Context, host tournamentdomain.DiscordID, server tournamentdomain.ServerID, name, description string) (*tournamentservice.CreateResult, error) {
	f.record("CreateTournament")
	if f.CreateTournamentFunc != nil {
		return f.CreateTournamentFunc(ctx, host, server, name, description)
	}
	return &tournamentservice.CreateResult{}, nil
}

func (f *FakeTournamentService) ListTournaments(ctx context.Context, server tournamentdomain.ServerID) (string, error) {
	f.record("ListTournaments")
	if f.ListTournamentsFunc != nil {
		return f.ListTournamentsFunc(ctx, server)
	}
	return "", nil
}

func (f *FakeTournamentService) AddChannel(ctx context.Context, id tournamentdomain.TournamentID, channel tournamentdomain.ChannelID, kind tournamentdomain.ChannelKind) error {
	f.record("AddChannel")
	if f.AddChannelFunc != nil {
		return f.AddChannelFunc(ctx, id, channel, kind)
	}
	return nil
}

func (f *FakeTournamentService) AddHost(ctx context.Context, id tournamentdomain.TournamentID, host tournamentdomain.DiscordID) error {
	f.record("AddHost")
	if f.AddHostFunc != nil {
		return f.AddHostFunc(ctx, id, host)
	}
	return nil
}

func (f *FakeTournamentService) SyncTournament(ctx context.Context, id tournamentdomain.TournamentID) (*tournamentservice.SyncResult, error) {
	f.record("SyncTournament")
	if f.SyncTournamentFunc != nil {
		return f.SyncTournamentFunc(ctx, id)
	}
	return &tournamentservice.SyncResult{}, nil
}

func (f *FakeTournamentService) RegisterBye(ctx context.Context, id tournamentdomain.TournamentID, player tournamentdomain.DiscordID) ([]tournamentdomain.DiscordID, error) {
	f.record("RegisterBye")
	if f.RegisterByeFunc != nil {
		return f.RegisterByeFunc(ctx, id, player)
	}
	return []tournamentdomain.DiscordID{player}, nil
}

func (f *FakeTournamentService) StartTournament(ctx context.Context, id tournamentdomain.TournamentID) error {
	f.record("StartTournament")
	if f.StartTournamentFunc != nil {
		return f.StartTournamentFunc(ctx, id)
	}
	return nil
}

func (f *FakeTournamentService) NextRound(ctx context.Context, id tournamentdomain.TournamentID, skip bool, length time.Duration) (tournamentservice.RoundResult, error) {
	f.record("NextRound")
	if f.NextRoundFunc != nil {
		return f.NextRoundFunc(ctx, id, skip, length)
	}
	return tournamentservice.RoundResult{Round: 1}, nil
}

func (f *FakeTournamentService) RegisterPlayer(ctx context.Context, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID, user tournamentdomain.DiscordID) error {
	f.record("RegisterPlayer")
	if f.RegisterPlayerFunc != nil {
		return f.RegisterPlayerFunc(ctx, channel, message, user)
	}
	return nil
}

func (f *FakeTournamentService) ConfirmPlayer(ctx context.Context, msg tournamentdomain.InboundMessage) error {
	f.record("ConfirmPlayer")
	if f.ConfirmPlayerFunc != nil {
		return f.ConfirmPlayerFunc(ctx, msg)
	}
	return nil
}

func (f *FakeTournamentService) DropPlayerReaction(ctx context.Context, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID, user tournamentdomain.DiscordID) error {
	f.record("DropPlayerReaction")
	if f.DropPlayerReactionFunc != nil {
		return f.DropPlayerReactionFunc(ctx, channel, message, user)
	}
	return nil
}

func (f *FakeTournamentService) DropPlayer(ctx context.Context, id tournamentdomain.TournamentID, user tournamentdomain.DiscordID, force bool) error {
	f.record("DropPlayer")
	if f.DropPlayerFunc != nil {
		return f.DropPlayerFunc(ctx, id, user, force)
	}
	return nil
}

func (f *FakeTournamentService) CleanRegistration(ctx context.Context, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID) error {
	f.record("CleanRegistration")
	if f.CleanRegistrationFunc != nil {
		return f.CleanRegistrationFunc(ctx, channel, message)
	}
	return nil
}

func (f *FakeTournamentService) SubmitScore(ctx context.Context, id tournamentdomain.TournamentID, user tournamentdomain.DiscordID, own, opp int, host bool) (string, error) {
	f.record("SubmitScore")
	if f.SubmitScoreFunc != nil {
		return f.SubmitScoreFunc(ctx, id, user, own, opp, host)
	}
	return "", nil
}

func (f *FakeTournamentService) ListPlayers(ctx context.Context, id tournamentdomain.TournamentID) (tournamentdomain.Attachment, error) {
	f.record("ListPlayers")
	if f.ListPlayersFunc != nil {
		return f.ListPlayersFunc(ctx, id)
	}
	return tournamentdomain.Attachment{}, nil
}

func (f *FakeTournamentService) GetPlayerDeck(ctx context.Context, id tournamentdomain.TournamentID, user tournamentdomain.DiscordID) (*deck.Deck, error) {
	f.record("GetPlayerDeck")
	if f.GetPlayerDeckFunc != nil {
		return f.GetPlayerDeckFunc(ctx, id, user)
	}
	return &deck.Deck{}, nil
}

var _ tournamentservice.Service = (*FakeTournamentService)(nil)
