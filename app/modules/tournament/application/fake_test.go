package tournamentservice

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/Black-And-White-Club/tourney-bot/app/modules/deck"
	timerservice "github.com/Black-And-White-Club/tourney-bot/app/modules/timer/application"
	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
	tournamentdb "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/infrastructure/repositories"
	"github.com/Black-And-White-Club/tourney-bot/app/observability"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace/noop"
)

// ------------------------
// Fake Tournament Repo
// ------------------------

type fakeRegistration struct {
	tournament tournamentdomain.TournamentID
	user       tournamentdomain.DiscordID
	channel    tournamentdomain.ChannelID
	message    tournamentdomain.MessageID
}

// FakeTournamentRepository keeps tournaments in memory and lets tests
// override individual methods.
type FakeTournamentRepository struct {
	mu    sync.Mutex
	trace []string

	Tournaments map[tournamentdomain.TournamentID]*tournamentdomain.Tournament
	Pending     []fakeRegistration
	Messages    []tournamentdomain.RegisterMessage

	GetTournamentFunc     func(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, statuses ...tournamentdomain.Status) (*tournamentdomain.Tournament, error)
	StartTournamentFunc   func(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID) ([]tournamentdomain.DiscordID, error)
	FinishTournamentFunc  func(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, cancel bool) error
	ConfirmPlayerFunc     func(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, user tournamentdomain.DiscordID, bracketID int, deck string) error
	UpdateTournamentFunc  func(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, name, description string) error
	CreateTournamentFunc  func(ctx context.Context, db bun.IDB, t *tournamentdomain.Tournament) error
	OpenRegistrationErr   error
	PendingTournamentsErr error
}

var _ tournamentdb.Repository = (*FakeTournamentRepository)(nil)

func NewFakeTournamentRepository() *FakeTournamentRepository {
	return &FakeTournamentRepository{
		trace:       []string{},
		Tournaments: make(map[tournamentdomain.TournamentID]*tournamentdomain.Tournament),
	}
}

// Trace returns the sequence of method calls made to the fake.
func (f *FakeTournamentRepository) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeTournamentRepository) record(step string) {
	f.trace = append(f.trace, step)
}

// Put stores a copy of t.
func (f *FakeTournamentRepository) Put(t tournamentdomain.Tournament) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Tournaments[t.ID] = cloneTournament(&t)
}

// Get returns a copy of the stored tournament, or nil.
func (f *FakeTournamentRepository) Get(id tournamentdomain.TournamentID) *tournamentdomain.Tournament {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.Tournaments[id]
	if !ok {
		return nil
	}
	return cloneTournament(t)
}

func cloneTournament(t *tournamentdomain.Tournament) *tournamentdomain.Tournament {
	c := *t
	c.Hosts = slices.Clone(t.Hosts)
	c.PublicChannels = slices.Clone(t.PublicChannels)
	c.PrivateChannels = slices.Clone(t.PrivateChannels)
	c.Players = slices.Clone(t.Players)
	c.Byes = slices.Clone(t.Byes)
	return &c
}

func (f *FakeTournamentRepository) get(id tournamentdomain.TournamentID, statuses ...tournamentdomain.Status) (*tournamentdomain.Tournament, error) {
	t, ok := f.Tournaments[id]
	if !ok {
		return nil, tournamentdb.ErrNotFound
	}
	if len(statuses) > 0 && !slices.Contains(statuses, t.Status) {
		return nil, tournamentdb.ErrNotFound
	}
	return t, nil
}

func (f *FakeTournamentRepository) CreateTournament(ctx context.Context, db bun.IDB, t *tournamentdomain.Tournament) error {
	f.mu.Lock()
	f.record("CreateTournament")
	fn := f.CreateTournamentFunc
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, db, t)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t.Status = tournamentdomain.StatusPreparing
	f.Tournaments[t.ID] = cloneTournament(t)
	return nil
}

func (f *FakeTournamentRepository) GetTournament(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, statuses ...tournamentdomain.Status) (*tournamentdomain.Tournament, error) {
	f.mu.Lock()
	f.record("GetTournament")
	fn := f.GetTournamentFunc
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, db, id, statuses...)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.get(id, statuses...)
	if err != nil {
		return nil, err
	}
	return cloneTournament(t), nil
}

func (f *FakeTournamentRepository) ListTournaments(ctx context.Context, db bun.IDB, filter tournamentdb.ListFilter) ([]tournamentdomain.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListTournaments")
	var out []tournamentdomain.Tournament
	for _, t := range f.Tournaments {
		if filter.ServerID != "" && t.ServerID != filter.ServerID {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, t.Status) {
			continue
		}
		out = append(out, *cloneTournament(t))
	}
	slices.SortFunc(out, func(a, b tournamentdomain.Tournament) int {
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out, nil
}

func (f *FakeTournamentRepository) UpdateTournament(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, name, description string) error {
	f.mu.Lock()
	f.record("UpdateTournament")
	fn := f.UpdateTournamentFunc
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, db, id, name, description)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.get(id, tournamentdomain.StatusPreparing, tournamentdomain.StatusRegistrationOpen)
	if err != nil {
		return err
	}
	t.Name, t.Description = name, description
	return nil
}

func (f *FakeTournamentRepository) SetStatus(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, from, to tournamentdomain.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SetStatus")
	t, err := f.get(id, from)
	if err != nil {
		return err
	}
	t.Status = to
	return nil
}

func (f *FakeTournamentRepository) AddHost(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, host tournamentdomain.DiscordID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("AddHost")
	t, err := f.get(id)
	if err != nil {
		return err
	}
	if !slices.Contains(t.Hosts, host) {
		t.Hosts = append(t.Hosts, host)
	}
	return nil
}

func (f *FakeTournamentRepository) RemoveHost(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, host tournamentdomain.DiscordID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("RemoveHost")
	t, err := f.get(id)
	if err != nil {
		return err
	}
	if !slices.Contains(t.Hosts, host) {
		return tournamentdb.ErrNoRowsAffected
	}
	if len(t.Hosts) == 1 {
		return tournamentdb.ErrLastHost
	}
	t.Hosts = slices.DeleteFunc(t.Hosts, func(h tournamentdomain.DiscordID) bool { return h == host })
	return nil
}

func (f *FakeTournamentRepository) channels(t *tournamentdomain.Tournament, kind tournamentdomain.ChannelKind) *[]tournamentdomain.ChannelID {
	if kind == tournamentdomain.ChannelPrivate {
		return &t.PrivateChannels
	}
	return &t.PublicChannels
}

func (f *FakeTournamentRepository) AddChannel(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, channel tournamentdomain.ChannelID, kind tournamentdomain.ChannelKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("AddChannel")
	t, err := f.get(id)
	if err != nil {
		return err
	}
	list := f.channels(t, kind)
	if !slices.Contains(*list, channel) {
		*list = append(*list, channel)
	}
	return nil
}

func (f *FakeTournamentRepository) RemoveChannel(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, channel tournamentdomain.ChannelID, kind tournamentdomain.ChannelKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("RemoveChannel")
	t, err := f.get(id)
	if err != nil {
		return err
	}
	list := f.channels(t, kind)
	if !slices.Contains(*list, channel) {
		return tournamentdb.ErrNoRowsAffected
	}
	*list = slices.DeleteFunc(*list, func(c tournamentdomain.ChannelID) bool { return c == channel })
	return nil
}

func (f *FakeTournamentRepository) RegisterBye(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, player tournamentdomain.DiscordID) (*tournamentdomain.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("RegisterBye")
	t, err := f.get(id)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(t.Byes, player) {
		t.Byes = append(t.Byes, player)
	}
	return cloneTournament(t), nil
}

func (f *FakeTournamentRepository) RemoveBye(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, player tournamentdomain.DiscordID) (*tournamentdomain.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("RemoveBye")
	t, err := f.get(id)
	if err != nil {
		return nil, err
	}
	t.Byes = slices.DeleteFunc(t.Byes, func(b tournamentdomain.DiscordID) bool { return b == player })
	return cloneTournament(t), nil
}

func (f *FakeTournamentRepository) PendingTournaments(ctx context.Context, db bun.IDB, user tournamentdomain.DiscordID) ([]tournamentdomain.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("PendingTournaments")
	if f.PendingTournamentsErr != nil {
		return nil, f.PendingTournamentsErr
	}
	var out []tournamentdomain.Tournament
	for _, p := range f.Pending {
		if p.user != user {
			continue
		}
		if t, err := f.get(p.tournament, tournamentdomain.StatusRegistrationOpen); err == nil {
			out = append(out, *cloneTournament(t))
		}
	}
	return out, nil
}

func (f *FakeTournamentRepository) ConfirmedTournaments(ctx context.Context, db bun.IDB, user tournamentdomain.DiscordID) ([]tournamentdomain.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ConfirmedTournaments")
	var out []tournamentdomain.Tournament
	for _, t := range f.Tournaments {
		if t.Status == tournamentdomain.StatusRegistrationOpen && t.FindPlayer(user) != nil {
			out = append(out, *cloneTournament(t))
		}
	}
	return out, nil
}

func (f *FakeTournamentRepository) messageTournament(channel tournamentdomain.ChannelID, message tournamentdomain.MessageID) (tournamentdomain.TournamentID, bool) {
	for _, m := range f.Messages {
		if m.ChannelID == channel && m.MessageID == message {
			return m.TournamentID, true
		}
	}
	return "", false
}

func (f *FakeTournamentRepository) AddPendingPlayer(ctx context.Context, db bun.IDB, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID, user tournamentdomain.DiscordID) (*tournamentdomain.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("AddPendingPlayer")
	id, ok := f.messageTournament(channel, message)
	if !ok {
		return nil, nil
	}
	t, err := f.get(id, tournamentdomain.StatusRegistrationOpen)
	if err != nil {
		return nil, nil
	}
	if t.FindPlayer(user) != nil {
		return nil, nil
	}
	for _, p := range f.Pending {
		if p.user == user {
			return nil, nil
		}
	}
	f.Pending = append(f.Pending, fakeRegistration{tournament: id, user: user, channel: channel, message: message})
	return cloneTournament(t), nil
}

func (f *FakeTournamentRepository) RemovePendingPlayer(ctx context.Context, db bun.IDB, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID, user tournamentdomain.DiscordID) (*tournamentdomain.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("RemovePendingPlayer")
	for i, p := range f.Pending {
		if p.user == user && p.channel == channel && p.message == message {
			f.Pending = slices.Delete(f.Pending, i, i+1)
			t, err := f.get(p.tournament)
			if err != nil {
				return nil, nil
			}
			return cloneTournament(t), nil
		}
	}
	return nil, nil
}

func (f *FakeTournamentRepository) removeConfirmed(id tournamentdomain.TournamentID, user tournamentdomain.DiscordID, statuses ...tournamentdomain.Status) *tournamentdomain.Tournament {
	t, err := f.get(id, statuses...)
	if err != nil || t.FindPlayer(user) == nil {
		return nil
	}
	before := cloneTournament(t)
	t.Players = slices.DeleteFunc(t.Players, func(p tournamentdomain.Player) bool { return p.DiscordID == user })
	t.Byes = slices.DeleteFunc(t.Byes, func(b tournamentdomain.DiscordID) bool { return b == user })
	return before
}

func (f *FakeTournamentRepository) RemoveConfirmedPlayerReaction(ctx context.Context, db bun.IDB, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID, user tournamentdomain.DiscordID) (*tournamentdomain.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("RemoveConfirmedPlayerReaction")
	id, ok := f.messageTournament(channel, message)
	if !ok {
		return nil, nil
	}
	return f.removeConfirmed(id, user, tournamentdomain.StatusRegistrationOpen), nil
}

func (f *FakeTournamentRepository) RemoveConfirmedPlayerForce(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, user tournamentdomain.DiscordID) (*tournamentdomain.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("RemoveConfirmedPlayerForce")
	if _, err := f.get(id); err != nil {
		return nil, err
	}
	return f.removeConfirmed(id, user), nil
}

func (f *FakeTournamentRepository) ConfirmPlayer(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, user tournamentdomain.DiscordID, bracketID int, deckURL string) error {
	f.mu.Lock()
	f.record("ConfirmPlayer")
	fn := f.ConfirmPlayerFunc
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, db, id, user, bracketID, deckURL)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.get(id)
	if err != nil {
		return err
	}
	f.Pending = slices.DeleteFunc(f.Pending, func(p fakeRegistration) bool { return p.user == user && p.tournament == id })
	if p := t.FindPlayer(user); p != nil {
		p.BracketID, p.Deck = bracketID, deckURL
		return nil
	}
	t.Players = append(t.Players, tournamentdomain.Player{DiscordID: user, BracketID: bracketID, Deck: deckURL})
	return nil
}

func (f *FakeTournamentRepository) OpenRegistration(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("OpenRegistration")
	if f.OpenRegistrationErr != nil {
		return f.OpenRegistrationErr
	}
	f.Messages = append(f.Messages, tournamentdomain.RegisterMessage{ChannelID: channel, MessageID: message, TournamentID: id})
	return nil
}

func (f *FakeTournamentRepository) RegisterMessages(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID) ([]tournamentdomain.RegisterMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("RegisterMessages")
	var out []tournamentdomain.RegisterMessage
	for _, m := range f.Messages {
		if id == "" || m.TournamentID == id {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *FakeTournamentRepository) CleanRegistration(ctx context.Context, db bun.IDB, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CleanRegistration")
	f.Messages = slices.DeleteFunc(f.Messages, func(m tournamentdomain.RegisterMessage) bool {
		return m.ChannelID == channel && m.MessageID == message
	})
	f.Pending = slices.DeleteFunc(f.Pending, func(p fakeRegistration) bool {
		return p.channel == channel && p.message == message
	})
	return nil
}

func (f *FakeTournamentRepository) closeRegistration(id tournamentdomain.TournamentID, from []tournamentdomain.Status, to tournamentdomain.Status) ([]tournamentdomain.DiscordID, error) {
	t, err := f.get(id, from...)
	if err != nil {
		return nil, err
	}
	var dropped []tournamentdomain.DiscordID
	f.Pending = slices.DeleteFunc(f.Pending, func(p fakeRegistration) bool {
		if p.tournament == id {
			dropped = append(dropped, p.user)
			return true
		}
		return false
	})
	f.Messages = slices.DeleteFunc(f.Messages, func(m tournamentdomain.RegisterMessage) bool { return m.TournamentID == id })
	t.Status = to
	return dropped, nil
}

func (f *FakeTournamentRepository) StartTournament(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID) ([]tournamentdomain.DiscordID, error) {
	f.mu.Lock()
	f.record("StartTournament")
	fn := f.StartTournamentFunc
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, db, id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeRegistration(id, []tournamentdomain.Status{tournamentdomain.StatusRegistrationOpen}, tournamentdomain.StatusInProgress)
}

func (f *FakeTournamentRepository) CancelRegistration(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID) ([]tournamentdomain.DiscordID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CancelRegistration")
	return f.closeRegistration(id, []tournamentdomain.Status{tournamentdomain.StatusPreparing, tournamentdomain.StatusRegistrationOpen}, tournamentdomain.StatusCancelled)
}

func (f *FakeTournamentRepository) FinishTournament(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, cancel bool) error {
	f.mu.Lock()
	f.record("FinishTournament")
	fn := f.FinishTournamentFunc
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, db, id, cancel)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.get(id, tournamentdomain.StatusInProgress)
	if err != nil {
		return err
	}
	t.Status = tournamentdomain.StatusComplete
	if cancel {
		t.Status = tournamentdomain.StatusCancelled
	}
	return nil
}

func (f *FakeTournamentRepository) Synchronise(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, snapshot tournamentdomain.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Synchronise")
	t, err := f.get(id)
	if err != nil {
		return err
	}
	t.Name, t.Description = snapshot.Name, snapshot.Description
	for _, bp := range snapshot.Players {
		if p := t.FindPlayer(bp.DiscordID); p != nil {
			p.BracketID = bp.BracketID
		}
	}
	return nil
}

// ------------------------
// Fake Bracket Service
// ------------------------

type submittedScore struct {
	Tournament tournamentdomain.TournamentID
	BracketID  int
	Own, Opp   int
}

// FakeBracket tracks registered players and submitted scores in memory.
type FakeBracket struct {
	mu    sync.Mutex
	trace []string

	nextID   int
	Players  map[tournamentdomain.TournamentID][]tournamentdomain.BracketPlayer
	Matches  map[tournamentdomain.TournamentID][]tournamentdomain.Match
	Scores   []submittedScore
	Started  []tournamentdomain.TournamentID
	Finished []tournamentdomain.TournamentID
	Existing map[tournamentdomain.TournamentID]bool
	Bye      tournamentdomain.DiscordID

	CreateTournamentFunc func(ctx context.Context, name, description, url string, topCut bool) (*tournamentdomain.BracketTournament, error)
	GetTournamentFunc    func(ctx context.Context, id tournamentdomain.TournamentID) (*tournamentdomain.BracketTournament, error)
	StartTournamentFunc  func(ctx context.Context, id tournamentdomain.TournamentID) error
	SubmitScoreFunc      func(ctx context.Context, id tournamentdomain.TournamentID, bracketID, own, opp int) error
	FindMatchFunc        func(ctx context.Context, id tournamentdomain.TournamentID, bracketID int) (*tournamentdomain.Match, error)
	GetTopCutFunc        func(ctx context.Context, id tournamentdomain.TournamentID, size int) ([]tournamentdomain.BracketPlayer, error)
}

var _ BracketService = (*FakeBracket)(nil)

func NewFakeBracket() *FakeBracket {
	return &FakeBracket{
		trace:    []string{},
		nextID:   100,
		Players:  make(map[tournamentdomain.TournamentID][]tournamentdomain.BracketPlayer),
		Matches:  make(map[tournamentdomain.TournamentID][]tournamentdomain.Match),
		Existing: make(map[tournamentdomain.TournamentID]bool),
	}
}

func (f *FakeBracket) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeBracket) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

func (f *FakeBracket) url(id tournamentdomain.TournamentID) string {
	return "https://challonge.com/" + string(id)
}

func (f *FakeBracket) CreateTournament(ctx context.Context, name, description, url string, topCut bool) (*tournamentdomain.BracketTournament, error) {
	f.record("CreateTournament")
	if f.CreateTournamentFunc != nil {
		return f.CreateTournamentFunc(ctx, name, description, url, topCut)
	}
	id := tournamentdomain.TournamentID(url)
	f.mu.Lock()
	f.Existing[id] = true
	f.mu.Unlock()
	return &tournamentdomain.BracketTournament{ID: id, Name: name, Description: description, URL: f.url(id)}, nil
}

func (f *FakeBracket) UpdateTournament(ctx context.Context, id tournamentdomain.TournamentID, name, description string) error {
	f.record("UpdateTournament")
	return nil
}

func (f *FakeBracket) GetTournament(ctx context.Context, id tournamentdomain.TournamentID) (*tournamentdomain.BracketTournament, error) {
	f.record("GetTournament")
	if f.GetTournamentFunc != nil {
		return f.GetTournamentFunc(ctx, id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.Existing[id] {
		return nil, &tournamentdomain.BracketAPIError{StatusCode: 404, Message: "Not Found"}
	}
	return &tournamentdomain.BracketTournament{ID: id, Name: string(id), URL: f.url(id), Players: slices.Clone(f.Players[id])}, nil
}

func (f *FakeBracket) FinishTournament(ctx context.Context, id tournamentdomain.TournamentID) (*tournamentdomain.BracketTournament, error) {
	f.record("FinishTournament")
	f.mu.Lock()
	f.Finished = append(f.Finished, id)
	f.mu.Unlock()
	return &tournamentdomain.BracketTournament{ID: id, URL: f.url(id)}, nil
}

func (f *FakeBracket) StartTournament(ctx context.Context, id tournamentdomain.TournamentID) error {
	f.record("StartTournament")
	if f.StartTournamentFunc != nil {
		return f.StartTournamentFunc(ctx, id)
	}
	f.mu.Lock()
	f.Started = append(f.Started, id)
	f.mu.Unlock()
	return nil
}

func (f *FakeBracket) RegisterPlayer(ctx context.Context, id tournamentdomain.TournamentID, name string, user tournamentdomain.DiscordID) (int, error) {
	f.record("RegisterPlayer")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.Players[id] = append(f.Players[id], tournamentdomain.BracketPlayer{BracketID: f.nextID, DiscordID: user, Name: name})
	return f.nextID, nil
}

func (f *FakeBracket) RemovePlayer(ctx context.Context, id tournamentdomain.TournamentID, bracketID int) error {
	f.record("RemovePlayer")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Players[id] = slices.DeleteFunc(f.Players[id], func(p tournamentdomain.BracketPlayer) bool { return p.BracketID == bracketID })
	return nil
}

func (f *FakeBracket) SubmitScore(ctx context.Context, id tournamentdomain.TournamentID, bracketID, own, opp int) error {
	f.record("SubmitScore")
	if f.SubmitScoreFunc != nil {
		return f.SubmitScoreFunc(ctx, id, bracketID, own, opp)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Scores = append(f.Scores, submittedScore{Tournament: id, BracketID: bracketID, Own: own, Opp: opp})
	return nil
}

func (f *FakeBracket) FindMatch(ctx context.Context, id tournamentdomain.TournamentID, bracketID int) (*tournamentdomain.Match, error) {
	f.record("FindMatch")
	if f.FindMatchFunc != nil {
		return f.FindMatchFunc(ctx, id, bracketID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.Matches[id] {
		if m.Player1 == bracketID || m.Player2 == bracketID {
			m := m
			return &m, nil
		}
	}
	return nil, nil
}

func (f *FakeBracket) GetMatches(ctx context.Context, id tournamentdomain.TournamentID) ([]tournamentdomain.Match, error) {
	f.record("GetMatches")
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.Matches[id]), nil
}

func (f *FakeBracket) GetPlayers(ctx context.Context, id tournamentdomain.TournamentID) ([]tournamentdomain.BracketPlayer, error) {
	f.record("GetPlayers")
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.Players[id]), nil
}

func (f *FakeBracket) GetBye(ctx context.Context, id tournamentdomain.TournamentID) (tournamentdomain.DiscordID, error) {
	f.record("GetBye")
	return f.Bye, nil
}

func (f *FakeBracket) GetTopCut(ctx context.Context, id tournamentdomain.TournamentID, size int) ([]tournamentdomain.BracketPlayer, error) {
	f.record("GetTopCut")
	if f.GetTopCutFunc != nil {
		return f.GetTopCutFunc(ctx, id, size)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	players := f.Players[id]
	return slices.Clone(players[:min(size, len(players))]), nil
}

func (f *FakeBracket) AssignByes(ctx context.Context, id tournamentdomain.TournamentID, players []tournamentdomain.DiscordID) error {
	f.record("AssignByes")
	return nil
}

func (f *FakeBracket) DropByes(ctx context.Context, id tournamentdomain.TournamentID, count int) error {
	f.record("DropByes")
	return nil
}

// ------------------------
// Fake Messenger
// ------------------------

type sentMessage struct {
	Channel tournamentdomain.ChannelID
	Content string
	File    string
}

type directMessage struct {
	User    tournamentdomain.DiscordID
	Content string
	File    string
}

type reactionRemoval struct {
	Message tournamentdomain.MessageID
	User    tournamentdomain.DiscordID
}

// FakeMessenger records everything the service says.
type FakeMessenger struct {
	mu    sync.Mutex
	trace []string
	next  int

	Sent             []sentMessage
	DMs              []directMessage
	Deleted          []tournamentdomain.MessageID
	Reactions        []tournamentdomain.MessageID
	RemovedReactions []reactionRemoval
	Granted          []tournamentdomain.DiscordID
	Revoked          []tournamentdomain.DiscordID
	DeletedRoles     []tournamentdomain.TournamentID

	SendMessageFunc   func(ctx context.Context, channel tournamentdomain.ChannelID, content string) (tournamentdomain.MessageID, error)
	DirectMessageFunc func(ctx context.Context, user tournamentdomain.DiscordID, content string) error
	MessageExistsFunc func(ctx context.Context, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID) (bool, error)
	IsOrganiserFunc   func(ctx context.Context, server tournamentdomain.ServerID, user tournamentdomain.DiscordID) (bool, error)
}

var _ Messenger = (*FakeMessenger)(nil)

func NewFakeMessenger() *FakeMessenger {
	return &FakeMessenger{trace: []string{}}
}

func (f *FakeMessenger) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeMessenger) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

// SentTo returns the contents posted to channel.
func (f *FakeMessenger) SentTo(channel tournamentdomain.ChannelID) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.Sent {
		if m.Channel == channel {
			out = append(out, m.Content)
		}
	}
	return out
}

// DMsTo returns the direct messages sent to user.
func (f *FakeMessenger) DMsTo(user tournamentdomain.DiscordID) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.DMs {
		if m.User == user {
			out = append(out, m.Content)
		}
	}
	return out
}

func (f *FakeMessenger) SendMessage(ctx context.Context, channel tournamentdomain.ChannelID, content string) (tournamentdomain.MessageID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SendMessage")
	if f.SendMessageFunc != nil {
		return f.SendMessageFunc(ctx, channel, content)
	}
	f.next++
	f.Sent = append(f.Sent, sentMessage{Channel: channel, Content: content})
	return tournamentdomain.MessageID(fmt.Sprintf("msg-%d", f.next)), nil
}

func (f *FakeMessenger) SendFile(ctx context.Context, channel tournamentdomain.ChannelID, content string, file tournamentdomain.Attachment) (tournamentdomain.MessageID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SendFile")
	f.next++
	f.Sent = append(f.Sent, sentMessage{Channel: channel, Content: content, File: file.Filename})
	return tournamentdomain.MessageID(fmt.Sprintf("msg-%d", f.next)), nil
}

func (f *FakeMessenger) EditMessage(ctx context.Context, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("EditMessage")
	return nil
}

func (f *FakeMessenger) DeleteMessage(ctx context.Context, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeleteMessage")
	f.Deleted = append(f.Deleted, message)
	return nil
}

func (f *FakeMessenger) MessageExists(ctx context.Context, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID) (bool, error) {
	f.mu.Lock()
	f.record("MessageExists")
	fn := f.MessageExistsFunc
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, channel, message)
	}
	return true, nil
}

func (f *FakeMessenger) DirectMessage(ctx context.Context, user tournamentdomain.DiscordID, content string) error {
	f.mu.Lock()
	f.record("DirectMessage")
	fn := f.DirectMessageFunc
	f.mu.Unlock()
	if fn != nil {
		if err := fn(ctx, user, content); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DMs = append(f.DMs, directMessage{User: user, Content: content})
	return nil
}

func (f *FakeMessenger) DirectFile(ctx context.Context, user tournamentdomain.DiscordID, content string, file tournamentdomain.Attachment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DirectFile")
	f.DMs = append(f.DMs, directMessage{User: user, Content: content, File: file.Filename})
	return nil
}

func (f *FakeMessenger) AddReaction(ctx context.Context, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("AddReaction")
	f.Reactions = append(f.Reactions, message)
	return nil
}

func (f *FakeMessenger) RemoveUserReaction(ctx context.Context, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID, emoji string, user tournamentdomain.DiscordID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("RemoveUserReaction")
	f.RemovedReactions = append(f.RemovedReactions, reactionRemoval{Message: message, User: user})
	return nil
}

func (f *FakeMessenger) Username(ctx context.Context, user tournamentdomain.DiscordID) (string, error) {
	return "name-" + string(user), nil
}

func (f *FakeMessenger) PlayerRole(ctx context.Context, t *tournamentdomain.Tournament) (tournamentdomain.RoleID, error) {
	return tournamentdomain.RoleID("role-" + string(t.ID)), nil
}

func (f *FakeMessenger) GrantRole(ctx context.Context, server tournamentdomain.ServerID, user tournamentdomain.DiscordID, role tournamentdomain.RoleID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GrantRole")
	f.Granted = append(f.Granted, user)
	return nil
}

func (f *FakeMessenger) RemoveRole(ctx context.Context, server tournamentdomain.ServerID, user tournamentdomain.DiscordID, role tournamentdomain.RoleID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("RemoveRole")
	f.Revoked = append(f.Revoked, user)
	return nil
}

func (f *FakeMessenger) DeletePlayerRole(ctx context.Context, t *tournamentdomain.Tournament) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeletePlayerRole")
	f.DeletedRoles = append(f.DeletedRoles, t.ID)
	return nil
}

func (f *FakeMessenger) IsOrganiser(ctx context.Context, server tournamentdomain.ServerID, user tournamentdomain.DiscordID) (bool, error) {
	if f.IsOrganiserFunc != nil {
		return f.IsOrganiserFunc(ctx, server, user)
	}
	return true, nil
}

// ------------------------
// Fake Timers
// ------------------------

type createdTimer struct {
	End          time.Time
	Channel      tournamentdomain.ChannelID
	FinalMessage string
	Interval     time.Duration
	Tournament   tournamentdomain.TournamentID
}

// FakeTimers records countdowns without running them.
type FakeTimers struct {
	mu        sync.Mutex
	trace     []string
	Created   []createdTimer
	Cancelled []tournamentdomain.TournamentID

	LoadAllFunc func(ctx context.Context, live timerservice.LiveCheck) (int, error)
}

var _ timerservice.Service = (*FakeTimers)(nil)

func (f *FakeTimers) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeTimers) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.trace)
}

func (f *FakeTimers) CreateTimer(ctx context.Context, end time.Time, channel tournamentdomain.ChannelID, finalMessage string, interval time.Duration, tournamentID tournamentdomain.TournamentID) (*timerservice.Timer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateTimer")
	f.Created = append(f.Created, createdTimer{End: end, Channel: channel, FinalMessage: finalMessage, Interval: interval, Tournament: tournamentID})
	return nil, nil
}

func (f *FakeTimers) CancelTournament(ctx context.Context, tournamentID tournamentdomain.TournamentID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CancelTournament")
	f.Cancelled = append(f.Cancelled, tournamentID)
	return nil
}

func (f *FakeTimers) LoadAll(ctx context.Context, live timerservice.LiveCheck) (int, error) {
	f.mu.Lock()
	f.record("LoadAll")
	f.mu.Unlock()
	if f.LoadAllFunc != nil {
		return f.LoadAllFunc(ctx, live)
	}
	return 0, nil
}

func (f *FakeTimers) Active(tournamentID tournamentdomain.TournamentID) int { return 0 }

func (f *FakeTimers) Stop() {}

// ------------------------
// Fake Intent Store
// ------------------------

// FakeIntentStore keeps intents in memory.
type FakeIntentStore struct {
	mu      sync.Mutex
	next    int
	Intents map[string]tournamentdomain.Intent
	now     func() time.Time
}

var _ IntentStore = (*FakeIntentStore)(nil)

func NewFakeIntentStore() *FakeIntentStore {
	return &FakeIntentStore{Intents: make(map[string]tournamentdomain.Intent), now: time.Now}
}

func (f *FakeIntentStore) Begin(ctx context.Context, id tournamentdomain.TournamentID, operation string) (*tournamentdomain.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	now := f.now()
	in := tournamentdomain.Intent{
		ID:           fmt.Sprintf("intent-%d", f.next),
		TournamentID: id,
		Operation:    operation,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.Intents[in.ID] = in
	return &in, nil
}

func (f *FakeIntentStore) Step(ctx context.Context, intent *tournamentdomain.Intent, step string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	intent.Step = step
	intent.UpdatedAt = f.now()
	f.Intents[intent.ID] = *intent
	return nil
}

func (f *FakeIntentStore) Complete(ctx context.Context, intent *tournamentdomain.Intent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Intents, intent.ID)
	return nil
}

func (f *FakeIntentStore) List(ctx context.Context, id tournamentdomain.TournamentID) ([]tournamentdomain.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tournamentdomain.Intent
	for _, in := range f.Intents {
		if id == "" || in.TournamentID == id {
			out = append(out, in)
		}
	}
	slices.SortFunc(out, func(a, b tournamentdomain.Intent) int {
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out, nil
}

func (f *FakeIntentStore) Clear(ctx context.Context, id tournamentdomain.TournamentID) ([]tournamentdomain.Intent, error) {
	out, _ := f.List(ctx, id)
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, in := range out {
		delete(f.Intents, in.ID)
	}
	return out, nil
}

// ------------------------
// Fake Reports and Scheduler
// ------------------------

// FakeReports returns the rows it was given in the attachment name.
type FakeReports struct {
	PlayerRows []tournamentdomain.PlayerRow
	Counts     []tournamentdomain.ThemeCount
	DeckRows   []tournamentdomain.DeckRow
}

var _ ReportRenderer = (*FakeReports)(nil)

func (f *FakeReports) PlayersCSV(name string, rows []tournamentdomain.PlayerRow) (tournamentdomain.Attachment, error) {
	f.PlayerRows = rows
	return tournamentdomain.Attachment{Filename: name + ".csv"}, nil
}

func (f *FakeReports) ThemePie(name string, counts []tournamentdomain.ThemeCount) (tournamentdomain.Attachment, error) {
	f.Counts = counts
	return tournamentdomain.Attachment{Filename: name + ".png"}, nil
}

func (f *FakeReports) DeckDump(name string, rows []tournamentdomain.DeckRow) (tournamentdomain.Attachment, error) {
	f.DeckRows = rows
	return tournamentdomain.Attachment{Filename: name + ".xlsx"}, nil
}

// FakeTopCutScheduler records scheduled spawns, or runs them with RunFunc.
type FakeTopCutScheduler struct {
	mu        sync.Mutex
	Scheduled []tournamentdomain.TournamentID
	RunFunc   func(ctx context.Context, id tournamentdomain.TournamentID) error
}

var _ TopCutScheduler = (*FakeTopCutScheduler)(nil)

func (f *FakeTopCutScheduler) ScheduleTopCut(ctx context.Context, id tournamentdomain.TournamentID) error {
	f.mu.Lock()
	f.Scheduled = append(f.Scheduled, id)
	fn := f.RunFunc
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, id)
	}
	return nil
}

// ------------------------
// Test harness
// ------------------------

type harness struct {
	repo      *FakeTournamentRepository
	bracket   *FakeBracket
	messenger *FakeMessenger
	timers    *FakeTimers
	intents   *FakeIntentStore
	reports   *FakeReports
	topCut    *FakeTopCutScheduler
	claims    *MemoryClaimStore
	svc       *TournamentService
}

func newHarness() *harness {
	h := &harness{
		repo:      NewFakeTournamentRepository(),
		bracket:   NewFakeBracket(),
		messenger: NewFakeMessenger(),
		timers:    &FakeTimers{},
		intents:   NewFakeIntentStore(),
		reports:   &FakeReports{},
		topCut:    &FakeTopCutScheduler{},
		claims:    NewMemoryClaimStore(),
	}
	h.svc = NewTournamentService(
		nil,
		h.repo,
		Adapters{
			Bracket:   h.bracket,
			Messenger: h.messenger,
			Decks:     deck.NewParser(nil, deck.DefaultRules),
			Reports:   h.reports,
			Claims:    h.claims,
			Intents:   h.intents,
			TopCut:    h.topCut,
			Timers:    h.timers,
		},
		DefaultConfig(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		&observability.NoOpMetrics{},
		noop.NewTracerProvider().Tracer("test"),
	)
	return h
}

// legalDeckURL builds a 40 card main deck of distinct passcodes starting at base.
func legalDeckURL(base uint32) string {
	var r deck.Record
	for i := uint32(0); i < 40; i++ {
		r.Main = append(r.Main, base+i)
	}
	return r.URL()
}

// seedTournament stores a tournament with n confirmed players named "1001",
// "1002"... and registers them on the fake bracket.
func (h *harness) seedTournament(id tournamentdomain.TournamentID, status tournamentdomain.Status, n int) tournamentdomain.Tournament {
	t := tournamentdomain.Tournament{
		ID:              id,
		Name:            "Name " + string(id),
		Description:     "desc",
		Status:          status,
		ServerID:        "server",
		Hosts:           []tournamentdomain.DiscordID{"900"},
		PublicChannels:  []tournamentdomain.ChannelID{"public"},
		PrivateChannels: []tournamentdomain.ChannelID{"private"},
	}
	h.bracket.mu.Lock()
	h.bracket.Existing[id] = true
	for i := 0; i < n; i++ {
		user := tournamentdomain.DiscordID(fmt.Sprintf("%d", 1001+i))
		bracketID := 1 + i
		t.Players = append(t.Players, tournamentdomain.Player{DiscordID: user, BracketID: bracketID, Deck: legalDeckURL(uint32(1000 * (i + 1)))})
		h.bracket.Players[id] = append(h.bracket.Players[id], tournamentdomain.BracketPlayer{BracketID: bracketID, DiscordID: user, Name: "name-" + string(user)})
	}
	h.bracket.mu.Unlock()
	h.repo.Put(t)
	return t
}
