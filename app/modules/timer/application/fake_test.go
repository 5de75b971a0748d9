package timerservice

import (
	"context"
	"sync"
	"time"

	timerdb "github.com/Black-And-White-Club/tourney-bot/app/modules/timer/infrastructure/repositories"
	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Clock
// ------------------------

type FakeClock struct {
	NowFn       func() time.Time
	NewTickerFn func(d time.Duration) Ticker
}

func (f *FakeClock) Now() time.Time {
	if f.NowFn != nil {
		return f.NowFn()
	}
	return time.Now()
}

func (f *FakeClock) NewTicker(d time.Duration) Ticker {
	if f.NewTickerFn != nil {
		return f.NewTickerFn(d)
	}
	return &FakeTicker{ch: make(chan time.Time)}
}

// FakeTicker never fires unless the test sends on it.
type FakeTicker struct {
	ch      chan time.Time
	stopped bool
}

func (f *FakeTicker) C() <-chan time.Time { return f.ch }
func (f *FakeTicker) Stop()               { f.stopped = true }

// ------------------------
// Fake Timer Repo
// ------------------------

type FakeTimerRepository struct {
	mu     sync.Mutex
	trace  []string
	nextID int64

	CreateTimerFunc func(ctx context.Context, db bun.IDB, timer *timerdb.RoundTimer) error
	ListTimersFunc  func(ctx context.Context, db bun.IDB) ([]timerdb.RoundTimer, error)
	DeleteTimerFunc func(ctx context.Context, db bun.IDB, id int64) error
}

func NewFakeTimerRepository() *FakeTimerRepository {
	return &FakeTimerRepository{trace: []string{}}
}

func (f *FakeTimerRepository) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

func (f *FakeTimerRepository) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeTimerRepository) CreateTimer(ctx context.Context, db bun.IDB, timer *timerdb.RoundTimer) error {
	f.record("CreateTimer")
	if f.CreateTimerFunc != nil {
		return f.CreateTimerFunc(ctx, db, timer)
	}
	f.mu.Lock()
	f.nextID++
	timer.ID = f.nextID
	f.mu.Unlock()
	return nil
}

func (f *FakeTimerRepository) GetTimer(ctx context.Context, db bun.IDB, id int64) (*timerdb.RoundTimer, error) {
	f.record("GetTimer")
	return nil, timerdb.ErrNotFound
}

func (f *FakeTimerRepository) ListTimers(ctx context.Context, db bun.IDB) ([]timerdb.RoundTimer, error) {
	f.record("ListTimers")
	if f.ListTimersFunc != nil {
		return f.ListTimersFunc(ctx, db)
	}
	return nil, nil
}

func (f *FakeTimerRepository) ListTournamentTimers(ctx context.Context, db bun.IDB, tournamentID tournamentdomain.TournamentID) ([]timerdb.RoundTimer, error) {
	f.record("ListTournamentTimers")
	return nil, nil
}

func (f *FakeTimerRepository) DeleteTimer(ctx context.Context, db bun.IDB, id int64) error {
	f.record("DeleteTimer")
	if f.DeleteTimerFunc != nil {
		return f.DeleteTimerFunc(ctx, db, id)
	}
	return nil
}

var _ timerdb.Repository = (*FakeTimerRepository)(nil)

// ------------------------
// Fake Messenger
// ------------------------

type sentMessage struct {
	Channel tournamentdomain.ChannelID
	Message tournamentdomain.MessageID
	Content string
}

type FakeMessenger struct {
	mu    sync.Mutex
	Sent  []sentMessage
	Edits []sentMessage

	SendMessageFunc func(ctx context.Context, channel tournamentdomain.ChannelID, content string) error
	EditMessageFunc func(ctx context.Context, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID, content string) error
}

func (f *FakeMessenger) SendMessage(ctx context.Context, channel tournamentdomain.ChannelID, content string) (tournamentdomain.MessageID, error) {
	f.mu.Lock()
	f.Sent = append(f.Sent, sentMessage{Channel: channel, Content: content})
	f.mu.Unlock()
	if f.SendMessageFunc != nil {
		if err := f.SendMessageFunc(ctx, channel, content); err != nil {
			return "", err
		}
	}
	return "countdown-msg", nil
}

func (f *FakeMessenger) EditMessage(ctx context.Context, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID, content string) error {
	f.mu.Lock()
	f.Edits = append(f.Edits, sentMessage{Channel: channel, Message: message, Content: content})
	f.mu.Unlock()
	if f.EditMessageFunc != nil {
		return f.EditMessageFunc(ctx, channel, message, content)
	}
	return nil
}
