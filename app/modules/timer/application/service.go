package timerservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	timerdb "github.com/Black-And-White-Club/tourney-bot/app/modules/timer/infrastructure/repositories"
	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
	"github.com/Black-And-White-Club/tourney-bot/app/observability/attr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TimerService keeps the in-memory tickers, partitioned by tournament.
type TimerService struct {
	repo      timerdb.Repository
	messenger Messenger
	clock     Clock
	logger    *slog.Logger
	tracer    trace.Tracer

	mu     sync.Mutex
	timers map[tournamentdomain.TournamentID]map[int64]*Timer
}

var _ Service = (*TimerService)(nil)

// NewTimerService creates a TimerService. A nil clock uses the real one.
func NewTimerService(repo timerdb.Repository, messenger Messenger, clock Clock, logger *slog.Logger, tracer trace.Tracer) *TimerService {
	if clock == nil {
		clock = RealClock{}
	}
	return &TimerService{
		repo:      repo,
		messenger: messenger,
		clock:     clock,
		logger:    logger,
		tracer:    tracer,
		timers:    make(map[tournamentdomain.TournamentID]map[int64]*Timer),
	}
}

// FormatRemaining renders a duration as MM:SS, clamped at 00:00.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	minutes := int64(d / time.Minute)
	seconds := int64(d/time.Second) % 60
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

func countdownText(d time.Duration) string {
	return fmt.Sprintf("Time left in the round: `%s`", FormatRemaining(d))
}

// CreateTimer posts the countdown, persists it and starts ticking.
func (s *TimerService) CreateTimer(
	ctx context.Context,
	end time.Time,
	channel tournamentdomain.ChannelID,
	finalMessage string,
	interval time.Duration,
	tournamentID tournamentdomain.TournamentID,
) (*Timer, error) {
	ctx, span := s.tracer.Start(ctx, "CreateTimer", trace.WithAttributes(
		attribute.String("tournament_id", string(tournamentID)),
		attribute.String("channel_id", string(channel)),
	))
	defer span.End()

	if interval <= 0 {
		return nil, errors.New("timer interval must be positive")
	}

	messageID, err := s.messenger.SendMessage(ctx, channel, countdownText(end.Sub(s.clock.Now())))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to post countdown: %w", err)
	}

	record := &timerdb.RoundTimer{
		TournamentID:         tournamentID,
		ChannelID:            channel,
		MessageID:            messageID,
		End:                  end,
		FinalMessage:         finalMessage,
		UpdateIntervalMillis: interval.Milliseconds(),
	}
	if err := s.repo.CreateTimer(ctx, nil, record); err != nil {
		span.RecordError(err)
		return nil, err
	}

	t := s.track(*record)
	t.start(context.WithoutCancel(ctx))
	s.logger.InfoContext(ctx, "Round timer started",
		attr.ExtractCorrelationID(ctx),
		attr.TournamentID(string(tournamentID)),
		attr.String("channel_id", string(channel)),
		attr.Time("end", end),
	)
	return t, nil
}

// CancelTournament aborts every timer the tournament owns.
func (s *TimerService) CancelTournament(ctx context.Context, tournamentID tournamentdomain.TournamentID) error {
	ctx, span := s.tracer.Start(ctx, "CancelTournamentTimers", trace.WithAttributes(
		attribute.String("tournament_id", string(tournamentID)),
	))
	defer span.End()

	s.mu.Lock()
	owned := s.timers[tournamentID]
	delete(s.timers, tournamentID)
	s.mu.Unlock()

	var errs []error
	for _, t := range owned {
		if err := t.Abort(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		span.RecordError(err)
		return err
	}
	if len(owned) > 0 {
		s.logger.InfoContext(ctx, "Round timers cancelled",
			attr.ExtractCorrelationID(ctx),
			attr.TournamentID(string(tournamentID)),
			attr.Int("count", len(owned)),
		)
	}
	return nil
}

// LoadAll rebuilds tickers from the stored records. Expired records are deleted
// without sending their final message; records whose tournament is no longer
// live are deleted too. Returns the number of timers restored.
func (s *TimerService) LoadAll(ctx context.Context, live LiveCheck) (int, error) {
	ctx, span := s.tracer.Start(ctx, "LoadAllTimers")
	defer span.End()

	records, err := s.repo.ListTimers(ctx, nil)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	now := s.clock.Now()
	restored := 0
	for _, record := range records {
		prune := !record.End.After(now)
		if !prune && live != nil {
			ok, err := live(ctx, record.TournamentID)
			if err != nil {
				s.logger.WarnContext(ctx, "Could not check timer owner, restoring anyway",
					attr.TournamentID(string(record.TournamentID)),
					attr.Error(err),
				)
			} else if !ok {
				prune = true
			}
		}
		if prune {
			if err := s.repo.DeleteTimer(ctx, nil, record.ID); err != nil {
				s.logger.ErrorContext(ctx, "Failed to prune round timer",
					attr.Int64("timer_id", record.ID),
					attr.Error(err),
				)
			}
			continue
		}
		s.track(record).start(context.WithoutCancel(ctx))
		restored++
	}

	s.logger.InfoContext(ctx, "Round timers restored",
		attr.Int("restored", restored),
		attr.Int("pruned", len(records)-restored),
	)
	return restored, nil
}

// Active counts the running timers of a tournament.
func (s *TimerService) Active(tournamentID tournamentdomain.TournamentID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers[tournamentID])
}

// Stop halts every ticker but keeps the records so LoadAll can resume them.
func (s *TimerService) Stop() {
	s.mu.Lock()
	all := s.timers
	s.timers = make(map[tournamentdomain.TournamentID]map[int64]*Timer)
	s.mu.Unlock()

	for _, owned := range all {
		for _, t := range owned {
			t.halt()
		}
	}
}

func (s *TimerService) track(record timerdb.RoundTimer) *Timer {
	t := &Timer{svc: s, record: record, active: true, stop: make(chan struct{})}
	s.mu.Lock()
	defer s.mu.Unlock()
	owned, ok := s.timers[record.TournamentID]
	if !ok {
		owned = make(map[int64]*Timer)
		s.timers[record.TournamentID] = owned
	}
	owned[record.ID] = t
	return t
}

func (s *TimerService) forget(t *Timer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owned := s.timers[t.record.TournamentID]
	if owned[t.record.ID] == t {
		delete(owned, t.record.ID)
	}
	if len(owned) == 0 {
		delete(s.timers, t.record.TournamentID)
	}
}
