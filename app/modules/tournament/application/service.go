package tournamentservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	timerservice "github.com/Black-And-White-Club/tourney-bot/app/modules/timer/application"
	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
	tournamentdb "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/infrastructure/repositories"
	"github.com/Black-And-White-Club/tourney-bot/app/observability"
	"github.com/Black-And-White-Club/tourney-bot/app/observability/attr"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	serviceName = "TournamentService"

	// CheckEmoji is the registration reaction.
	CheckEmoji = "✅"
)

// Config holds the tournament rules that are not stored per tournament.
type Config struct {
	RoundLength     time.Duration
	TickInterval    time.Duration
	TopCutThreshold int
	TopCutSize      int
}

func DefaultConfig() Config {
	return Config{
		RoundLength:     50 * time.Minute,
		TickInterval:    5 * time.Second,
		TopCutThreshold: 8,
		TopCutSize:      8,
	}
}

// Adapters groups the outbound ports of the service.
type Adapters struct {
	Bracket   BracketService
	Messenger Messenger
	Decks     DeckParser
	Reports   ReportRenderer
	Claims    ClaimStore
	Intents   IntentStore
	TopCut    TopCutScheduler
	Timers    timerservice.Service
}

// TournamentService implements the Service interface.
type TournamentService struct {
	db        bun.IDB
	repo      tournamentdb.Repository
	bracket   BracketService
	messenger Messenger
	decks     DeckParser
	reports   ReportRenderer
	claims    ClaimStore
	intents   IntentStore
	topCut    TopCutScheduler
	timers    timerservice.Service
	cfg       Config
	logger    *slog.Logger
	metrics   observability.Metrics
	tracer    trace.Tracer

	now func() time.Time

	tournamentLocks *KeyedMutex
	matchLocks      *KeyedMutex
	userLocks       *KeyedMutex
}

// NewTournamentService creates a new TournamentService. db may be nil, in
// which case the repository uses its own connection.
func NewTournamentService(
	db bun.IDB,
	repo tournamentdb.Repository,
	adapters Adapters,
	cfg Config,
	logger *slog.Logger,
	metrics observability.Metrics,
	tracer trace.Tracer,
) *TournamentService {
	return &TournamentService{
		db:              db,
		repo:            repo,
		bracket:         adapters.Bracket,
		messenger:       adapters.Messenger,
		decks:           adapters.Decks,
		reports:         adapters.Reports,
		claims:          adapters.Claims,
		intents:         adapters.Intents,
		topCut:          adapters.TopCut,
		timers:          adapters.Timers,
		cfg:             cfg,
		logger:          logger,
		metrics:         metrics,
		tracer:          tracer,
		now:             time.Now,
		tournamentLocks: NewKeyedMutex(),
		matchLocks:      NewKeyedMutex(),
		userLocks:       NewKeyedMutex(),
	}
}

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
// User-facing errors are logged at info and not counted as failures.
func withTelemetry[T any](
	s *TournamentService,
	ctx context.Context,
	operationName string,
	id tournamentdomain.TournamentID,
	op func(ctx context.Context) (T, error),
) (result T, err error) {
	ctx, span := s.tracer.Start(ctx, operationName, trace.WithAttributes(
		attribute.String("operation", operationName),
		attribute.String("tournament_id", string(id)),
	))
	defer span.End()

	s.metrics.RecordOperationAttempt(ctx, operationName, serviceName)

	startTime := time.Now()
	defer func() {
		s.metrics.RecordOperationDuration(ctx, operationName, serviceName, time.Since(startTime))
	}()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				attr.ExtractCorrelationID(ctx),
				attr.TournamentID(string(id)),
				attr.Error(err),
			)
			s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
			span.RecordError(err)
			var zero T
			result = zero
		}
	}()

	result, err = op(ctx)
	if err != nil {
		if msg, ok := tournamentdomain.UserMessage(err); ok {
			s.logger.InfoContext(ctx, "Operation rejected",
				attr.ExtractCorrelationID(ctx),
				attr.String("operation", operationName),
				attr.TournamentID(string(id)),
				attr.String("reason", msg),
			)
			s.metrics.RecordOperationSuccess(ctx, operationName, serviceName)
			return result, err
		}
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.TournamentID(string(id)),
			attr.Error(wrappedErr),
		)
		s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	s.logger.InfoContext(ctx, "Operation completed successfully",
		attr.ExtractCorrelationID(ctx),
		attr.String("operation", operationName),
		attr.TournamentID(string(id)),
	)
	s.metrics.RecordOperationSuccess(ctx, operationName, serviceName)
	return result, nil
}

// withTelemetryErr is withTelemetry for operations without a result.
func (s *TournamentService) withTelemetryErr(ctx context.Context, operationName string, id tournamentdomain.TournamentID, op func(ctx context.Context) error) error {
	_, err := withTelemetry(s, ctx, operationName, id, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

func (s *TournamentService) lockTournament(id tournamentdomain.TournamentID) func() {
	return s.tournamentLocks.Lock(string(id))
}

func (s *TournamentService) lockMatch(matchID int) func() {
	return s.matchLocks.Lock(strconv.Itoa(matchID))
}

func (s *TournamentService) lockUser(user tournamentdomain.DiscordID) func() {
	return s.userLocks.Lock(string(user))
}

// getTournament loads a tournament, reporting unknown IDs and status
// mismatches as TournamentNotFoundError.
func (s *TournamentService) getTournament(ctx context.Context, id tournamentdomain.TournamentID, statuses ...tournamentdomain.Status) (*tournamentdomain.Tournament, error) {
	t, err := s.repo.GetTournament(ctx, s.db, id, statuses...)
	if errors.Is(err, tournamentdb.ErrNotFound) {
		return nil, &tournamentdomain.TournamentNotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tournament %s: %w", id, err)
	}
	return t, nil
}

// notFound maps a status-guarded repository miss onto the user-facing error.
func notFound(id tournamentdomain.TournamentID, err error) error {
	if errors.Is(err, tournamentdb.ErrNotFound) {
		return &tournamentdomain.TournamentNotFoundError{ID: id}
	}
	return err
}

// username resolves a display name, falling back to the raw ID.
func (s *TournamentService) username(ctx context.Context, user tournamentdomain.DiscordID) string {
	name, err := s.messenger.Username(ctx, user)
	if err != nil || name == "" {
		if err != nil {
			s.logger.WarnContext(ctx, "Failed to resolve username",
				attr.ExtractCorrelationID(ctx),
				attr.UserID(string(user)),
				attr.Error(err),
			)
		}
		return string(user)
	}
	return name
}

// announce posts content to every channel, logging failures.
func (s *TournamentService) announce(ctx context.Context, channels []tournamentdomain.ChannelID, content string) {
	for _, channel := range channels {
		if _, err := s.messenger.SendMessage(ctx, channel, content); err != nil {
			s.logger.WarnContext(ctx, "Failed to post announcement",
				attr.ExtractCorrelationID(ctx),
				attr.String("channel_id", string(channel)),
				attr.Error(err),
			)
		}
	}
}

func (s *TournamentService) announceFile(ctx context.Context, channels []tournamentdomain.ChannelID, content string, file tournamentdomain.Attachment) {
	for _, channel := range channels {
		if _, err := s.messenger.SendFile(ctx, channel, content, file); err != nil {
			s.logger.WarnContext(ctx, "Failed to post announcement file",
				attr.ExtractCorrelationID(ctx),
				attr.String("channel_id", string(channel)),
				attr.Error(err),
			)
		}
	}
}

// reply sends a direct message whose delivery does not matter to the caller.
func (s *TournamentService) reply(ctx context.Context, user tournamentdomain.DiscordID, content string) {
	if err := s.messenger.DirectMessage(ctx, user, content); err != nil {
		s.logger.WarnContext(ctx, "Failed to send direct message",
			attr.ExtractCorrelationID(ctx),
			attr.UserID(string(user)),
			attr.Error(err),
		)
	}
}

func (s *TournamentService) replyFile(ctx context.Context, user tournamentdomain.DiscordID, content string, file tournamentdomain.Attachment) {
	if err := s.messenger.DirectFile(ctx, user, content, file); err != nil {
		s.logger.WarnContext(ctx, "Failed to send direct file",
			attr.ExtractCorrelationID(ctx),
			attr.UserID(string(user)),
			attr.Error(err),
		)
	}
}

// beginIntent records the start of a multi-step operation. A nil intent is
// returned, and tolerated by the other helpers, when no store is configured.
func (s *TournamentService) beginIntent(ctx context.Context, id tournamentdomain.TournamentID, operation string) (*tournamentdomain.Intent, error) {
	if s.intents == nil {
		return nil, nil
	}
	intent, err := s.intents.Begin(ctx, id, operation)
	if err != nil {
		return nil, fmt.Errorf("failed to record %s intent: %w", operation, err)
	}
	return intent, nil
}

func (s *TournamentService) stepIntent(ctx context.Context, intent *tournamentdomain.Intent, step string) {
	if intent == nil {
		return
	}
	if err := s.intents.Step(ctx, intent, step); err != nil {
		s.logger.WarnContext(ctx, "Failed to update intent",
			attr.ExtractCorrelationID(ctx),
			attr.TournamentID(string(intent.TournamentID)),
			attr.String("operation", intent.Operation),
			attr.String("step", step),
			attr.Error(err),
		)
	}
}

func (s *TournamentService) completeIntent(ctx context.Context, intent *tournamentdomain.Intent) {
	if intent == nil {
		return
	}
	if err := s.intents.Complete(ctx, intent); err != nil {
		s.logger.WarnContext(ctx, "Failed to complete intent",
			attr.ExtractCorrelationID(ctx),
			attr.TournamentID(string(intent.TournamentID)),
			attr.String("operation", intent.Operation),
			attr.Error(err),
		)
	}
}
