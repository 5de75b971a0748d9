package tournament

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Black-And-White-Club/tourney-bot/app/eventbus"
	"github.com/Black-And-White-Club/tourney-bot/app/modules/deck"
	timerservice "github.com/Black-And-White-Club/tourney-bot/app/modules/timer/application"
	timerdb "github.com/Black-And-White-Club/tourney-bot/app/modules/timer/infrastructure/repositories"
	tournamentservice "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/application"
	"github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/infrastructure/challonge"
	tournamenthandlers "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/infrastructure/handlers"
	"github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/infrastructure/kvstore"
	"github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/infrastructure/messenger"
	tournamentqueue "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/infrastructure/queue"
	"github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/infrastructure/reports"
	tournamentdb "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/infrastructure/repositories"
	tournamentrouter "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/infrastructure/router"
	"github.com/Black-And-White-Club/tourney-bot/app/observability"
	"github.com/Black-And-White-Club/tourney-bot/app/observability/attr"
	"github.com/Black-And-White-Club/tourney-bot/config"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/uptrace/bun"
)

const queueStopTimeout = 10 * time.Second

// Module represents the tournament module.
type Module struct {
	EventBus          eventbus.EventBus
	TournamentService tournamentservice.Service
	TournamentRouter  *tournamentrouter.TournamentRouter
	QueueService      tournamentqueue.QueueService
	TimerService      timerservice.Service
	config            *config.Config
	cancelFunc        context.CancelFunc
	observability     *observability.Observability
}

// NewTournamentModule wires the tournament service to its adapters and
// registers its handlers on router.
func NewTournamentModule(
	ctx context.Context,
	cfg *config.Config,
	obs *observability.Observability,
	db *bun.DB,
	eventBus eventbus.EventBus,
	router *message.Router,
	routerCtx context.Context,
) (*Module, error) {
	logger := obs.Logger.With(attr.String("module", "tournament"))
	metrics := obs.Metrics
	tracer := obs.Tracer

	logger.InfoContext(ctx, "tournament.NewTournamentModule called")

	cards, err := deck.LoadCardIndex(cfg.Decks.CardIndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load card index: %w", err)
	}

	gateway := messenger.NewClient(eventBus.Conn(), messenger.Config{
		SubjectPrefix: cfg.Discord.SubjectPrefix,
		Timeout:       cfg.Discord.RequestTimeout,
		OrganiserRole: cfg.Discord.OrganiserRole,
	}, logger)

	bracket := challonge.NewClient(challonge.Config{
		BaseURL:           cfg.Challonge.BaseURL,
		Username:          cfg.Challonge.Username,
		APIKey:            cfg.Challonge.APIKey,
		Timeout:           cfg.Challonge.Timeout,
		RequestsPerSecond: cfg.Challonge.RequestsPerSecond,
	}, logger)

	claimsKV, intentsKV, err := kvstore.Buckets(ctx, eventBus.JetStream())
	if err != nil {
		return nil, err
	}
	var claims tournamentservice.ClaimStore = tournamentservice.NewMemoryClaimStore()
	if cfg.Tournament.DurableClaims {
		claims = kvstore.NewClaimStore(claimsKV)
	}

	queue, err := tournamentqueue.NewService(ctx, db, logger, cfg.Postgres.DSN, metrics, tournamentqueue.Config{
		SweepInterval: cfg.Tournament.SweepInterval,
		SweepAge:      cfg.Tournament.SweepAge,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create queue service: %w", err)
	}

	timers := timerservice.NewTimerService(&timerdb.TimerDBImpl{DB: db}, gateway, nil, logger, tracer)

	service := tournamentservice.NewTournamentService(
		db,
		&tournamentdb.TournamentDBImpl{DB: db},
		tournamentservice.Adapters{
			Bracket:   bracket,
			Messenger: gateway,
			Decks:     deck.NewParser(cards, deck.DefaultRules),
			Reports:   reports.NewRenderer(reports.DefaultPalette),
			Claims:    claims,
			Intents:   kvstore.NewIntentStore(intentsKV, logger),
			TopCut:    queue,
			Timers:    timers,
		},
		tournamentservice.Config{
			RoundLength:     cfg.Tournament.RoundLength,
			TickInterval:    cfg.Tournament.TickInterval,
			TopCutThreshold: cfg.Tournament.TopCutThreshold,
			TopCutSize:      cfg.Tournament.TopCutSize,
		},
		logger,
		metrics,
		tracer,
	)
	queue.Bind(service)

	handlers := tournamenthandlers.NewTournamentHandlers(service, logger, tournamenthandlers.Config{
		Prefix: cfg.Discord.Prefix,
	})

	tournamentRouter := tournamentrouter.NewTournamentRouter(logger, router, eventBus, eventBus, tracer, metrics, obs.Registry)
	if err := tournamentRouter.Configure(routerCtx, handlers); err != nil {
		return nil, fmt.Errorf("failed to configure tournament router: %w", err)
	}

	return &Module{
		EventBus:          eventBus,
		TournamentService: service,
		TournamentRouter:  tournamentRouter,
		QueueService:      queue,
		TimerService:      timers,
		config:            cfg,
		observability:     obs,
	}, nil
}

// HealthChecks returns the checks served on /healthz.
func (m *Module) HealthChecks() map[string]observability.HealthCheck {
	return map[string]observability.HealthCheck{
		"queue": m.QueueService.HealthCheck,
	}
}

// Run restores timers and registration messages, starts the job queue and
// blocks until ctx is cancelled.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	logger := m.observability.Logger
	logger.InfoContext(ctx, "Starting tournament module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	if n, err := m.TournamentService.RestoreTimers(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to restore round timers", attr.Error(err))
	} else {
		logger.InfoContext(ctx, "Round timers restored", attr.Int("count", n))
	}
	if n, err := m.TournamentService.RestoreRegistrations(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to restore registration messages", attr.Error(err))
	} else {
		logger.InfoContext(ctx, "Registration messages restored", attr.Int("count", n))
	}

	if err := m.QueueService.Start(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to start tournament queue", attr.Error(err))
	}

	<-ctx.Done()
	logger.InfoContext(ctx, "Tournament module goroutine stopped")
}

// Close stops timers, the job queue and the router.
func (m *Module) Close() error {
	logger := m.observability.Logger
	logger.Info("Stopping tournament module")

	if m.cancelFunc != nil {
		m.cancelFunc()
	}

	m.TimerService.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), queueStopTimeout)
	defer cancel()
	if err := m.QueueService.Stop(ctx); err != nil {
		logger.Error("Error stopping tournament queue", attr.Error(err))
	}

	if m.TournamentRouter != nil {
		if err := m.TournamentRouter.Close(); err != nil {
			logger.Error("Error closing TournamentRouter from module", attr.Error(err))
			return fmt.Errorf("error closing TournamentRouter: %w", err)
		}
	}

	logger.Info("Tournament module stopped")
	return nil
}
