package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Black-And-White-Club/tourney-bot/app/eventbus"
	"github.com/Black-And-White-Club/tourney-bot/app/modules/tournament"
	"github.com/Black-And-White-Club/tourney-bot/app/observability"
	"github.com/Black-And-White-Club/tourney-bot/app/observability/attr"
	"github.com/Black-And-White-Club/tourney-bot/config"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

const appType = "tourney-bot"

// App owns the process-wide resources and the modules built on them.
type App struct {
	Config        *config.Config
	Observability *observability.Observability
	DB            *bun.DB
	EventBus      eventbus.EventBus
	Router        *message.Router

	TournamentModule *tournament.Module

	opsServer *observability.Server
	modules   []Module
}

// NewApp connects to Postgres and NATS, creates the streams and builds every module.
func NewApp(ctx context.Context, cfg *config.Config, obs *observability.Observability) (*App, error) {
	logger := obs.Logger

	pgdb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.DSN)))
	db := bun.NewDB(pgdb, pgdialect.New())
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.InfoContext(ctx, "Database connected")

	natsType := cfg.NATS.AppType
	if natsType == "" {
		natsType = appType
	}
	bus, err := eventbus.NewEventBus(ctx, cfg.NATS.URL, logger, natsType, obs.Metrics, obs.Tracer)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}
	if err := eventbus.InitializeStreams(ctx, bus); err != nil {
		bus.Close()
		db.Close()
		return nil, err
	}

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, watermill.NewSlogLogger(logger))
	if err != nil {
		bus.Close()
		db.Close()
		return nil, fmt.Errorf("failed to create router: %w", err)
	}

	tournamentModule, err := tournament.NewTournamentModule(ctx, cfg, obs, db, bus, router, ctx)
	if err != nil {
		bus.Close()
		db.Close()
		return nil, fmt.Errorf("failed to initialize tournament module: %w", err)
	}

	checks := map[string]observability.HealthCheck{
		"postgres": db.PingContext,
		"nats": func(context.Context) error {
			if !bus.Conn().IsConnected() {
				return errors.New("not connected")
			}
			return nil
		},
	}
	for name, check := range tournamentModule.HealthChecks() {
		checks[name] = check
	}

	return &App{
		Config:           cfg,
		Observability:    obs,
		DB:               db,
		EventBus:         bus,
		Router:           router,
		TournamentModule: tournamentModule,
		opsServer:        observability.NewServer(cfg.Observability.MetricsAddress, obs.Registry, logger, checks),
		modules:          []Module{tournamentModule},
	}, nil
}

// Close shuts the modules down, then the router, the event bus and the database.
func (a *App) Close() error {
	logger := a.Observability.Logger
	var errs []error

	for _, m := range a.modules {
		if err := m.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.Router.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close router: %w", err))
	}
	if err := a.EventBus.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close event bus: %w", err))
	}
	if err := a.DB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}

	err := errors.Join(errs...)
	if err != nil {
		logger.Error("Shutdown finished with errors", attr.Error(err))
	}
	return err
}
