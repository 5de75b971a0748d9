package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"log/slog"
	"testing"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/testcontainers/testcontainers-go/modules/nats"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"go.opentelemetry.io/otel/trace/noop"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Black-And-White-Club/tourney-bot/app/eventbus"
	"github.com/Black-And-White-Club/tourney-bot/app/observability"
	"github.com/Black-And-White-Club/tourney-bot/config"
	"github.com/Black-And-White-Club/tourney-bot/integration_tests/containers"
)

// TestEnvironment holds all resources needed for integration testing
type TestEnvironment struct {
	Ctx           context.Context
	CancelContext context.CancelFunc
	PgContainer   *postgres.PostgresContainer
	NatsContainer *nats.NATSContainer
	DB            *bun.DB
	EventBus      eventbus.EventBus
	JetStream     jetstream.JetStream
	Config        *config.Config
	Observability *observability.Observability
}

// NewTestEnvironment starts Postgres and NATS, migrates the schema and
// creates the streams. Close releases everything.
func NewTestEnvironment(parent context.Context) (*TestEnvironment, error) {
	ctx, cancel := context.WithCancel(parent)
	env := &TestEnvironment{Ctx: ctx, CancelContext: cancel}
	if err := env.setup(ctx); err != nil {
		env.Close()
		return nil, fmt.Errorf("failed to set up test environment: %w", err)
	}
	return env, nil
}

func (env *TestEnvironment) setup(ctx context.Context) error {
	pgContainer, dsn, err := containers.SetupPostgresContainer(ctx)
	if err != nil {
		return err
	}
	env.PgContainer = pgContainer

	natsContainer, natsURL, err := containers.SetupNatsContainer(ctx)
	if err != nil {
		return err
	}
	env.NatsContainer = natsContainer

	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sql DB connection: %w", err)
	}
	env.DB = bun.NewDB(sqlDB, pgdialect.New())

	if err := runMigrations(ctx, env.DB, dsn); err != nil {
		return err
	}

	cfg := config.Defaults()
	cfg.Postgres.DSN = dsn
	cfg.NATS.URL = natsURL
	cfg.NATS.AppType = "tourney-test"
	env.Config = cfg

	env.Observability = &observability.Observability{
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Tracer:  noop.NewTracerProvider().Tracer("test"),
		Metrics: observability.NoOpMetrics{},
	}

	bus, err := eventbus.NewEventBus(ctx, natsURL, env.Observability.Logger, cfg.NATS.AppType, env.Observability.Metrics, env.Observability.Tracer)
	if err != nil {
		return err
	}
	env.EventBus = bus
	env.JetStream = bus.JetStream()

	return eventbus.InitializeStreams(ctx, bus)
}

// Reset empties the database, streams and buckets between tests.
func (env *TestEnvironment) Reset(t *testing.T) {
	t.Helper()
	if err := CleanupDatabase(env.Ctx, env.DB); err != nil {
		t.Fatalf("cleanup database: %v", err)
	}
	if err := env.PurgeJetStreamStreams(env.Ctx, eventbus.DiscordStream, eventbus.TourneyStream); err != nil {
		t.Fatalf("purge streams: %v", err)
	}
	if err := env.ResetKeyValue(env.Ctx); err != nil {
		t.Fatalf("reset buckets: %v", err)
	}
}

// Close releases connections and terminates the containers.
func (env *TestEnvironment) Close() {
	if env.EventBus != nil {
		if err := env.EventBus.Close(); err != nil {
			log.Printf("Error closing EventBus: %v", err)
		}
	}
	if env.DB != nil {
		env.DB.Close()
	}
	ctx := context.Background()
	if env.NatsContainer != nil {
		if err := env.NatsContainer.Terminate(ctx); err != nil {
			log.Printf("Failed to terminate NATS container: %v", err)
		}
	}
	if env.PgContainer != nil {
		if err := env.PgContainer.Terminate(ctx); err != nil {
			log.Printf("Failed to terminate Postgres container: %v", err)
		}
	}
	env.CancelContext()
}
