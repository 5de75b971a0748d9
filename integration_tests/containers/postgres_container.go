package containers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	pgDatabase = "tourney"
	pgUser     = "tourney"
	pgPassword = "tourney"
	pgImage    = "postgres:16-alpine"
)

// SetupPostgresContainer starts Postgres and returns the container and a DSN
// with TLS disabled. The caller terminates the container.
func SetupPostgresContainer(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	pgContainer, err := postgres.Run(ctx,
		pgImage,
		postgres.WithDatabase(pgDatabase),
		postgres.WithUsername(pgUser),
		postgres.WithPassword(pgPassword),
		testcontainers.WithWaitStrategy(
			wait.ForSQL("5432/tcp", "pgx", func(host string, port nat.Port) string {
				return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
					pgUser, pgPassword, host, port.Port(), pgDatabase)
			}).WithStartupTimeout(45*time.Second),
		),
	)
	if err != nil {
		if pgContainer != nil {
			_ = pgContainer.Terminate(ctx)
		}
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, "", fmt.Errorf("failed to get postgres connection string: %w", err)
	}

	log.Printf("Postgres container ready: %s", dsn)
	return pgContainer, dsn, nil
}
