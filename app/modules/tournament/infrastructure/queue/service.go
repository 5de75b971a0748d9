package tournamentqueue

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
	"github.com/Black-And-White-Club/tourney-bot/app/observability"
	"github.com/Black-And-White-Club/tourney-bot/app/observability/attr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/uptrace/bun"
)

const (
	queueName   = "tournament"
	metricsName = "river"
)

// QueueService schedules background work for the tournament module.
type QueueService interface {
	// ScheduleTopCut enqueues the top cut of a completed tournament. Scheduling
	// the same tournament twice is a no-op.
	ScheduleTopCut(ctx context.Context, id tournamentdomain.TournamentID) error
	// GetScheduledJobs returns the job rows of a tournament (for debugging)
	GetScheduledJobs(ctx context.Context, id tournamentdomain.TournamentID) ([]JobInfo, error)
	// HealthCheck verifies the queue tables are reachable
	HealthCheck(ctx context.Context) error
	Bind(target Target)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

var _ QueueService = (*Service)(nil)

// Config tunes the periodic sweep.
type Config struct {
	SweepInterval time.Duration
	SweepAge      time.Duration
}

// Service handles job scheduling for the tournament module using River
type Service struct {
	client  *river.Client[pgx.Tx]
	pool    *pgxpool.Pool
	logger  *slog.Logger
	db      bun.IDB
	metrics observability.Metrics
	target  atomic.Pointer[Target]
}

// NewService creates the River client with the top cut worker and the
// periodic intent sweep. Bind must be called before Start.
func NewService(ctx context.Context, db bun.IDB, logger *slog.Logger, dsn string, metrics observability.Metrics, cfg Config) (*Service, error) {
	ctxLogger := logger.With(
		attr.String("operation", "new_tournament_queue_service"),
		attr.String("component", "river_queue"),
	)

	start := time.Now()
	metrics.RecordOperationAttempt(ctx, "initialize_service", metricsName)

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		metrics.RecordOperationFailure(ctx, "initialize_service", metricsName)
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		metrics.RecordOperationFailure(ctx, "initialize_service", metricsName)
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		metrics.RecordOperationFailure(ctx, "initialize_service", metricsName)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Service{
		pool:    pool,
		logger:  ctxLogger,
		db:      db,
		metrics: metrics,
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewTopCutWorker(ctxLogger, s.boundTarget))
	river.AddWorker(workers, NewIntentSweepWorker(ctxLogger, s.boundTarget, cfg.SweepAge))

	var periodic []*river.PeriodicJob
	if cfg.SweepInterval > 0 {
		periodic = append(periodic, river.NewPeriodicJob(
			river.PeriodicInterval(cfg.SweepInterval),
			func() (river.JobArgs, *river.InsertOpts) {
				return IntentSweepJob{}, &river.InsertOpts{Queue: queueName}
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		))
	}

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
			queueName:          {MaxWorkers: 5},
		},
		Workers:      workers,
		PeriodicJobs: periodic,
		Logger:       ctxLogger,
	})
	if err != nil {
		pool.Close()
		metrics.RecordOperationFailure(ctx, "initialize_service", metricsName)
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}
	s.client = client

	metrics.RecordOperationSuccess(ctx, "initialize_service", metricsName)
	metrics.RecordOperationDuration(ctx, "initialize_service", metricsName, time.Since(start))
	ctxLogger.Info("Tournament queue service initialized")
	return s, nil
}

// Bind sets the service the workers call into.
func (s *Service) Bind(target Target) {
	s.target.Store(&target)
}

func (s *Service) boundTarget() Target {
	t := s.target.Load()
	if t == nil {
		return nil
	}
	return *t
}

func (s *Service) Start(ctx context.Context) error {
	s.metrics.RecordOperationAttempt(ctx, "start_service", metricsName)
	if err := s.client.Start(ctx); err != nil {
		s.metrics.RecordOperationFailure(ctx, "start_service", metricsName)
		return fmt.Errorf("failed to start River client: %w", err)
	}
	s.metrics.RecordOperationSuccess(ctx, "start_service", metricsName)
	s.logger.Info("Tournament queue service started")
	return nil
}

func (s *Service) Stop(ctx context.Context) error {
	s.metrics.RecordOperationAttempt(ctx, "stop_service", metricsName)
	err := s.client.Stop(ctx)
	s.pool.Close()
	if err != nil {
		s.metrics.RecordOperationFailure(ctx, "stop_service", metricsName)
		return fmt.Errorf("failed to stop River client: %w", err)
	}
	s.metrics.RecordOperationSuccess(ctx, "stop_service", metricsName)
	s.logger.Info("Tournament queue service stopped")
	return nil
}

func (s *Service) ScheduleTopCut(ctx context.Context, id tournamentdomain.TournamentID) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "schedule_top_cut", metricsName)

	ctxLogger := s.logger.With(
		attr.TournamentID(string(id)),
		attr.String("operation", "schedule_top_cut"),
	)

	res, err := s.client.Insert(ctx, TopCutSpawnJob{TournamentID: id}, &river.InsertOpts{
		Queue:       queueName,
		MaxAttempts: 1,
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
		},
	})
	if err != nil {
		ctxLogger.ErrorContext(ctx, "Failed to schedule top cut job", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "schedule_top_cut", metricsName)
		return fmt.Errorf("failed to schedule top cut job: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "schedule_top_cut", metricsName)
	s.metrics.RecordOperationDuration(ctx, "schedule_top_cut", metricsName, time.Since(start))
	ctxLogger.InfoContext(ctx, "Top cut job scheduled",
		attr.Int64("job_id", res.Job.ID),
		attr.Bool("duplicate", res.UniqueSkippedAsDuplicate),
	)
	return nil
}

func (s *Service) GetScheduledJobs(ctx context.Context, id tournamentdomain.TournamentID) ([]JobInfo, error) {
	type riverJobRow struct {
		ID          int64          `bun:"id"`
		Kind        string         `bun:"kind"`
		State       string         `bun:"state"`
		Args        map[string]any `bun:"args"`
		CreatedAt   time.Time      `bun:"created_at"`
		Attempt     int16          `bun:"attempt"`
		MaxAttempts int16          `bun:"max_attempts"`
	}

	var rows []riverJobRow
	err := s.db.NewSelect().
		Table("river_job").
		Column("id", "kind", "state", "args", "created_at", "attempt", "max_attempts").
		Where("kind = ?", TopCutSpawnJob{}.Kind()).
		Where("args->>'tournament_id' = ?", string(id)).
		Order("created_at ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to query scheduled jobs: %w", err)
	}

	out := make([]JobInfo, len(rows))
	for i, r := range rows {
		out[i] = JobInfo{
			ID:           r.ID,
			Kind:         r.Kind,
			TournamentID: string(id),
			State:        r.State,
			CreatedAt:    r.CreatedAt.Format(time.RFC3339),
			Attempt:      int(r.Attempt),
			MaxAttempts:  int(r.MaxAttempts),
		}
	}
	return out, nil
}

func (s *Service) HealthCheck(ctx context.Context) error {
	var count int
	err := s.db.NewSelect().
		Table("river_job").
		ColumnExpr("COUNT(*)").
		Scan(ctx, &count)
	if err != nil {
		return fmt.Errorf("queue service health check failed: %w", err)
	}
	return nil
}
