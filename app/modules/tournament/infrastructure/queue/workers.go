package tournamentqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
	"github.com/Black-And-White-Club/tourney-bot/app/observability/attr"
	"github.com/riverqueue/river"
)

// Target is the part of the tournament service the workers drive.
type Target interface {
	SpawnTopCut(ctx context.Context, id tournamentdomain.TournamentID) (tournamentdomain.TournamentID, error)
	SweepIntents(ctx context.Context, age time.Duration) (int, error)
}

var errNoTarget = errors.New("queue target not bound")

// TopCutWorker runs top_cut_spawn jobs.
type TopCutWorker struct {
	river.WorkerDefaults[TopCutSpawnJob]
	logger *slog.Logger
	target func() Target
}

func NewTopCutWorker(logger *slog.Logger, target func() Target) *TopCutWorker {
	return &TopCutWorker{logger: logger, target: target}
}

func (w *TopCutWorker) Work(ctx context.Context, job *river.Job[TopCutSpawnJob]) error {
	t := w.target()
	if t == nil {
		return errNoTarget
	}
	logger := w.logger.With(
		attr.TournamentID(string(job.Args.TournamentID)),
		attr.Int64("job_id", job.ID),
	)

	created, err := t.SpawnTopCut(ctx, job.Args.TournamentID)
	if err != nil {
		// A user-facing rejection means the tournament no longer qualifies.
		if msg, ok := tournamentdomain.UserMessage(err); ok {
			logger.InfoContext(ctx, "Top cut skipped", attr.String("reason", msg))
			return nil
		}
		logger.ErrorContext(ctx, "Top cut spawn failed", attr.Error(err))
		return fmt.Errorf("failed to spawn top cut: %w", err)
	}
	if created != "" {
		logger.InfoContext(ctx, "Top cut spawned", attr.String("top_cut_id", string(created)))
	}
	return nil
}

// IntentSweepWorker runs the periodic intent_sweep job.
type IntentSweepWorker struct {
	river.WorkerDefaults[IntentSweepJob]
	logger *slog.Logger
	target func() Target
	age    time.Duration
}

func NewIntentSweepWorker(logger *slog.Logger, target func() Target, age time.Duration) *IntentSweepWorker {
	return &IntentSweepWorker{logger: logger, target: target, age: age}
}

func (w *IntentSweepWorker) Work(ctx context.Context, job *river.Job[IntentSweepJob]) error {
	t := w.target()
	if t == nil {
		return errNoTarget
	}
	n, err := t.SweepIntents(ctx, w.age)
	if err != nil {
		w.logger.ErrorContext(ctx, "Intent sweep failed", attr.Error(err))
		return err
	}
	if n > 0 {
		w.logger.WarnContext(ctx, "Reported stale intents", attr.Int("count", n))
	}
	return nil
}

// Timeout keeps a sweep from outliving its interval.
func (w *IntentSweepWorker) Timeout(*river.Job[IntentSweepJob]) time.Duration {
	return time.Minute
}
