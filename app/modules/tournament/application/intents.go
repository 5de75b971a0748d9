package tournamentservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
	tournamentdb "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/infrastructure/repositories"
	"github.com/Black-And-White-Club/tourney-bot/app/observability/attr"
)

// SweepIntents tells the hosts about operations that stopped progressing more
// than age ago. Each reported intent is touched so it is not reported again
// until another age has passed. Returns the number of intents reported.
func (s *TournamentService) SweepIntents(ctx context.Context, age time.Duration) (int, error) {
	return withTelemetry(s, ctx, "SweepIntents", "", func(ctx context.Context) (int, error) {
		if s.intents == nil {
			return 0, nil
		}
		intents, err := s.intents.List(ctx, "")
		if err != nil {
			return 0, fmt.Errorf("failed to list intents: %w", err)
		}
		now := s.now()
		reported := 0
		for i := range intents {
			in := &intents[i]
			if !in.Stale(now, age) {
				continue
			}
			t, err := s.repo.GetTournament(ctx, s.db, in.TournamentID)
			if errors.Is(err, tournamentdb.ErrNotFound) {
				// The create never got persisted; nothing to reconcile.
				s.logger.WarnContext(ctx, "Dropping intent of unknown tournament",
					attr.ExtractCorrelationID(ctx),
					attr.TournamentID(string(in.TournamentID)),
					attr.String("operation", in.Operation),
					attr.String("step", in.Step),
				)
				s.completeIntent(ctx, in)
				continue
			}
			if err != nil {
				return reported, fmt.Errorf("failed to load tournament %s: %w", in.TournamentID, err)
			}
			s.announce(ctx, t.PrivateChannels, fmt.Sprintf(
				"An operation (%s, last step %s) on Tournament %s (%s) did not finish. Run `mc!sync %s` to bring the bot back in line with the bracket.",
				in.Operation, stepLabel(in.Step), t.Name, t.ID, t.ID,
			))
			s.stepIntent(ctx, in, in.Step)
			reported++
		}
		return reported, nil
	})
}

func stepLabel(step string) string {
	if step == "" {
		return "started"
	}
	return step
}

// DescribeIntents renders cleared intents for a sync reply.
func DescribeIntents(intents []tournamentdomain.Intent) string {
	out := ""
	for i, in := range intents {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s (step %s)", in.Operation, stepLabel(in.Step))
	}
	return out
}
