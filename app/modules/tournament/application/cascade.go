package tournamentservice

import (
	"context"
	"fmt"

	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
	"github.com/Black-And-White-Club/tourney-bot/app/observability/attr"
)

// SpawnTopCut creates and starts the elimination follow-up of a finished
// tournament with its best players and their original decks. It returns the
// new tournament ID, or "" when id does not qualify.
func (s *TournamentService) SpawnTopCut(ctx context.Context, id tournamentdomain.TournamentID) (tournamentdomain.TournamentID, error) {
	return withTelemetry(s, ctx, "SpawnTopCut", id, func(ctx context.Context) (tournamentdomain.TournamentID, error) {
		old, err := s.getTournament(ctx, id, tournamentdomain.StatusComplete)
		if err != nil {
			return "", err
		}
		if old.TopCut || len(old.Players) <= s.cfg.TopCutThreshold {
			s.logger.InfoContext(ctx, "Tournament does not qualify for a top cut",
				attr.ExtractCorrelationID(ctx),
				attr.TournamentID(string(id)),
				attr.Int("players", len(old.Players)),
			)
			return "", nil
		}

		intent, err := s.beginIntent(ctx, id, "top_cut")
		if err != nil {
			return "", err
		}

		top, err := s.bracket.GetTopCut(ctx, id, s.cfg.TopCutSize)
		if err != nil {
			return "", fmt.Errorf("failed to read top cut: %w", err)
		}

		created, err := s.createTournament(ctx, newTournament{
			host:            old.PrimaryHost(),
			server:          old.ServerID,
			name:            old.Name + " Top Cut",
			description:     "Top Cut for " + old.Name,
			topCut:          true,
			hosts:           old.Hosts,
			publicChannels:  old.PublicChannels,
			privateChannels: old.PrivateChannels,
		})
		if err != nil {
			return "", err
		}
		s.stepIntent(ctx, intent, "created")

		defer s.lockTournament(created.ID)()

		t, err := s.getTournament(ctx, created.ID)
		if err != nil {
			return "", err
		}
		for _, p := range top {
			previous := old.FindPlayer(p.DiscordID)
			if previous == nil {
				return "", fmt.Errorf("top cut player %s is not confirmed in %s", p.DiscordID, id)
			}
			bracketID, err := s.bracket.RegisterPlayer(ctx, created.ID, s.username(ctx, p.DiscordID), p.DiscordID)
			if err != nil {
				return "", fmt.Errorf("failed to register %s in top cut: %w", p.DiscordID, err)
			}
			if err := s.repo.ConfirmPlayer(ctx, s.db, created.ID, p.DiscordID, bracketID, previous.Deck); err != nil {
				return "", fmt.Errorf("failed to confirm %s in top cut: %w", p.DiscordID, err)
			}
			s.grantPlayerRole(ctx, t, p.DiscordID)
		}
		s.stepIntent(ctx, intent, "players_registered")

		// No registration messages: players are already confirmed.
		if err := s.repo.SetStatus(ctx, s.db, created.ID, tournamentdomain.StatusPreparing, tournamentdomain.StatusRegistrationOpen); err != nil {
			return "", notFound(created.ID, err)
		}
		if err := s.startTournament(ctx, created.ID); err != nil {
			return "", err
		}

		s.completeIntent(ctx, intent)
		return created.ID, nil
	})
}
