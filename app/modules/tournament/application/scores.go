package tournamentservice

import (
	"context"
	"fmt"

	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
	"github.com/Black-And-White-Club/tourney-bot/app/observability/attr"
)

// SubmitScore records a player's view of their open match. A host submission
// is trusted immediately and returns no reply text; otherwise the score is
// committed once both players report the same result.
func (s *TournamentService) SubmitScore(ctx context.Context, id tournamentdomain.TournamentID, user tournamentdomain.DiscordID, own, opp int, host bool) (string, error) {
	return withTelemetry(s, ctx, "SubmitScore", id, func(ctx context.Context) (string, error) {
		t, err := s.getTournament(ctx, id, tournamentdomain.StatusInProgress)
		if err != nil {
			return "", err
		}
		player := t.FindPlayer(user)
		if player == nil {
			return "", &tournamentdomain.UnauthorisedPlayerError{Player: user, TournamentID: id}
		}

		match, err := s.bracket.FindMatch(ctx, id, player.BracketID)
		if err != nil {
			return "", fmt.Errorf("failed to find open match: %w", err)
		}
		mention := tournamentdomain.MentionUser(user)
		if match == nil {
			if host {
				return "", tournamentdomain.NewUserError("Could not find an open match in Tournament %s including %s", t.Name, mention)
			}
			return fmt.Sprintf("Could not find an open match in Tournament %s including you, %s", t.Name, mention), nil
		}

		if host {
			if err := s.bracket.SubmitScore(ctx, id, player.BracketID, own, opp); err != nil {
				return "", fmt.Errorf("failed to submit score: %w", err)
			}
			return "", nil
		}

		defer s.lockMatch(match.ID)()

		claim, err := s.claims.Get(ctx, match.ID)
		if err != nil {
			return "", fmt.Errorf("failed to read score claim: %w", err)
		}

		if claim == nil {
			err := s.claims.Put(ctx, tournamentdomain.MatchScoreClaim{
				MatchID:           match.ID,
				ReporterBracketID: player.BracketID,
				ReporterDiscordID: user,
				OwnScore:          own,
				OppScore:          opp,
			})
			if err != nil {
				return "", fmt.Errorf("failed to store score claim: %w", err)
			}
			return fmt.Sprintf("You have reported a score of %d-%d, %s. Your opponent still needs to confirm this score.", own, opp, mention), nil
		}

		if claim.ReporterBracketID == player.BracketID {
			return fmt.Sprintf("You have already reported your score for this match, %s. Please have your opponent confirm the score.", mention), nil
		}

		if !claim.Mirrors(own, opp) {
			if err := s.claims.Delete(ctx, match.ID); err != nil {
				return "", fmt.Errorf("failed to delete score claim: %w", err)
			}
			return fmt.Sprintf("Your score does not match your opponent's reported score of %d-%d. Both of you will need to report again, %s.",
				claim.OppScore, claim.OwnScore, mention), nil
		}

		// A tie submits equal winner and loser scores for the original reporter.
		weWon := own > opp
		winner, winnerScore, loserScore := claim.ReporterBracketID, opp, own
		if weWon {
			winner, winnerScore, loserScore = player.BracketID, own, opp
		}
		if err := s.bracket.SubmitScore(ctx, id, winner, winnerScore, loserScore); err != nil {
			return "", fmt.Errorf("failed to submit score: %w", err)
		}
		if err := s.claims.Delete(ctx, match.ID); err != nil {
			s.logger.WarnContext(ctx, "Failed to delete committed score claim",
				attr.ExtractCorrelationID(ctx),
				attr.Int("match_id", match.ID),
				attr.Error(err),
			)
		}

		opponent := claim.ReporterDiscordID
		s.reply(ctx, opponent, fmt.Sprintf(
			"Your opponent has successfully confirmed your score of %d-%d for Tournament %s, so the score has been saved. Thank you.",
			opp, own, t.Name,
		))
		s.announce(ctx, t.PrivateChannels, fmt.Sprintf("%s (%s) and %s (%s) have reported their score of %d-%d for Tournament %s (%s).",
			mention, s.username(ctx, user), tournamentdomain.MentionUser(opponent), s.username(ctx, opponent), own, opp, t.Name, t.ID))

		return fmt.Sprintf("You have successfully reported a score of %d-%d, and it matches your opponent's report, so the score has been saved. Thank you, %s.",
			own, opp, mention), nil
	})
}
