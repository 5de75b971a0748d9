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

// RoundResult describes the outcome of NextRound.
type RoundResult struct {
	Round     int
	Completed bool
}

// OpenTournament posts registration messages and opens registration.
func (s *TournamentService) OpenTournament(ctx context.Context, id tournamentdomain.TournamentID) error {
	return s.withTelemetryErr(ctx, "OpenTournament", id, func(ctx context.Context) error {
		defer s.lockTournament(id)()

		t, err := s.getTournament(ctx, id, tournamentdomain.StatusPreparing)
		if err != nil {
			return err
		}
		if len(t.PublicChannels) == 0 {
			return tournamentdomain.NewUserError("You must register at least one public announcement channel before opening a tournament for registration!")
		}

		content := fmt.Sprintf("__Registration now open for **%s**!__\n%s\n__Click the %s below to sign up!__", t.Name, t.Description, CheckEmoji)
		var posted []tournamentdomain.RegisterMessage
		for _, channel := range t.PublicChannels {
			msg, err := s.messenger.SendMessage(ctx, channel, content)
			if err != nil {
				s.logger.WarnContext(ctx, "Failed to post registration message",
					attr.ExtractCorrelationID(ctx),
					attr.TournamentID(string(id)),
					attr.String("channel_id", string(channel)),
					attr.Error(err),
				)
				continue
			}
			if err := s.messenger.AddReaction(ctx, channel, msg, CheckEmoji); err != nil {
				s.logger.WarnContext(ctx, "Failed to react to registration message",
					attr.ExtractCorrelationID(ctx),
					attr.String("message_id", string(msg)),
					attr.Error(err),
				)
			}
			posted = append(posted, tournamentdomain.RegisterMessage{ChannelID: channel, MessageID: msg, TournamentID: id})
		}
		if len(posted) == 0 {
			return fmt.Errorf("no registration message could be posted for tournament %s", id)
		}

		// A failed open leaves the tournament preparing.
		if err := s.repo.SetStatus(ctx, s.db, id, tournamentdomain.StatusPreparing, tournamentdomain.StatusRegistrationOpen); err != nil {
			s.retractRegistration(ctx, id, posted, nil, false)
			return notFound(id, err)
		}
		for i, m := range posted {
			if err := s.repo.OpenRegistration(ctx, s.db, id, m.ChannelID, m.MessageID); err != nil {
				s.retractRegistration(ctx, id, posted, posted[:i], true)
				return fmt.Errorf("failed to store registration message: %w", err)
			}
		}

		s.announce(ctx, t.PrivateChannels, openGuide(id))
		return nil
	})
}

// retractRegistration undoes a partial open: it forgets the stored messages,
// moves the tournament back to preparing when reopen is set and deletes every
// posted message.
func (s *TournamentService) retractRegistration(ctx context.Context, id tournamentdomain.TournamentID, posted, stored []tournamentdomain.RegisterMessage, reopen bool) {
	for _, m := range stored {
		if err := s.repo.CleanRegistration(ctx, s.db, m.ChannelID, m.MessageID); err != nil {
			s.logger.ErrorContext(ctx, "Failed to forget registration message",
				attr.ExtractCorrelationID(ctx),
				attr.TournamentID(string(id)),
				attr.String("message_id", string(m.MessageID)),
				attr.Error(err),
			)
		}
	}
	if reopen {
		if err := s.repo.SetStatus(ctx, s.db, id, tournamentdomain.StatusRegistrationOpen, tournamentdomain.StatusPreparing); err != nil {
			s.logger.ErrorContext(ctx, "Failed to restore preparing status",
				attr.ExtractCorrelationID(ctx),
				attr.TournamentID(string(id)),
				attr.Error(err),
			)
		}
	}
	for _, m := range posted {
		if err := s.messenger.DeleteMessage(ctx, m.ChannelID, m.MessageID); err != nil {
			s.logger.WarnContext(ctx, "Failed to delete registration message",
				attr.ExtractCorrelationID(ctx),
				attr.String("message_id", string(m.MessageID)),
				attr.Error(err),
			)
		}
	}
}

// StartTournament closes registration, starts the bracket and runs the first round.
func (s *TournamentService) StartTournament(ctx context.Context, id tournamentdomain.TournamentID) error {
	return s.withTelemetryErr(ctx, "StartTournament", id, func(ctx context.Context) error {
		defer s.lockTournament(id)()
		return s.startTournament(ctx, id)
	})
}

// startTournament expects the caller to hold the tournament lock.
func (s *TournamentService) startTournament(ctx context.Context, id tournamentdomain.TournamentID) error {
	t, err := s.getTournament(ctx, id, tournamentdomain.StatusRegistrationOpen)
	if err != nil {
		return err
	}
	if len(t.Players) < 2 {
		return tournamentdomain.NewUserError("Cannot start a tournament without at least 2 confirmed participants!")
	}

	intent, err := s.beginIntent(ctx, id, "start")
	if err != nil {
		return err
	}

	messages, err := s.repo.RegisterMessages(ctx, s.db, id)
	if err != nil {
		return fmt.Errorf("failed to list registration messages: %w", err)
	}
	for _, m := range messages {
		if err := s.messenger.DeleteMessage(ctx, m.ChannelID, m.MessageID); err != nil && !errors.Is(err, tournamentdomain.ErrMessageNotFound) {
			s.logger.WarnContext(ctx, "Failed to delete registration message",
				attr.ExtractCorrelationID(ctx),
				attr.String("message_id", string(m.MessageID)),
				attr.Error(err),
			)
		}
	}

	dropped, err := s.repo.StartTournament(ctx, s.db, id)
	if err != nil {
		return notFound(id, err)
	}
	s.stepIntent(ctx, intent, "persisted")

	for _, user := range dropped {
		s.reply(ctx, user, fmt.Sprintf("Sorry, Tournament %s has started and you didn't submit a deck, so you have been dropped.", t.Name))
	}

	s.announce(ctx, t.PublicChannels, playerGuide(id))
	s.announce(ctx, t.PrivateChannels, startGuide(id))

	if err := s.bracket.AssignByes(ctx, id, t.Byes); err != nil {
		return fmt.Errorf("failed to assign byes: %w", err)
	}
	if err := s.bracket.StartTournament(ctx, id); err != nil {
		return fmt.Errorf("failed to start bracket: %w", err)
	}
	s.stepIntent(ctx, intent, "bracket_started")

	bt, err := s.bracket.GetTournament(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to read bracket: %w", err)
	}
	matches, err := s.bracket.GetMatches(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to read matches: %w", err)
	}
	t.Status = tournamentdomain.StatusInProgress
	if err := s.startNewRound(ctx, t, bt.URL, matches, false, s.cfg.RoundLength); err != nil {
		return err
	}

	if err := s.bracket.DropByes(ctx, id, len(t.Byes)); err != nil {
		return fmt.Errorf("failed to drop bye placeholders: %w", err)
	}
	s.completeIntent(ctx, intent)
	return nil
}

// NextRound announces a new round, or completes the tournament when the
// bracket has no open matches left. length 0 uses the configured round length.
func (s *TournamentService) NextRound(ctx context.Context, id tournamentdomain.TournamentID, skip bool, length time.Duration) (RoundResult, error) {
	var spawn bool
	result, err := withTelemetry(s, ctx, "NextRound", id, func(ctx context.Context) (RoundResult, error) {
		defer s.lockTournament(id)()

		t, err := s.getTournament(ctx, id, tournamentdomain.StatusInProgress)
		if err != nil {
			return RoundResult{}, err
		}
		matches, err := s.bracket.GetMatches(ctx, id)
		if err != nil {
			return RoundResult{}, fmt.Errorf("failed to read matches: %w", err)
		}
		if len(matches) == 0 {
			spawn, err = s.finishTournament(ctx, t, false)
			if err != nil {
				return RoundResult{}, err
			}
			return RoundResult{Completed: true}, nil
		}

		bt, err := s.bracket.GetTournament(ctx, id)
		if err != nil {
			return RoundResult{}, fmt.Errorf("failed to read bracket: %w", err)
		}
		if length <= 0 {
			length = s.cfg.RoundLength
		}
		if err := s.startNewRound(ctx, t, bt.URL, matches, skip, length); err != nil {
			return RoundResult{}, err
		}
		return RoundResult{Round: currentRound(matches)}, nil
	})
	if err == nil && spawn {
		s.scheduleTopCut(ctx, id)
	}
	return result, err
}

func currentRound(matches []tournamentdomain.Match) int {
	round := 0
	for _, m := range matches {
		r := m.Round
		if r < 0 {
			r = -r
		}
		round = max(round, r)
	}
	return round
}

// startNewRound replaces the round timers and, unless skip, sends pairings.
func (s *TournamentService) startNewRound(
	ctx context.Context,
	t *tournamentdomain.Tournament,
	url string,
	matches []tournamentdomain.Match,
	skip bool,
	length time.Duration,
) error {
	role, err := s.messenger.PlayerRole(ctx, t)
	if err != nil {
		return fmt.Errorf("failed to resolve player role: %w", err)
	}

	if err := s.timers.CancelTournament(ctx, t.ID); err != nil {
		s.logger.WarnContext(ctx, "Failed to cancel previous round timers",
			attr.ExtractCorrelationID(ctx),
			attr.TournamentID(string(t.ID)),
			attr.Error(err),
		)
	}

	announcement := fmt.Sprintf("A new round of %s has begun! %s\nPairings will be sent out by Direct Message shortly, or can be found here: %s",
		t.Name, tournamentdomain.MentionRole(role), url)
	final := fmt.Sprintf("That's time in the round, %s! Please end the current phase, then the player with the lower LP must forfeit!",
		tournamentdomain.MentionRole(role))
	end := s.now().Add(length)
	for _, channel := range t.PublicChannels {
		if _, err := s.messenger.SendMessage(ctx, channel, announcement); err != nil {
			s.logger.WarnContext(ctx, "Failed to post new round message",
				attr.ExtractCorrelationID(ctx),
				attr.String("channel_id", string(channel)),
				attr.Error(err),
			)
		}
		if _, err := s.timers.CreateTimer(ctx, end, channel, final, s.cfg.TickInterval, t.ID); err != nil {
			s.logger.ErrorContext(ctx, "Failed to create round timer",
				attr.ExtractCorrelationID(ctx),
				attr.TournamentID(string(t.ID)),
				attr.String("channel_id", string(channel)),
				attr.Error(err),
			)
		}
	}

	if skip {
		return nil
	}

	players, err := s.bracket.GetPlayers(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("failed to read bracket players: %w", err)
	}
	byBracketID := make(map[int]tournamentdomain.DiscordID, len(players))
	for _, p := range players {
		byBracketID[p.BracketID] = p.DiscordID
	}

	notifiedBye := make(map[tournamentdomain.DiscordID]bool)
	for _, m := range matches {
		p1 := byBracketID[m.Player1]
		p2 := byBracketID[m.Player2]
		real1 := tournamentdomain.IsUserSnowflake(p1)
		real2 := tournamentdomain.IsUserSnowflake(p2)
		switch {
		case real1 && real2:
			s.sendMatchup(ctx, t, p1, p2)
			s.sendMatchup(ctx, t, p2, p1)
		case real1:
			s.sendBye(ctx, t, p1)
			notifiedBye[p1] = true
		case real2:
			s.sendBye(ctx, t, p2)
			notifiedBye[p2] = true
		default:
			s.logger.WarnContext(ctx, "Match without a known player",
				attr.ExtractCorrelationID(ctx),
				attr.TournamentID(string(t.ID)),
				attr.Int("match_id", m.ID),
			)
		}
	}

	bye, err := s.bracket.GetBye(ctx, t.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to read round bye",
			attr.ExtractCorrelationID(ctx),
			attr.TournamentID(string(t.ID)),
			attr.Error(err),
		)
		return nil
	}
	if tournamentdomain.IsUserSnowflake(bye) && !notifiedBye[bye] {
		s.sendBye(ctx, t, bye)
	}
	return nil
}

func (s *TournamentService) sendMatchup(ctx context.Context, t *tournamentdomain.Tournament, receiver, opponent tournamentdomain.DiscordID) {
	content := fmt.Sprintf("A new round of %s has begun! Your opponent is %s (%s).",
		t.Name, tournamentdomain.MentionUser(opponent), s.username(ctx, opponent))
	if err := s.messenger.DirectMessage(ctx, receiver, content); err != nil {
		s.reportMatchDMFailure(ctx, t, receiver, opponent)
	}
}

func (s *TournamentService) sendBye(ctx context.Context, t *tournamentdomain.Tournament, receiver tournamentdomain.DiscordID) {
	s.reply(ctx, receiver, fmt.Sprintf("A new round of %s has begun! You have a bye for this round.", t.Name))
}

func (s *TournamentService) reportMatchDMFailure(ctx context.Context, t *tournamentdomain.Tournament, user, opponent tournamentdomain.DiscordID) {
	s.announce(ctx, t.PrivateChannels, fmt.Sprintf(
		"I couldn't send a DM to %s (%s) about their matchup for %s. If they're not a human player, this is normal, but otherwise please tell them their opponent is %s (%s), and vice versa.",
		tournamentdomain.MentionUser(user), user, t.Name, tournamentdomain.MentionUser(opponent), s.username(ctx, opponent),
	))
}

// FinishTournament completes or cancels a running tournament.
func (s *TournamentService) FinishTournament(ctx context.Context, id tournamentdomain.TournamentID, cancel bool) error {
	var spawn bool
	err := s.withTelemetryErr(ctx, "FinishTournament", id, func(ctx context.Context) error {
		defer s.lockTournament(id)()

		t, err := s.getTournament(ctx, id, tournamentdomain.StatusInProgress)
		if err != nil {
			return err
		}
		spawn, err = s.finishTournament(ctx, t, cancel)
		return err
	})
	if err == nil && spawn {
		s.scheduleTopCut(ctx, id)
	}
	return err
}

// finishTournament expects the caller to hold the tournament lock. It reports
// whether a top cut should follow.
func (s *TournamentService) finishTournament(ctx context.Context, t *tournamentdomain.Tournament, cancel bool) (bool, error) {
	operation := "finish"
	if cancel {
		operation = "cancel"
	}
	intent, err := s.beginIntent(ctx, t.ID, operation)
	if err != nil {
		return false, err
	}

	var bt *tournamentdomain.BracketTournament
	if cancel {
		bt, err = s.bracket.GetTournament(ctx, t.ID)
	} else {
		bt, err = s.bracket.FinishTournament(ctx, t.ID)
	}
	if err != nil {
		return false, fmt.Errorf("failed to %s bracket: %w", operation, err)
	}
	s.stepIntent(ctx, intent, "bracket_finished")

	if err := s.timers.CancelTournament(ctx, t.ID); err != nil {
		s.logger.WarnContext(ctx, "Failed to cancel round timers",
			attr.ExtractCorrelationID(ctx),
			attr.TournamentID(string(t.ID)),
			attr.Error(err),
		)
	}

	if err := s.repo.FinishTournament(ctx, s.db, t.ID, cancel); err != nil {
		return false, notFound(t.ID, err)
	}
	s.stepIntent(ctx, intent, "persisted")

	outcome := "concluded!"
	if cancel {
		outcome = "been cancelled."
	}
	s.announceEnd(ctx, t, func(mention string) string {
		return fmt.Sprintf("%s has %s Thank you all for playing! %s\nResults: %s", t.Name, outcome, mention, bt.URL)
	})

	s.completeIntent(ctx, intent)
	return !cancel && !t.TopCut && len(t.Players) > s.cfg.TopCutThreshold, nil
}

// announceEnd posts the closing message built around the role mention and
// deletes the participant role.
func (s *TournamentService) announceEnd(ctx context.Context, t *tournamentdomain.Tournament, message func(mention string) string) {
	mention := ""
	role, err := s.messenger.PlayerRole(ctx, t)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to resolve player role",
			attr.ExtractCorrelationID(ctx),
			attr.TournamentID(string(t.ID)),
			attr.Error(err),
		)
	} else {
		mention = tournamentdomain.MentionRole(role)
	}
	s.announce(ctx, t.PublicChannels, message(mention))

	if err := s.messenger.DeletePlayerRole(ctx, t); err != nil {
		s.logger.WarnContext(ctx, "Failed to delete player role",
			attr.ExtractCorrelationID(ctx),
			attr.TournamentID(string(t.ID)),
			attr.Error(err),
		)
	}
}

// CancelTournament cancels a tournament in any active status.
func (s *TournamentService) CancelTournament(ctx context.Context, id tournamentdomain.TournamentID) error {
	return s.withTelemetryErr(ctx, "CancelTournament", id, func(ctx context.Context) error {
		defer s.lockTournament(id)()

		t, err := s.getTournament(ctx, id, tournamentdomain.ActiveStatuses...)
		if err != nil {
			return err
		}
		if t.Status == tournamentdomain.StatusInProgress {
			_, err := s.finishTournament(ctx, t, true)
			return err
		}

		intent, err := s.beginIntent(ctx, id, "cancel")
		if err != nil {
			return err
		}

		messages, err := s.repo.RegisterMessages(ctx, s.db, id)
		if err != nil {
			return fmt.Errorf("failed to list registration messages: %w", err)
		}
		for _, m := range messages {
			if err := s.messenger.DeleteMessage(ctx, m.ChannelID, m.MessageID); err != nil && !errors.Is(err, tournamentdomain.ErrMessageNotFound) {
				s.logger.WarnContext(ctx, "Failed to delete registration message",
					attr.ExtractCorrelationID(ctx),
					attr.String("message_id", string(m.MessageID)),
					attr.Error(err),
				)
			}
		}

		dropped, err := s.repo.CancelRegistration(ctx, s.db, id)
		if err != nil {
			return notFound(id, err)
		}
		s.stepIntent(ctx, intent, "persisted")

		for _, user := range dropped {
			s.reply(ctx, user, fmt.Sprintf("Tournament %s has been cancelled, so your registration has been removed.", t.Name))
		}
		if t.Status == tournamentdomain.StatusRegistrationOpen {
			s.announceEnd(ctx, t, func(mention string) string {
				return fmt.Sprintf("%s has been cancelled. Thank you all for signing up! %s", t.Name, mention)
			})
		}

		s.completeIntent(ctx, intent)
		return nil
	})
}

func (s *TournamentService) scheduleTopCut(ctx context.Context, id tournamentdomain.TournamentID) {
	if s.topCut == nil {
		return
	}
	if err := s.topCut.ScheduleTopCut(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "Failed to schedule top cut",
			attr.ExtractCorrelationID(ctx),
			attr.TournamentID(string(id)),
			attr.Error(err),
		)
	}
}

// RestoreTimers reloads persisted round timers of running tournaments.
func (s *TournamentService) RestoreTimers(ctx context.Context) (int, error) {
	return withTelemetry(s, ctx, "RestoreTimers", "", func(ctx context.Context) (int, error) {
		return s.timers.LoadAll(ctx, func(ctx context.Context, id tournamentdomain.TournamentID) (bool, error) {
			_, err := s.repo.GetTournament(ctx, s.db, id, tournamentdomain.StatusInProgress)
			if err != nil {
				if errors.Is(err, tournamentdb.ErrNotFound) {
					return false, nil
				}
				return false, err
			}
			return true, nil
		})
	})
}
