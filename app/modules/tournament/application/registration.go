package tournamentservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Black-And-White-Club/tourney-bot/app/modules/deck"
	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
	"github.com/Black-And-White-Club/tourney-bot/app/observability/attr"
)

// RegisterPlayer handles a ✅ reaction on a registration message.
func (s *TournamentService) RegisterPlayer(ctx context.Context, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID, user tournamentdomain.DiscordID) error {
	return s.withTelemetryErr(ctx, "RegisterPlayer", "", func(ctx context.Context) error {
		defer s.lockUser(user)()

		pending, err := s.repo.PendingTournaments(ctx, s.db, user)
		if err != nil {
			return fmt.Errorf("failed to list pending tournaments: %w", err)
		}
		if len(pending) > 0 {
			if err := s.messenger.RemoveUserReaction(ctx, channel, message, CheckEmoji, user); err != nil {
				s.logger.WarnContext(ctx, "Failed to remove registration reaction",
					attr.ExtractCorrelationID(ctx),
					attr.UserID(string(user)),
					attr.Error(err),
				)
			}
			conflict := tournamentdomain.NewUserError("You can only sign up for 1 Tournament at a time! Please either drop from or complete your registration for %s!", pending[0].Name)
			if err := s.messenger.DirectMessage(ctx, user, conflict.UserMessage()); err != nil {
				s.logger.WarnContext(ctx, "Failed to tell user about pending registration",
					attr.ExtractCorrelationID(ctx),
					attr.UserID(string(user)),
					attr.Error(err),
				)
			}
			return conflict
		}

		t, err := s.repo.AddPendingPlayer(ctx, s.db, channel, message, user)
		if err != nil {
			return fmt.Errorf("failed to add pending player: %w", err)
		}
		if t == nil {
			return nil
		}

		err = s.messenger.DirectMessage(ctx, user, fmt.Sprintf(
			"You are registering for %s. Please submit a deck to complete your registration, by uploading a YDK file or sending a message with a YDKE URL.",
			t.Name,
		))
		if errors.Is(err, tournamentdomain.ErrBlockedDMs) {
			s.handleDMFailure(ctx, t, user)
			return nil
		}
		return err
	})
}

func (s *TournamentService) handleDMFailure(ctx context.Context, t *tournamentdomain.Tournament, user tournamentdomain.DiscordID) {
	s.announce(ctx, t.PrivateChannels, fmt.Sprintf(
		"Player %s (%s) is trying to sign up for Tournament %s (%s), but I cannot send them DMs. Please ask them to allow DMs from this server.",
		tournamentdomain.MentionUser(user), s.username(ctx, user), t.Name, t.ID,
	))
}

func tournamentNames(ts []tournamentdomain.Tournament) string {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = t.Name
	}
	return strings.Join(names, ", ")
}

// ConfirmPlayer handles a deck submitted by direct message, either completing
// a pending registration or replacing a confirmed player's deck.
func (s *TournamentService) ConfirmPlayer(ctx context.Context, msg tournamentdomain.InboundMessage) error {
	if !msg.Direct {
		return nil
	}
	return s.withTelemetryErr(ctx, "ConfirmPlayer", "", func(ctx context.Context) error {
		defer s.lockUser(msg.Author)()

		pending, err := s.repo.PendingTournaments(ctx, s.db, msg.Author)
		if err != nil {
			return fmt.Errorf("failed to list pending tournaments: %w", err)
		}
		switch {
		case len(pending) > 1:
			s.reply(ctx, msg.Author, "You are registering in multiple tournaments. Please register in one at a time by unchecking the reaction on all others.\n"+tournamentNames(pending))
			return nil
		case len(pending) == 1:
			return s.confirmPending(ctx, &pending[0], msg)
		}

		confirmed, err := s.repo.ConfirmedTournaments(ctx, s.db, msg.Author)
		if err != nil {
			return fmt.Errorf("failed to list confirmed tournaments: %w", err)
		}
		switch {
		case len(confirmed) > 1:
			s.reply(ctx, msg.Author, "You're trying to update your deck for a tournament, but you're in multiple! Please choose one by dropping and registering again.\n"+tournamentNames(confirmed))
		case len(confirmed) == 1:
			return s.updateDeck(ctx, &confirmed[0], msg)
		}
		return nil
	})
}

// parseSubmission replies to the author and returns nil when no usable deck
// was submitted.
func (s *TournamentService) parseSubmission(ctx context.Context, msg tournamentdomain.InboundMessage) *deck.Deck {
	files := make([]deck.File, len(msg.Attachments))
	for i, a := range msg.Attachments {
		files[i] = deck.File{Filename: a.Filename, Content: a.Content}
	}
	d, err := s.decks.FromMessage(msg.Content, files)
	if errors.Is(err, deck.ErrDeckNotFound) {
		s.reply(ctx, msg.Author, deck.ErrDeckNotFound.Error())
		return nil
	}
	if err != nil {
		s.reply(ctx, msg.Author, fmt.Sprintf("I could not read that deck: %v", err))
		return nil
	}
	return d
}

func attachment(f deck.File) tournamentdomain.Attachment {
	return tournamentdomain.Attachment{Filename: f.Filename, Content: f.Content}
}

func (s *TournamentService) confirmPending(ctx context.Context, t *tournamentdomain.Tournament, msg tournamentdomain.InboundMessage) error {
	d := s.parseSubmission(ctx, msg)
	if d == nil {
		return nil
	}
	name := s.username(ctx, msg.Author)
	content, file := d.PrettyPrint(name + ".ydk")
	if !d.Legal() {
		s.reply(ctx, msg.Author, fmt.Sprintf("Your deck is not legal for Tournament %s. Please see the print out below for all the errors. You have NOT been registered yet, please submit again with a legal deck.", t.Name))
		s.replyFile(ctx, msg.Author, content, attachment(file))
		return nil
	}

	bracketID, err := s.bracket.RegisterPlayer(ctx, t.ID, name, msg.Author)
	if err != nil {
		return fmt.Errorf("failed to register player on bracket: %w", err)
	}
	if err := s.repo.ConfirmPlayer(ctx, s.db, t.ID, msg.Author, bracketID, d.URL); err != nil {
		return fmt.Errorf("failed to confirm player: %w", err)
	}
	s.grantPlayerRole(ctx, t, msg.Author)

	for _, channel := range t.PrivateChannels {
		s.announce(ctx, []tournamentdomain.ChannelID{channel}, fmt.Sprintf(
			"Player %s (%s) has signed up for Tournament %s (%s) with the following deck!",
			tournamentdomain.MentionUser(msg.Author), name, t.Name, t.ID,
		))
		s.announceFile(ctx, []tournamentdomain.ChannelID{channel}, content, attachment(file))
	}
	s.logger.InfoContext(ctx, "Player confirmed",
		attr.ExtractCorrelationID(ctx),
		attr.TournamentID(string(t.ID)),
		attr.UserID(string(msg.Author)),
	)
	s.reply(ctx, msg.Author, fmt.Sprintf("You have successfully signed up for Tournament %s! Your deck is below to double-check.", t.Name))
	s.replyFile(ctx, msg.Author, content, attachment(file))
	return nil
}

func (s *TournamentService) updateDeck(ctx context.Context, t *tournamentdomain.Tournament, msg tournamentdomain.InboundMessage) error {
	player := t.FindPlayer(msg.Author)
	if player == nil {
		return &tournamentdomain.UnauthorisedPlayerError{Player: msg.Author, TournamentID: t.ID}
	}
	d := s.parseSubmission(ctx, msg)
	if d == nil {
		return nil
	}
	name := s.username(ctx, msg.Author)
	content, file := d.PrettyPrint(name + ".ydk")
	if !d.Legal() {
		s.reply(ctx, msg.Author, fmt.Sprintf("Your new deck is not legal for Tournament %s. Please see the print out below for all the errors. Your deck has not been changed.", t.Name))
		s.replyFile(ctx, msg.Author, content, attachment(file))
		return nil
	}

	if err := s.repo.ConfirmPlayer(ctx, s.db, t.ID, msg.Author, player.BracketID, d.URL); err != nil {
		return fmt.Errorf("failed to update deck: %w", err)
	}
	for _, channel := range t.PrivateChannels {
		s.announce(ctx, []tournamentdomain.ChannelID{channel}, fmt.Sprintf(
			"Player %s (%s) has updated their deck for Tournament %s (%s) to the following!",
			tournamentdomain.MentionUser(msg.Author), name, t.Name, t.ID,
		))
		s.announceFile(ctx, []tournamentdomain.ChannelID{channel}, content, attachment(file))
	}
	s.reply(ctx, msg.Author, fmt.Sprintf("You have successfully changed your deck for Tournament %s! Your deck is below to double-check.", t.Name))
	s.replyFile(ctx, msg.Author, content, attachment(file))
	return nil
}

func (s *TournamentService) grantPlayerRole(ctx context.Context, t *tournamentdomain.Tournament, user tournamentdomain.DiscordID) {
	role, err := s.messenger.PlayerRole(ctx, t)
	if err == nil {
		err = s.messenger.GrantRole(ctx, t.ServerID, user, role)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to grant player role",
			attr.ExtractCorrelationID(ctx),
			attr.TournamentID(string(t.ID)),
			attr.UserID(string(user)),
			attr.Error(err),
		)
	}
}

// DropPlayerReaction handles a removed ✅ reaction on a registration message.
func (s *TournamentService) DropPlayerReaction(ctx context.Context, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID, user tournamentdomain.DiscordID) error {
	return s.withTelemetryErr(ctx, "DropPlayerReaction", "", func(ctx context.Context) error {
		defer s.lockUser(user)()

		t, err := s.repo.RemovePendingPlayer(ctx, s.db, channel, message, user)
		if err != nil {
			return fmt.Errorf("failed to remove pending player: %w", err)
		}
		if t != nil {
			return nil
		}
		t, err = s.repo.RemoveConfirmedPlayerReaction(ctx, s.db, channel, message, user)
		if err != nil {
			return fmt.Errorf("failed to remove confirmed player: %w", err)
		}
		if t == nil {
			return nil
		}
		return s.sendDropMessage(ctx, t, user, false)
	})
}

// DropPlayer removes a confirmed player, by their own request or a host's.
func (s *TournamentService) DropPlayer(ctx context.Context, id tournamentdomain.TournamentID, user tournamentdomain.DiscordID, force bool) error {
	return s.withTelemetryErr(ctx, "DropPlayer", id, func(ctx context.Context) error {
		defer s.lockTournament(id)()

		t, err := s.repo.RemoveConfirmedPlayerForce(ctx, s.db, id, user)
		if err != nil {
			return notFound(id, err)
		}
		if t == nil {
			return &tournamentdomain.UnauthorisedPlayerError{Player: user, TournamentID: id}
		}
		return s.sendDropMessage(ctx, t, user, force)
	})
}

// sendDropMessage expects t as it was before the player was removed.
func (s *TournamentService) sendDropMessage(ctx context.Context, t *tournamentdomain.Tournament, user tournamentdomain.DiscordID, force bool) error {
	player := t.FindPlayer(user)
	if player == nil {
		return &tournamentdomain.UnauthorisedPlayerError{Player: user, TournamentID: t.ID}
	}
	if err := s.bracket.RemovePlayer(ctx, t.ID, player.BracketID); err != nil {
		return fmt.Errorf("failed to remove player from bracket: %w", err)
	}

	role, err := s.messenger.PlayerRole(ctx, t)
	if err == nil {
		err = s.messenger.RemoveRole(ctx, t.ServerID, user, role)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to remove player role",
			attr.ExtractCorrelationID(ctx),
			attr.TournamentID(string(t.ID)),
			attr.UserID(string(user)),
			attr.Error(err),
		)
	}

	s.logger.InfoContext(ctx, "Player dropped",
		attr.ExtractCorrelationID(ctx),
		attr.TournamentID(string(t.ID)),
		attr.UserID(string(user)),
		attr.Bool("force", force),
	)
	if force {
		s.reply(ctx, user, fmt.Sprintf("You have been dropped from Tournament %s by the hosts.", t.Name))
	} else {
		s.reply(ctx, user, fmt.Sprintf("You have successfully dropped from Tournament %s.", t.Name))
	}

	how := "chosen to drop"
	if force {
		how = "been forcefully dropped"
	}
	s.announce(ctx, t.PrivateChannels, fmt.Sprintf("Player %s (%s) has %s from Tournament %s (%s).",
		tournamentdomain.MentionUser(user), s.username(ctx, user), how, t.Name, t.ID))

	messages, err := s.repo.RegisterMessages(ctx, s.db, t.ID)
	if err != nil {
		return fmt.Errorf("failed to list registration messages: %w", err)
	}
	for _, m := range messages {
		if err := s.messenger.RemoveUserReaction(ctx, m.ChannelID, m.MessageID, CheckEmoji, user); err != nil {
			s.logger.WarnContext(ctx, "Failed to remove registration reaction",
				attr.ExtractCorrelationID(ctx),
				attr.String("message_id", string(m.MessageID)),
				attr.Error(err),
			)
		}
	}
	return nil
}

// CleanRegistration forgets a registration message deleted outside the bot.
func (s *TournamentService) CleanRegistration(ctx context.Context, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID) error {
	return s.withTelemetryErr(ctx, "CleanRegistration", "", func(ctx context.Context) error {
		return s.repo.CleanRegistration(ctx, s.db, channel, message)
	})
}

// RestoreRegistrations cleans registration messages that vanished while the
// bot was offline and returns how many are still live.
func (s *TournamentService) RestoreRegistrations(ctx context.Context) (int, error) {
	return withTelemetry(s, ctx, "RestoreRegistrations", "", func(ctx context.Context) (int, error) {
		messages, err := s.repo.RegisterMessages(ctx, s.db, "")
		if err != nil {
			return 0, fmt.Errorf("failed to list registration messages: %w", err)
		}
		live := 0
		for _, m := range messages {
			exists, err := s.messenger.MessageExists(ctx, m.ChannelID, m.MessageID)
			if err != nil {
				s.logger.WarnContext(ctx, "Failed to check registration message",
					attr.ExtractCorrelationID(ctx),
					attr.String("message_id", string(m.MessageID)),
					attr.Error(err),
				)
				live++
				continue
			}
			if exists {
				live++
				continue
			}
			if err := s.repo.CleanRegistration(ctx, s.db, m.ChannelID, m.MessageID); err != nil {
				return live, fmt.Errorf("failed to clean registration message %s: %w", m.MessageID, err)
			}
		}
		return live, nil
	})
}
