package tournamenthandlers

import (
	"context"
	"errors"

	chatevents "github.com/Black-And-White-Club/tourney-bot/app/events/chat"
	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
	"github.com/Black-And-White-Club/tourney-bot/app/observability/attr"
	"github.com/Black-And-White-Club/tourney-bot/app/utils/handlerwrapper"
)

// HandleMessageCreated runs commands, answers pings with help and treats any
// other direct message as a deck submission.
func (h *TournamentHandlers) HandleMessageCreated(ctx context.Context, payload *chatevents.MessageCreatedPayloadV1) ([]handlerwrapper.Result, error) {
	if payload == nil {
		return nil, errors.New("payload cannot be nil")
	}
	if payload.AuthorIsBot {
		return nil, nil
	}

	if name, args, ok := parseCommand(h.prefix, payload.Content); ok {
		c, known := h.commands[name]
		if !known {
			return nil, nil
		}
		return h.runCommand(ctx, c, &invocation{msg: payload, name: name, args: args}), nil
	}

	if payload.MentionsBot && !payload.Direct() {
		return []handlerwrapper.Result{reply(payload, h.helpText())}, nil
	}

	if payload.Direct() {
		h.confirmPlayer(ctx, payload)
	}
	return nil, nil
}

// runCommand never fails the message: every outcome becomes a reply so a
// redelivery cannot repeat a non-idempotent command.
func (h *TournamentHandlers) runCommand(ctx context.Context, c *command, inv *invocation) []handlerwrapper.Result {
	logAttrs := []any{
		attr.ExtractCorrelationID(ctx),
		attr.String("command", c.name),
		attr.String("channel_id", inv.msg.ChannelID),
		attr.String("message_id", inv.msg.MessageID),
		attr.UserID(inv.msg.AuthorID),
	}

	results, err := h.execute(ctx, c, inv)
	if err == nil {
		h.logger.InfoContext(ctx, "Command completed", logAttrs...)
		return results
	}
	if msg, ok := tournamentdomain.UserMessage(err); ok {
		h.logger.InfoContext(ctx, "Command rejected", append(logAttrs, attr.String("reason", msg))...)
		return []handlerwrapper.Result{reply(inv.msg, msg)}
	}
	h.logger.ErrorContext(ctx, "Command failed", append(logAttrs, attr.Error(err))...)
	return []handlerwrapper.Result{reply(inv.msg, genericFailure)}
}

func (h *TournamentHandlers) execute(ctx context.Context, c *command, inv *invocation) ([]handlerwrapper.Result, error) {
	if c.guildOnly && inv.msg.Direct() {
		return nil, tournamentdomain.NewUserError("This command can only be used in a server.")
	}
	if err := validateArgs(inv.args, c.required); err != nil {
		return nil, err
	}
	if err := h.authorise(ctx, c, inv); err != nil {
		return nil, err
	}
	return c.run(ctx, h, inv)
}

func (h *TournamentHandlers) confirmPlayer(ctx context.Context, payload *chatevents.MessageCreatedPayloadV1) {
	msg := tournamentdomain.InboundMessage{
		ID:        tournamentdomain.MessageID(payload.MessageID),
		ChannelID: tournamentdomain.ChannelID(payload.ChannelID),
		ServerID:  tournamentdomain.ServerID(payload.ServerID),
		Author:    tournamentdomain.DiscordID(payload.AuthorID),
		Content:   payload.Content,
		Direct:    true,
	}
	for _, a := range payload.Attachments {
		msg.Attachments = append(msg.Attachments, tournamentdomain.Attachment{Filename: a.Filename, Content: a.Content})
	}
	if err := h.service.ConfirmPlayer(ctx, msg); err != nil {
		h.logger.ErrorContext(ctx, "Failed to process direct message",
			attr.ExtractCorrelationID(ctx),
			attr.UserID(payload.AuthorID),
			attr.Error(err),
		)
	}
}
