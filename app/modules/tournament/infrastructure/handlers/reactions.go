package tournamenthandlers

import (
	"context"

	chatevents "github.com/Black-And-White-Club/tourney-bot/app/events/chat"
	tournamentservice "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/application"
	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
	"github.com/Black-And-White-Club/tourney-bot/app/observability/attr"
	"github.com/Black-And-White-Club/tourney-bot/app/utils/handlerwrapper"
)

func registrationReaction(payload *chatevents.ReactionPayloadV1) bool {
	return payload != nil && !payload.UserIsBot && payload.Emoji == tournamentservice.CheckEmoji
}

// HandleReactionAdded registers the user when they tick a registration message.
func (h *TournamentHandlers) HandleReactionAdded(ctx context.Context, payload *chatevents.ReactionPayloadV1) ([]handlerwrapper.Result, error) {
	if !registrationReaction(payload) {
		return nil, nil
	}
	err := h.service.RegisterPlayer(ctx,
		tournamentdomain.ChannelID(payload.ChannelID),
		tournamentdomain.MessageID(payload.MessageID),
		tournamentdomain.DiscordID(payload.UserID),
	)
	if err != nil {
		h.logReactionError(ctx, "Failed to register player", payload, err)
	}
	return nil, nil
}

// HandleReactionRemoved drops the user when they untick a registration message.
func (h *TournamentHandlers) HandleReactionRemoved(ctx context.Context, payload *chatevents.ReactionPayloadV1) ([]handlerwrapper.Result, error) {
	if !registrationReaction(payload) {
		return nil, nil
	}
	err := h.service.DropPlayerReaction(ctx,
		tournamentdomain.ChannelID(payload.ChannelID),
		tournamentdomain.MessageID(payload.MessageID),
		tournamentdomain.DiscordID(payload.UserID),
	)
	if err != nil {
		h.logReactionError(ctx, "Failed to drop player", payload, err)
	}
	return nil, nil
}

func (h *TournamentHandlers) logReactionError(ctx context.Context, msg string, payload *chatevents.ReactionPayloadV1, err error) {
	if reason, ok := tournamentdomain.UserMessage(err); ok {
		h.logger.InfoContext(ctx, msg,
			attr.ExtractCorrelationID(ctx),
			attr.UserID(payload.UserID),
			attr.String("reason", reason),
		)
		return
	}
	h.logger.ErrorContext(ctx, msg,
		attr.ExtractCorrelationID(ctx),
		attr.UserID(payload.UserID),
		attr.String("message_id", payload.MessageID),
		attr.Error(err),
	)
}
