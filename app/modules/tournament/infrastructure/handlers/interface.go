package tournamenthandlers

import (
	"context"

	chatevents "github.com/Black-And-White-Club/tourney-bot/app/events/chat"
	"github.com/Black-And-White-Club/tourney-bot/app/utils/handlerwrapper"
)

// Handlers defines the contract for chat event handlers.
type Handlers interface {
	HandleMessageCreated(ctx context.Context, payload *chatevents.MessageCreatedPayloadV1) ([]handlerwrapper.Result, error)
	HandleMessageDeleted(ctx context.Context, payload *chatevents.MessageDeletedPayloadV1) ([]handlerwrapper.Result, error)
	HandleReactionAdded(ctx context.Context, payload *chatevents.ReactionPayloadV1) ([]handlerwrapper.Result, error)
	HandleReactionRemoved(ctx context.Context, payload *chatevents.ReactionPayloadV1) ([]handlerwrapper.Result, error)
}
