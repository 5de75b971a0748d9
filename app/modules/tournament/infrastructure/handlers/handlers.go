package tournamenthandlers

import (
	"context"
	"log/slog"
	"time"

	chatevents "github.com/Black-And-White-Club/tourney-bot/app/events/chat"
	tournamentservice "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/application"
	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
	"github.com/Black-And-White-Club/tourney-bot/app/observability/attr"
	"github.com/Black-And-White-Club/tourney-bot/app/utils/handlerwrapper"
)

// genericFailure answers commands that failed for a reason the user cannot fix.
const genericFailure = "Something went wrong while processing that command."

type Config struct {
	Prefix string
}

func DefaultConfig() Config {
	return Config{Prefix: "mc!"}
}

// TournamentHandlers implements the Handlers interface for chat events.
type TournamentHandlers struct {
	service  tournamentservice.Service
	logger   *slog.Logger
	prefix   string
	commands map[string]*command
	now      func() time.Time
}

var _ Handlers = (*TournamentHandlers)(nil)

// NewTournamentHandlers creates a new TournamentHandlers instance.
func NewTournamentHandlers(service tournamentservice.Service, logger *slog.Logger, cfg Config) *TournamentHandlers {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultConfig().Prefix
	}
	return &TournamentHandlers{
		service:  service,
		logger:   logger,
		prefix:   cfg.Prefix,
		commands: commandTable(),
		now:      time.Now,
	}
}

// reply answers msg in its own channel.
func reply(msg *chatevents.MessageCreatedPayloadV1, content string) handlerwrapper.Result {
	return handlerwrapper.Result{
		Topic: chatevents.ReplyRequestedV1,
		Payload: chatevents.ReplyRequestedPayloadV1{
			ChannelID: msg.ChannelID,
			ReplyTo:   msg.MessageID,
			Content:   content,
		},
		Metadata: map[string]string{"channel_id": msg.ChannelID},
	}
}

func replyWithFile(msg *chatevents.MessageCreatedPayloadV1, content string, file tournamentdomain.Attachment) handlerwrapper.Result {
	r := reply(msg, content)
	payload := r.Payload.(chatevents.ReplyRequestedPayloadV1)
	payload.File = &chatevents.AttachmentV1{Filename: file.Filename, Content: file.Content}
	r.Payload = payload
	return r
}

// HandleMessageDeleted drops the registration message record, if it was one.
func (h *TournamentHandlers) HandleMessageDeleted(ctx context.Context, payload *chatevents.MessageDeletedPayloadV1) ([]handlerwrapper.Result, error) {
	err := h.service.CleanRegistration(ctx, tournamentdomain.ChannelID(payload.ChannelID), tournamentdomain.MessageID(payload.MessageID))
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to clean registration message",
			attr.ExtractCorrelationID(ctx),
			attr.String("channel_id", payload.ChannelID),
			attr.String("message_id", payload.MessageID),
			attr.Error(err),
		)
	}
	return nil, nil
}
