package tournamentrouter

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	chatevents "github.com/Black-And-White-Club/tourney-bot/app/events/chat"
	"github.com/Black-And-White-Club/tourney-bot/app/observability"
	"github.com/Black-And-White-Club/tourney-bot/app/utils/handlerwrapper"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

type fakeHandlers struct {
	created chan *chatevents.MessageCreatedPayloadV1
}

func (f *fakeHandlers) HandleMessageCreated(_ context.Context, p *chatevents.MessageCreatedPayloadV1) ([]handlerwrapper.Result, error) {
	f.created <- p
	return []handlerwrapper.Result{{
		Topic:   chatevents.ReplyRequestedV1,
		Payload: chatevents.ReplyRequestedPayloadV1{ChannelID: p.ChannelID, ReplyTo: p.MessageID, Content: "pong"},
	}}, nil
}

func (f *fakeHandlers) HandleMessageDeleted(context.Context, *chatevents.MessageDeletedPayloadV1) ([]handlerwrapper.Result, error) {
	return nil, nil
}

func (f *fakeHandlers) HandleReactionAdded(context.Context, *chatevents.ReactionPayloadV1) ([]handlerwrapper.Result, error) {
	return nil, nil
}

func (f *fakeHandlers) HandleReactionRemoved(context.Context, *chatevents.ReactionPayloadV1) ([]handlerwrapper.Result, error) {
	return nil, nil
}

// metadataPublisher stands in for the event bus topic routing.
type metadataPublisher struct {
	message.Publisher
}

func (p metadataPublisher) Publish(topic string, msgs ...*message.Message) error {
	for _, m := range msgs {
		t := topic
		if t == "" {
			t = m.Metadata.Get(handlerwrapper.TopicMetadataKey)
		}
		if err := p.Publisher.Publish(t, m); err != nil {
			return err
		}
	}
	return nil
}

func TestTournamentRouter_RoutesReplies(t *testing.T) {
	t.Setenv(TestEnvironmentFlag, TestEnvironmentValue)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pubsub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 8}, watermill.NopLogger{})
	defer pubsub.Close()

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: time.Second}, watermill.NopLogger{})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewTournamentRouter(logger, router, pubsub, metadataPublisher{pubsub}, noop.NewTracerProvider().Tracer("test"), observability.NoOpMetrics{}, nil)
	assert.Nil(t, r.metricsBuilder)

	h := &fakeHandlers{created: make(chan *chatevents.MessageCreatedPayloadV1, 1)}
	require.NoError(t, r.Configure(ctx, h))

	replies, err := pubsub.Subscribe(ctx, chatevents.ReplyRequestedV1)
	require.NoError(t, err)

	go func() { _ = router.Run(ctx) }()
	defer r.Close()
	<-router.Running()

	payload, err := json.Marshal(chatevents.MessageCreatedPayloadV1{MessageID: "m1", ChannelID: "c1", ServerID: "s1", Content: "mc!help"})
	require.NoError(t, err)
	in := message.NewMessage(watermill.NewUUID(), payload)
	middleware.SetCorrelationID("corr-1", in)
	require.NoError(t, pubsub.Publish(chatevents.MessageCreatedV1, in))

	select {
	case got := <-h.created:
		assert.Equal(t, "mc!help", got.Content)
	case <-ctx.Done():
		t.Fatal("handler was not called")
	}

	select {
	case out := <-replies:
		out.Ack()
		var reply chatevents.ReplyRequestedPayloadV1
		require.NoError(t, json.Unmarshal(out.Payload, &reply))
		assert.Equal(t, "pong", reply.Content)
		assert.Equal(t, "m1", reply.ReplyTo)
		assert.Equal(t, "corr-1", middleware.MessageCorrelationID(out))
	case <-ctx.Done():
		t.Fatal("no reply published")
	}
}
