package handlerwrapper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/Black-And-White-Club/tourney-bot/app/observability"
	"github.com/Black-And-White-Club/tourney-bot/app/observability/attr"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

type ping struct {
	Name string `json:"name"`
}

type pong struct {
	Greeting string `json:"greeting"`
}

func wrap(handler func(context.Context, *ping) ([]Result, error)) message.HandlerFunc {
	return WrapTransformingTyped(
		"test.ping",
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		noop.NewTracerProvider().Tracer("test"),
		observability.NoOpMetrics{},
		handler,
	)
}

func TestWrapTransformingTyped(t *testing.T) {
	var gotCorrelation string
	h := wrap(func(ctx context.Context, p *ping) ([]Result, error) {
		gotCorrelation = attr.CorrelationIDFrom(ctx)
		return []Result{{
			Topic:    "test.pong",
			Payload:  pong{Greeting: "hello " + p.Name},
			Metadata: map[string]string{"channel_id": "c1"},
		}}, nil
	})

	in := message.NewMessage(watermill.NewUUID(), []byte(`{"name":"alice"}`))
	middleware.SetCorrelationID("corr-9", in)

	out, err := h(in)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "corr-9", gotCorrelation)
	assert.JSONEq(t, `{"greeting":"hello alice"}`, string(out[0].Payload))
	assert.Equal(t, "test.pong", out[0].Metadata.Get(TopicMetadataKey))
	assert.Equal(t, "c1", out[0].Metadata.Get("channel_id"))
	assert.Equal(t, "corr-9", middleware.MessageCorrelationID(out[0]))
}

func TestWrapTransformingTyped_BadPayloadIsDropped(t *testing.T) {
	called := false
	h := wrap(func(ctx context.Context, p *ping) ([]Result, error) {
		called = true
		return nil, nil
	})

	out, err := h(message.NewMessage(watermill.NewUUID(), []byte("not json")))
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.False(t, called)
}

func TestWrapTransformingTyped_HandlerError(t *testing.T) {
	boom := errors.New("database unavailable")
	h := wrap(func(ctx context.Context, p *ping) ([]Result, error) {
		return nil, boom
	})

	_, err := h(message.NewMessage(watermill.NewUUID(), []byte(`{}`)))
	assert.ErrorIs(t, err, boom)
}
