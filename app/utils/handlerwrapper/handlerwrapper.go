// Package handlerwrapper adapts typed event handlers to watermill handler funcs.
// The wrapped handler receives the decoded payload and returns the messages to
// publish; the wrapper takes care of decoding, tracing, metrics and metadata.
package handlerwrapper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/tourney-bot/app/observability"
	"github.com/Black-And-White-Club/tourney-bot/app/observability/attr"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	serviceName = "EventHandlers"

	// TopicMetadataKey is read by the publisher to route a result message.
	TopicMetadataKey = "topic"
)

// Result is one outgoing message.
type Result struct {
	Topic    string
	Payload  any
	Metadata map[string]string
}

// WrapTransformingTyped decodes the JSON payload into T and publishes whatever
// the handler returns. Undecodable messages are logged and acked.
func WrapTransformingTyped[T any](
	handlerName string,
	logger *slog.Logger,
	tracer trace.Tracer,
	metrics observability.Metrics,
	handler func(context.Context, *T) ([]Result, error),
) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		ctx := attr.WithCorrelationID(msg.Context(), middleware.MessageCorrelationID(msg))
		ctx, span := tracer.Start(ctx, handlerName, trace.WithAttributes(
			attribute.String("message.uuid", msg.UUID),
			attribute.String("handler", handlerName),
		))
		defer span.End()

		metrics.RecordOperationAttempt(ctx, handlerName, serviceName)
		start := time.Now()
		defer func() {
			metrics.RecordOperationDuration(ctx, handlerName, serviceName, time.Since(start))
		}()

		payload := new(T)
		if err := json.Unmarshal(msg.Payload, payload); err != nil {
			logger.ErrorContext(ctx, "Dropping undecodable message",
				attr.ExtractCorrelationID(ctx),
				attr.String("handler", handlerName),
				attr.String("message_id", msg.UUID),
				attr.Error(err),
			)
			metrics.RecordOperationFailure(ctx, handlerName, serviceName)
			span.SetStatus(codes.Error, "undecodable payload")
			return nil, nil
		}

		results, err := handler(ctx, payload)
		if err != nil {
			logger.ErrorContext(ctx, "Handler failed",
				attr.ExtractCorrelationID(ctx),
				attr.String("handler", handlerName),
				attr.Error(err),
			)
			metrics.RecordOperationFailure(ctx, handlerName, serviceName)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		out := make([]*message.Message, 0, len(results))
		for _, r := range results {
			m, err := newResultMessage(msg, r)
			if err != nil {
				metrics.RecordOperationFailure(ctx, handlerName, serviceName)
				return nil, err
			}
			out = append(out, m)
		}
		metrics.RecordOperationSuccess(ctx, handlerName, serviceName)
		return out, nil
	}
}

// newResultMessage builds an outgoing message that keeps the correlation ID of
// the message it answers.
func newResultMessage(origin *message.Message, r Result) (*message.Message, error) {
	data, err := json.Marshal(r.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload for %s: %w", r.Topic, err)
	}
	m := message.NewMessage(watermill.NewUUID(), data)
	middleware.SetCorrelationID(middleware.MessageCorrelationID(origin), m)
	for k, v := range r.Metadata {
		m.Metadata.Set(k, v)
	}
	m.Metadata.Set(TopicMetadataKey, r.Topic)
	return m, nil
}
