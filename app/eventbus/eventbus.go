// Package eventbus connects watermill routers to NATS JetStream.
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Black-And-White-Club/tourney-bot/app/observability"
	"github.com/Black-And-White-Club/tourney-bot/app/observability/attr"
	"github.com/Black-And-White-Club/tourney-bot/app/utils/handlerwrapper"
	"github.com/ThreeDotsLabs/watermill"
	wmnats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	nc "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const metricsService = "EventBus"

// ErrNoTopic is returned when a message is published without a topic
// argument or "topic" metadata.
var ErrNoTopic = errors.New("message has no topic")

// EventBus is both ends of the JetStream transport.
type EventBus interface {
	message.Publisher
	message.Subscriber
	// CreateStream makes sure the named stream exists and captures subjects.
	CreateStream(ctx context.Context, name string, subjects ...string) error
	JetStream() jetstream.JetStream
	Conn() *nc.Conn
}

type eventBus struct {
	publisher  *wmnats.Publisher
	subscriber *wmnats.Subscriber
	js         jetstream.JetStream
	conn       *nc.Conn
	logger     *slog.Logger
	metrics    observability.Metrics
	tracer     trace.Tracer

	streamMu       sync.Mutex
	createdStreams map[string]bool
}

var _ EventBus = (*eventBus)(nil)

// durableName derives a JetStream consumer name from a topic; durable names
// may not contain dots.
func durableName(appType string) wmnats.DurableCalculator {
	return func(_ string, topic string) string {
		return appType + "-" + strings.NewReplacer(".", "_", "*", "all", ">", "rest").Replace(topic)
	}
}

// NewEventBus connects to NATS and builds JetStream backed watermill endpoints.
// appType prefixes the durable consumer names so separate deployments do
// not steal each other's messages.
func NewEventBus(ctx context.Context, natsURL string, logger *slog.Logger, appType string, metrics observability.Metrics, tracer trace.Tracer) (EventBus, error) {
	conn, err := nc.Connect(natsURL,
		nc.Name(appType),
		nc.RetryOnFailedConnect(true),
		nc.MaxReconnects(-1),
	)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to connect to NATS", attr.Error(err))
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize JetStream: %w", err)
	}

	wmLogger := watermill.NewSlogLogger(logger)
	marshaler := &wmnats.NATSMarshaler{}
	jsConfig := wmnats.JetStreamConfig{
		AutoProvision:     false,
		TrackMsgId:        true,
		DurablePrefix:     appType,
		DurableCalculator: durableName(appType),
		SubscribeOptions: []nc.SubOpt{
			nc.DeliverNew(),
			nc.AckExplicit(),
		},
	}

	publisher, err := wmnats.NewPublisher(wmnats.PublisherConfig{
		URL:         natsURL,
		Marshaler:   marshaler,
		NatsOptions: []nc.Option{nc.RetryOnFailedConnect(true)},
		JetStream:   jsConfig,
	}, wmLogger)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create publisher: %w", err)
	}

	subscriber, err := wmnats.NewSubscriber(wmnats.SubscriberConfig{
		URL:              natsURL,
		Unmarshaler:      marshaler,
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		CloseTimeout:     10 * time.Second,
		NatsOptions:      []nc.Option{nc.RetryOnFailedConnect(true)},
		JetStream:        jsConfig,
	}, wmLogger)
	if err != nil {
		_ = publisher.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to create subscriber: %w", err)
	}

	logger.InfoContext(ctx, "Connected to NATS", attr.String("url", natsURL), attr.String("app_type", appType))

	return &eventBus{
		publisher:      publisher,
		subscriber:     subscriber,
		js:             js,
		conn:           conn,
		logger:         logger,
		metrics:        metrics,
		tracer:         tracer,
		createdStreams: make(map[string]bool),
	}, nil
}

// Publish sends messages to topic. An empty topic means each message names
// its own in the "topic" metadata key, which is how handler results are routed.
func (eb *eventBus) Publish(topic string, messages ...*message.Message) error {
	for _, msg := range messages {
		target := topic
		if target == "" {
			target = msg.Metadata.Get(handlerwrapper.TopicMetadataKey)
		}
		if target == "" {
			return fmt.Errorf("publish %s: %w", msg.UUID, ErrNoTopic)
		}
		if err := eb.publish(target, msg); err != nil {
			return err
		}
	}
	return nil
}

func (eb *eventBus) publish(topic string, msg *message.Message) error {
	ctx := msg.Context()
	ctx, span := eb.tracer.Start(ctx, "eventbus.publish", trace.WithAttributes(
		attribute.String("messaging.destination", topic),
		attribute.String("message.uuid", msg.UUID),
	))
	defer span.End()

	start := time.Now()
	eb.metrics.RecordOperationAttempt(ctx, "publish", metricsService)
	defer func() {
		eb.metrics.RecordOperationDuration(ctx, "publish", metricsService, time.Since(start))
	}()

	if msg.UUID == "" {
		msg.UUID = watermill.NewUUID()
	}
	if middleware.MessageCorrelationID(msg) == "" {
		if id := attr.CorrelationIDFrom(ctx); id != "" {
			middleware.SetCorrelationID(id, msg)
		}
	}

	if err := eb.publisher.Publish(topic, msg); err != nil {
		span.RecordError(err)
		eb.metrics.RecordOperationFailure(ctx, "publish", metricsService)
		eb.logger.ErrorContext(ctx, "Failed to publish message",
			attr.String("topic", topic),
			attr.String("message_id", msg.UUID),
			attr.Error(err),
		)
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	eb.metrics.RecordOperationSuccess(ctx, "publish", metricsService)
	eb.logger.DebugContext(ctx, "Message published",
		attr.String("topic", topic),
		attr.String("message_id", msg.UUID),
	)
	return nil
}

func (eb *eventBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	eb.logger.InfoContext(ctx, "Subscribing", attr.String("topic", topic))
	ch, err := eb.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	return ch, nil
}

// CreateStream creates the stream, or adds any missing subjects to an
// existing one.
func (eb *eventBus) CreateStream(ctx context.Context, name string, subjects ...string) error {
	eb.streamMu.Lock()
	defer eb.streamMu.Unlock()

	if eb.createdStreams[name] {
		return nil
	}

	stream, err := eb.js.Stream(ctx, name)
	switch {
	case errors.Is(err, jetstream.ErrStreamNotFound):
		_, err = eb.js.CreateStream(ctx, jetstream.StreamConfig{
			Name:      name,
			Subjects:  subjects,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   jetstream.FileStorage,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream %s: %w", name, err)
		}
		eb.logger.InfoContext(ctx, "Stream created", attr.String("stream", name), attr.Any("subjects", subjects))
	case err != nil:
		return fmt.Errorf("failed to look up stream %s: %w", name, err)
	default:
		info, err := stream.Info(ctx)
		if err != nil {
			return fmt.Errorf("failed to get stream info: %w", err)
		}
		cfg := info.Config
		changed := false
		for _, s := range subjects {
			if !slices.Contains(cfg.Subjects, s) {
				cfg.Subjects = append(cfg.Subjects, s)
				changed = true
			}
		}
		if changed {
			if _, err := eb.js.UpdateStream(ctx, cfg); err != nil {
				return fmt.Errorf("failed to update stream %s: %w", name, err)
			}
			eb.logger.InfoContext(ctx, "Stream updated", attr.String("stream", name), attr.Any("subjects", cfg.Subjects))
		}
	}

	eb.createdStreams[name] = true
	return nil
}

func (eb *eventBus) JetStream() jetstream.JetStream { return eb.js }

func (eb *eventBus) Conn() *nc.Conn { return eb.conn }

// Close closes the watermill endpoints and the NATS connection.
func (eb *eventBus) Close() error {
	var errs []error
	if err := eb.subscriber.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close subscriber: %w", err))
	}
	if err := eb.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publisher: %w", err))
	}
	eb.conn.Close()
	return errors.Join(errs...)
}
