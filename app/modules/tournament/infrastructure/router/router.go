package tournamentrouter

import (
	"context"
	"log/slog"
	"os"

	chatevents "github.com/Black-And-White-Club/tourney-bot/app/events/chat"
	tournamenthandlers "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/infrastructure/handlers"
	"github.com/Black-And-White-Club/tourney-bot/app/observability"
	"github.com/Black-And-White-Club/tourney-bot/app/utils/handlerwrapper"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

const (
	TestEnvironmentFlag  = "APP_ENV"
	TestEnvironmentValue = "test"
)

// TournamentRouter routes chat events into the tournament handlers.
type TournamentRouter struct {
	logger     *slog.Logger
	Router     *message.Router
	subscriber message.Subscriber
	publisher  message.Publisher
	tracer     trace.Tracer
	metrics    observability.Metrics

	metricsBuilder *metrics.PrometheusMetricsBuilder
}

func NewTournamentRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber message.Subscriber,
	publisher message.Publisher,
	tracer trace.Tracer,
	handlerMetrics observability.Metrics,
	registry *prometheus.Registry,
) *TournamentRouter {
	var metricsBuilder *metrics.PrometheusMetricsBuilder
	if registry != nil && os.Getenv(TestEnvironmentFlag) != TestEnvironmentValue {
		b := metrics.NewPrometheusMetricsBuilder(registry, "", "")
		metricsBuilder = &b
	}

	return &TournamentRouter{
		logger:         logger,
		Router:         router,
		subscriber:     subscriber,
		publisher:      publisher,
		tracer:         tracer,
		metrics:        handlerMetrics,
		metricsBuilder: metricsBuilder,
	}
}

// Configure adds the middleware chain and registers every handler.
func (r *TournamentRouter) Configure(_ context.Context, handlers tournamenthandlers.Handlers) error {
	if r.metricsBuilder != nil {
		r.metricsBuilder.AddPrometheusRouterMetrics(r.Router)
	}

	r.Router.AddMiddleware(
		middleware.CorrelationID,
		middleware.Recoverer,
	)

	r.registerHandlers(handlers)
	return nil
}

type handlerDeps struct {
	router     *message.Router
	subscriber message.Subscriber
	publisher  message.Publisher
	logger     *slog.Logger
	tracer     trace.Tracer
	metrics    observability.Metrics
}

// registerHandler registers a transformation-pattern handler with a typed payload.
func registerHandler[T any](
	deps handlerDeps,
	topic string,
	handler func(context.Context, *T) ([]handlerwrapper.Result, error),
) {
	handlerName := "tournament." + topic

	deps.router.AddHandler(
		handlerName,
		topic,
		deps.subscriber,
		"", // results carry their topic in metadata
		deps.publisher,
		handlerwrapper.WrapTransformingTyped(
			handlerName,
			deps.logger,
			deps.tracer,
			deps.metrics,
			handler,
		),
	)
}

func (r *TournamentRouter) registerHandlers(h tournamenthandlers.Handlers) {
	deps := handlerDeps{
		router:     r.Router,
		subscriber: r.subscriber,
		publisher:  r.publisher,
		logger:     r.logger,
		tracer:     r.tracer,
		metrics:    r.metrics,
	}

	registerHandler(deps, chatevents.MessageCreatedV1, h.HandleMessageCreated)
	registerHandler(deps, chatevents.MessageDeletedV1, h.HandleMessageDeleted)
	registerHandler(deps, chatevents.ReactionAddedV1, h.HandleReactionAdded)
	registerHandler(deps, chatevents.ReactionRemovedV1, h.HandleReactionRemoved)
}

// Close stops the router.
func (r *TournamentRouter) Close() error {
	return r.Router.Close()
}
