// Package observability bundles the logger, tracer and metrics handed to modules.
package observability

import (
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const serviceName = "tourney-bot"

// Config selects the log format and metrics endpoint.
type Config struct {
	Environment    string
	MetricsAddress string
	LogLevel       string
}

// Observability is passed to every module constructor.
type Observability struct {
	Logger   *slog.Logger
	Tracer   trace.Tracer
	Metrics  Metrics
	Registry *prometheus.Registry
}

// New builds the process-wide observability stack. Tracing goes through the
// global otel provider, which stays a no-op unless an exporter is installed.
func New(cfg Config) (*Observability, error) {
	level := slog.LevelInfo
	if cfg.LogLevel != "" {
		if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			return nil, err
		}
	}

	var handler slog.Handler
	if cfg.Environment == "development" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	logger := slog.New(handler).With(
		slog.String("service", serviceName),
		slog.String("environment", cfg.Environment),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	metrics, err := NewPrometheusMetrics(registry, "tourney")
	if err != nil {
		return nil, err
	}

	return &Observability{
		Logger:   logger,
		Tracer:   otel.Tracer(serviceName),
		Metrics:  metrics,
		Registry: registry,
	}, nil
}

// NewNoop returns an Observability that discards logs, spans and metrics.
func NewNoop() *Observability {
	return &Observability{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Tracer:   noop.NewTracerProvider().Tracer(serviceName),
		Metrics:  NoOpMetrics{},
		Registry: prometheus.NewRegistry(),
	}
}
