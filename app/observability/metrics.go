package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records operation outcomes for services, workers and adapters.
type Metrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)
}

// PrometheusMetrics implements Metrics with counter and histogram vectors.
type PrometheusMetrics struct {
	attempts  *prometheus.CounterVec
	successes *prometheus.CounterVec
	failures  *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

var _ Metrics = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics registers the operation metrics on reg.
func NewPrometheusMetrics(reg prometheus.Registerer, namespace string) (*PrometheusMetrics, error) {
	labels := []string{"operation", "service"}
	m := &PrometheusMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_attempts_total",
			Help:      "Number of attempted operations.",
		}, labels),
		successes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_success_total",
			Help:      "Number of operations that completed without error.",
		}, labels),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_failure_total",
			Help:      "Number of operations that returned an error.",
		}, labels),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, labels),
	}
	for _, c := range []prometheus.Collector{m.attempts, m.successes, m.failures, m.durations} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *PrometheusMetrics) RecordOperationAttempt(_ context.Context, operation, service string) {
	m.attempts.WithLabelValues(operation, service).Inc()
}

func (m *PrometheusMetrics) RecordOperationSuccess(_ context.Context, operation, service string) {
	m.successes.WithLabelValues(operation, service).Inc()
}

func (m *PrometheusMetrics) RecordOperationFailure(_ context.Context, operation, service string) {
	m.failures.WithLabelValues(operation, service).Inc()
}

func (m *PrometheusMetrics) RecordOperationDuration(_ context.Context, operation, service string, duration time.Duration) {
	m.durations.WithLabelValues(operation, service).Observe(duration.Seconds())
}

// NoOpMetrics discards everything. Used by tests and tools.
type NoOpMetrics struct{}

func (NoOpMetrics) RecordOperationAttempt(context.Context, string, string)                 {}
func (NoOpMetrics) RecordOperationSuccess(context.Context, string, string)                 {}
func (NoOpMetrics) RecordOperationFailure(context.Context, string, string)                 {}
func (NoOpMetrics) RecordOperationDuration(context.Context, string, string, time.Duration) {}
