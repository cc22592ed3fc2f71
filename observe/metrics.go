package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records execution metrics for guarded resources.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordExecution records a guarded execution with duration and error status.
	RecordExecution(ctx context.Context, resource string, duration time.Duration, err error)

	// RecordRetry records a retry of an attempt against a resource.
	RecordRetry(ctx context.Context, resource string, attempt int)

	// RecordRejection records an admission rejection (bulkhead or rate limiter).
	RecordRejection(ctx context.Context, resource, kind string)

	// RecordTimeout records an attempt cut off by its deadline.
	RecordTimeout(ctx context.Context, resource string)

	// RecordStateChange records a circuit breaker state transition.
	RecordStateChange(ctx context.Context, resource, from, to string)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	meter            metric.Meter
	totalCount       metric.Int64Counter
	errorCount       metric.Int64Counter
	durationHist     metric.Float64Histogram
	retryCount       metric.Int64Counter
	rejectionCount   metric.Int64Counter
	timeoutCount     metric.Int64Counter
	stateChangeCount metric.Int64Counter
}

// newMetrics creates a new Metrics instance with the given meter.
func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	totalCount, err := meter.Int64Counter(
		"resilience.exec.total",
		metric.WithDescription("Total number of guarded executions"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"resilience.exec.errors",
		metric.WithDescription("Total number of guarded execution errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"resilience.exec.duration_ms",
		metric.WithDescription("Guarded execution duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	retryCount, err := meter.Int64Counter(
		"resilience.retries",
		metric.WithDescription("Total number of retried attempts"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, err
	}

	rejectionCount, err := meter.Int64Counter(
		"resilience.rejections",
		metric.WithDescription("Total number of admission rejections"),
		metric.WithUnit("{rejection}"),
	)
	if err != nil {
		return nil, err
	}

	timeoutCount, err := meter.Int64Counter(
		"resilience.timeouts",
		metric.WithDescription("Total number of attempts cut off by a deadline"),
		metric.WithUnit("{timeout}"),
	)
	if err != nil {
		return nil, err
	}

	stateChangeCount, err := meter.Int64Counter(
		"resilience.circuit.transitions",
		metric.WithDescription("Total number of circuit breaker state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:            meter,
		totalCount:       totalCount,
		errorCount:       errorCount,
		durationHist:     durationHist,
		retryCount:       retryCount,
		rejectionCount:   rejectionCount,
		timeoutCount:     timeoutCount,
		stateChangeCount: stateChangeCount,
	}, nil
}

// RecordExecution records metrics for a guarded execution.
func (m *metricsImpl) RecordExecution(ctx context.Context, resource string, duration time.Duration, err error) {
	opt := metric.WithAttributes(attribute.String("resource.name", resource))

	// Always increment total counter
	m.totalCount.Add(ctx, 1, opt)

	// Increment error counter on failure
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}

	// Record duration in milliseconds
	durationMs := float64(duration.Milliseconds())
	m.durationHist.Record(ctx, durationMs, opt)
}

func (m *metricsImpl) RecordRetry(ctx context.Context, resource string, attempt int) {
	m.retryCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("resource.name", resource),
		attribute.Int("attempt", attempt),
	))
}

func (m *metricsImpl) RecordRejection(ctx context.Context, resource, kind string) {
	m.rejectionCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("resource.name", resource),
		attribute.String("kind", kind),
	))
}

func (m *metricsImpl) RecordTimeout(ctx context.Context, resource string) {
	m.timeoutCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("resource.name", resource),
	))
}

func (m *metricsImpl) RecordStateChange(ctx context.Context, resource, from, to string) {
	m.stateChangeCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("resource.name", resource),
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (m *noopMetrics) RecordExecution(ctx context.Context, resource string, duration time.Duration, err error) {
}
func (m *noopMetrics) RecordRetry(ctx context.Context, resource string, attempt int) {}
func (m *noopMetrics) RecordRejection(ctx context.Context, resource, kind string)    {}
func (m *noopMetrics) RecordTimeout(ctx context.Context, resource string)            {}
func (m *noopMetrics) RecordStateChange(ctx context.Context, resource, from, to string) {}
