package observe

import (
	"context"
	"time"

	"github.com/jonwraymond/shield/resilience"
)

// GuardFunc is the signature for guarded execution functions.
type GuardFunc func(ctx context.Context) error

// Instrumentor wraps guarded executions with observability (tracing,
// metrics, logging) and derives resilience hooks from the same telemetry
// primitives.
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe GuardFunc; Hooks() callbacks
//     are safe for concurrent use.
//   - Context: Propagates context through tracing spans.
//   - Errors: Errors from wrapped functions are recorded and propagated unchanged.
type Instrumentor struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewInstrumentor creates an Instrumentor from an Observer.
func NewInstrumentor(obs Observer) (*Instrumentor, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return &Instrumentor{
		tracer:  newTracer(obs.Tracer()),
		metrics: metrics,
		logger:  obs.Logger(),
	}, nil
}

// Wrap wraps a GuardFunc with tracing, metrics, and logging for the named
// resource. Wrap the function passed to the pipeline, not the pipeline call
// itself, so the span covers every attempt.
func (in *Instrumentor) Wrap(resource string, fn GuardFunc) GuardFunc {
	return func(ctx context.Context) error {
		ctx, span := in.tracer.StartSpan(ctx, resource)
		start := time.Now()

		err := fn(ctx)
		duration := time.Since(start)

		in.tracer.EndSpan(span, err)
		in.metrics.RecordExecution(ctx, resource, duration, err)

		logger := in.logger.WithResource(resource)
		fields := []Field{
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		}
		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			logger.Error(ctx, "guarded execution failed", fields...)
		} else {
			logger.Info(ctx, "guarded execution completed", fields...)
		}

		return err
	}
}

// Hooks returns resilience hooks that record retries, rejections, timeouts,
// and circuit transitions through the Instrumentor's telemetry. Register
// them on the registry with resilience.WithHooks.
func (in *Instrumentor) Hooks() resilience.Hooks {
	ctx := context.Background()
	return resilience.Hooks{
		OnRetry: func(resource string, attempt int, err error) {
			in.metrics.RecordRetry(ctx, resource, attempt)
			in.logger.WithResource(resource).Warn(ctx, "attempt failed, retrying",
				Field{Key: "attempt", Value: attempt},
				Field{Key: "error", Value: err.Error()},
			)
		},
		OnCircuitStateChange: func(resource string, from, to resilience.State) {
			in.metrics.RecordStateChange(ctx, resource, from.String(), to.String())
			in.logger.WithResource(resource).Warn(ctx, "circuit state changed",
				Field{Key: "from", Value: from.String()},
				Field{Key: "to", Value: to.String()},
			)
		},
		OnBulkheadReject: func(resource string) {
			in.metrics.RecordRejection(ctx, resource, "bulkhead")
			in.logger.WithResource(resource).Warn(ctx, "bulkhead rejected call")
		},
		OnTimeout: func(resource string) {
			in.metrics.RecordTimeout(ctx, resource)
			in.logger.WithResource(resource).Warn(ctx, "attempt timed out")
		},
		OnRateLimitReject: func(resource string) {
			in.metrics.RecordRejection(ctx, resource, "ratelimit")
			in.logger.WithResource(resource).Warn(ctx, "rate limiter rejected call")
		},
	}
}

// InstrumentorFromConfig builds an Observer and an Instrumentor in one step.
// This is a convenience function for common use cases.
func InstrumentorFromConfig(ctx context.Context, cfg Config) (*Instrumentor, Observer, error) {
	obs, err := NewObserver(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	in, err := NewInstrumentor(obs)
	if err != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obs.Shutdown(shutdownCtx)
		return nil, nil, err
	}

	return in, obs, nil
}
