package resilience

import (
	"context"
	"errors"
	"time"
)

// Pipeline composes the per-resource resilience primitives around a single
// operation: rate limiter and bulkhead admission, circuit breaker admission,
// then a retry loop whose attempts run under the attempt timeout, with every
// attempt outcome recorded into the circuit breaker exactly once. On
// unrecovered failure the fallback, when present, produces the result.
type Pipeline struct {
	registry *Registry
}

// NewPipeline creates a pipeline over the given registry. A nil registry
// gets a fresh one with default configuration.
func NewPipeline(registry *Registry) *Pipeline {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Pipeline{registry: registry}
}

// Registry returns the pipeline's resource registry.
func (p *Pipeline) Registry() *Registry { return p.registry }

// Configure registers or fully replaces the configuration for a resource.
func (p *Pipeline) Configure(name string, cfg Config) error {
	return p.registry.Configure(name, cfg)
}

// Do runs an error-only operation through the pipeline and collapses the
// result to a plain error.
func (p *Pipeline) Do(ctx context.Context, resource string, op func(context.Context) error) error {
	r := Execute(ctx, p, resource, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return r.Err()
}

// Execute runs op through the resilience pipeline for the named resource.
func Execute[T any](ctx context.Context, p *Pipeline, resource string, op Operation[T]) Result[T] {
	return ExecuteWithFallback[T](ctx, p, resource, op, nil)
}

// ExecuteWithFallback runs op through the pipeline and, when every attempt
// is exhausted or admission is rejected, consults fallback for a substitute
// value. The fallback receives the terminal primary error; a nil fallback
// yields a Failure result.
func ExecuteWithFallback[T any](ctx context.Context, p *Pipeline, resource string, op Operation[T], fallback FallbackFunc[T]) Result[T] {
	res := p.registry.Resource(resource)
	hooks := p.registry.hooks

	// The fallback always runs against the caller's context, not the
	// pipeline's own deadlines.
	callerCtx := ctx

	if res.limiter != nil {
		if err := admitRate(ctx, res); err != nil {
			if errors.Is(err, ErrRateLimitExceeded) && hooks.OnRateLimitReject != nil {
				hooks.OnRateLimitReject(resource)
			}
			return settle(callerCtx, fallback, err)
		}
	}

	if err := res.bulkhead.Acquire(ctx); err != nil {
		return settle(callerCtx, fallback, err)
	}
	defer res.bulkhead.Release()

	if err := res.breaker.Allow(); err != nil {
		return settle(callerCtx, fallback, err)
	}

	var overall context.Context
	if d := res.config.OverallTimeout; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
		overall = ctx
	}

	var value T
	admitted := true // first attempt was admitted above
	attempt := func(ctx context.Context) error {
		if !admitted {
			if err := res.breaker.Allow(); err != nil {
				return err
			}
		}
		admitted = false

		err := runAttempt(ctx, res, op, &value)
		switch {
		case err == nil:
			res.breaker.RecordSuccess()
		case errors.Is(err, context.Canceled):
			// Caller went away; not a verdict on the resource. Return the
			// half-open trial slot so the probe can be retried by others.
			res.breaker.cancelTrial()
		default:
			res.breaker.RecordFailure(err)
		}
		return err
	}

	retryCfg := res.config.Retry
	userRetryIf := retryCfg.RetryIf
	if userRetryIf == nil {
		userRetryIf = DefaultRetryIf
	}
	// Circuit rejections bypass retry no matter what the classifier says.
	retryCfg.RetryIf = func(err error) bool {
		if errors.Is(err, ErrCircuitOpen) {
			return false
		}
		return userRetryIf(err)
	}
	if h := hooks.OnRetry; h != nil {
		user := retryCfg.OnRetry
		retryCfg.OnRetry = func(n int, err error, delay time.Duration) {
			if user != nil {
				user(n, err, delay)
			}
			h(resource, n, err)
		}
	}

	err := NewRetry(retryCfg).Execute(ctx, attempt)
	if err == nil {
		return Success(value)
	}
	if overall != nil && overall.Err() == context.DeadlineExceeded && errors.Is(err, context.DeadlineExceeded) {
		err = ErrTimeout
		if hooks.OnTimeout != nil {
			hooks.OnTimeout(resource)
		}
	}
	return settle(callerCtx, fallback, err)
}

// admitRate applies the resource's rate limiter.
func admitRate(ctx context.Context, res *Resource) error {
	if res.config.RateLimiter.WaitOnLimit {
		return res.limiter.Wait(ctx)
	}
	if !res.limiter.Allow() {
		return ErrRateLimitExceeded
	}
	return nil
}

// runAttempt invokes op once, under the attempt timeout when configured,
// storing a successful value through out. The value is held in an
// attempt-local slot and published only after the guard accepts the attempt,
// so a timed-out attempt's goroutine can finish late without racing the
// next attempt or the caller.
func runAttempt[T any](ctx context.Context, res *Resource, op Operation[T], out *T) error {
	var v T
	invoke := func(ctx context.Context) error {
		got, err := op(ctx)
		if err == nil {
			v = got
		}
		return err
	}

	var err error
	if res.timeout != nil {
		err = res.timeout.Execute(ctx, invoke)
	} else {
		err = invoke(ctx)
	}
	if err == nil {
		*out = v
	}
	return err
}

// settle turns a terminal pipeline error into the final result, consulting
// the fallback when present. Only the pipeline invokes fallbacks; every
// lower component surfaces raw failures.
func settle[T any](ctx context.Context, fallback FallbackFunc[T], err error) Result[T] {
	if fallback == nil {
		return Failure[T](err)
	}
	v, ferr := fallback(ctx, err)
	if ferr != nil {
		return Failure[T](&fallbackError{primary: err, fallback: ferr})
	}
	return FromFallback(v)
}
