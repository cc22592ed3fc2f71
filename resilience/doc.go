// Package resilience provides retry, circuit breaker, bulkhead, timeout,
// and rate limiting primitives that wrap an arbitrary fallible operation.
//
// Each primitive can be used on its own, but the usual entry point is the
// Pipeline, which scopes independent resilience state to named resources
// and composes the primitives in a fixed order around one operation.
//
// # Primitives
//
//   - Circuit Breaker: tracks recent outcomes per resource in a rolling
//     window and short-circuits calls once the failure rate breaches a
//     threshold, probing recovery through a half-open state.
//
//   - Retry: re-invokes classified-retryable failures up to a bound with
//     pluggable backoff (constant, linear, exponential, jittered).
//
//   - Bulkhead: bounds concurrent in-flight calls per resource, rejecting
//     or queueing excess callers.
//
//   - Timeout: bounds the wall-clock duration of each attempt with
//     cooperative cancellation.
//
//   - Rate Limiter: token bucket limiting the call rate per resource.
//
// # Usage
//
// Configure a resource once, then execute operations against it:
//
//	reg := resilience.NewRegistry()
//	pipe := resilience.NewPipeline(reg)
//
//	err := pipe.Configure("billing-api", resilience.Config{
//	    Retry: resilience.RetryConfig{
//	        MaxAttempts: 3,
//	        Backoff:     resilience.ExponentialBackoff(100*time.Millisecond, 2.0, 5*time.Second),
//	    },
//	    CircuitBreaker: resilience.CircuitBreakerConfig{
//	        FailureRateThreshold: 0.5,
//	        MinSamples:           10,
//	        OpenDuration:         30 * time.Second,
//	    },
//	    Bulkhead:       resilience.BulkheadConfig{MaxConcurrent: 20},
//	    AttemptTimeout: 2 * time.Second,
//	})
//
//	result := resilience.ExecuteWithFallback(ctx, pipe, "billing-api",
//	    func(ctx context.Context) (Invoice, error) {
//	        return client.FetchInvoice(ctx, id)
//	    },
//	    func(ctx context.Context, err error) (Invoice, error) {
//	        return cachedInvoice(id)
//	    })
//
// The result is a tagged outcome: Success with the operation's value,
// Fallback with the substitute value, or Failure with the terminal error.
//
// All state is in-memory and scoped to the Registry the pipeline was built
// with; there are no package-level globals.
package resilience
