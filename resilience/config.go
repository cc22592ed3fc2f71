package resilience

import (
	"fmt"
	"time"
)

// Config is the full resilience configuration for one named resource.
// Component configs left at their zero values take the component defaults.
type Config struct {
	// Retry configures the retry executor.
	Retry RetryConfig

	// CircuitBreaker configures the circuit breaker.
	CircuitBreaker CircuitBreakerConfig

	// Bulkhead configures the concurrency limiter.
	Bulkhead BulkheadConfig

	// RateLimiter, when non-nil, adds a token bucket in front of the
	// bulkhead.
	RateLimiter *RateLimiterConfig

	// AttemptTimeout bounds each individual attempt. 0 disables it.
	AttemptTimeout time.Duration

	// OverallTimeout bounds one whole execution, all retries and backoff
	// waits included. 0 disables it.
	OverallTimeout time.Duration

	// Clock overrides the time source for every component. Component-level
	// clocks take precedence when set.
	Clock Clock
}

// DefaultConfig returns the configuration applied to resources that are
// used before being configured.
func DefaultConfig() Config {
	return Config{}
}

// Validate rejects configurations the components would silently replace
// with defaults when the replacement would be surprising.
func (c Config) Validate() error {
	if c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("resilience: max attempts must be >= 1, got %d", c.Retry.MaxAttempts)
	}
	if t := c.CircuitBreaker.FailureRateThreshold; t < 0 || t > 1 {
		return fmt.Errorf("resilience: failure rate threshold must be in (0, 1], got %v", t)
	}
	if c.Bulkhead.MaxConcurrent < 0 {
		return fmt.Errorf("resilience: max concurrent must be >= 1, got %d", c.Bulkhead.MaxConcurrent)
	}
	if c.AttemptTimeout < 0 {
		return fmt.Errorf("resilience: attempt timeout must be >= 0, got %v", c.AttemptTimeout)
	}
	if c.OverallTimeout < 0 {
		return fmt.Errorf("resilience: overall timeout must be >= 0, got %v", c.OverallTimeout)
	}
	return nil
}

// normalize pushes the shared clock down into component configs that did
// not set their own.
func (c Config) normalize() Config {
	if c.Clock == nil {
		return c
	}
	if c.Retry.Clock == nil {
		c.Retry.Clock = c.Clock
	}
	if c.CircuitBreaker.Clock == nil {
		c.CircuitBreaker.Clock = c.Clock
	}
	if c.RateLimiter != nil && c.RateLimiter.Clock == nil {
		rl := *c.RateLimiter
		rl.Clock = c.Clock
		c.RateLimiter = &rl
	}
	return c
}
