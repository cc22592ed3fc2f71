package resilience

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig configures the retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	// Default: 3
	MaxAttempts int

	// Backoff computes the delay before each retry.
	// Default: DefaultBackoff()
	Backoff Backoff

	// RetryIf determines if an error should trigger a retry.
	// Default: DefaultRetryIf
	RetryIf func(err error) bool

	// OnRetry is called before each retry attempt.
	OnRetry func(attempt int, err error, delay time.Duration)

	// Clock overrides the time source for backoff waits.
	// Default: system clock.
	Clock Clock
}

// Retry re-invokes failing operations up to a bound with a backoff delay
// between attempts. Retry state is per call; a Retry value can be shared.
type Retry struct {
	config RetryConfig
	clock  Clock
}

// NewRetry creates a new retry executor.
func NewRetry(config RetryConfig) *Retry {
	// Apply defaults
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.Backoff == nil {
		config.Backoff = DefaultBackoff()
	}
	if config.RetryIf == nil {
		config.RetryIf = DefaultRetryIf
	}

	return &Retry{config: config, clock: orSystem(config.Clock)}
}

// Execute runs the operation, retrying classified-retryable failures until
// it succeeds or attempts run out. The delay between attempts suspends on
// the clock and on ctx, never busy-waits.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !r.config.RetryIf(err) {
			return err
		}
		if attempt >= r.config.MaxAttempts {
			break
		}

		delay := r.config.Backoff(attempt)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.clock.After(delay):
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrMaxAttempts, r.config.MaxAttempts, lastErr)
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}
