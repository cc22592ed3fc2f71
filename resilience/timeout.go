package resilience

import (
	"context"
	"time"
)

// TimeoutConfig configures the timeout guard.
type TimeoutConfig struct {
	// Timeout is the maximum duration for the operation.
	// Default: 30 seconds
	Timeout time.Duration

	// OnTimeout is called when an operation exceeds its deadline.
	OnTimeout func()
}

// Timeout bounds the wall-clock duration of an operation. Cancellation is
// cooperative: the operation's context is cancelled and the caller is
// unblocked, but non-cooperative work is not forcibly terminated.
type Timeout struct {
	config TimeoutConfig
}

// NewTimeout creates a new timeout guard.
func NewTimeout(config TimeoutConfig) *Timeout {
	// Apply defaults
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &Timeout{config: config}
}

// Execute runs the operation, racing it against the deadline. When the
// deadline fires first the call is reported as ErrTimeout and the caller is
// unblocked; the operation keeps its goroutine until it observes the
// cancelled context.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.config.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- op(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			if t.config.OnTimeout != nil {
				t.config.OnTimeout()
			}
			return ErrTimeout
		}
		return ctx.Err()
	}
}

// Config returns the timeout configuration.
func (t *Timeout) Config() TimeoutConfig {
	return t.config
}

// ExecuteWithTimeout is a convenience function to run an operation with a
// one-off timeout guard.
func ExecuteWithTimeout(ctx context.Context, timeout time.Duration, op func(context.Context) error) error {
	t := NewTimeout(TimeoutConfig{Timeout: timeout})
	return t.Execute(ctx, op)
}
