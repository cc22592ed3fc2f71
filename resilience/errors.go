package resilience

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for resilience operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker short-circuits a call.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrBulkheadFull is returned when the bulkhead rejects an admission.
	ErrBulkheadFull = errors.New("resilience: bulkhead at capacity")

	// ErrTimeout is returned when an attempt exceeds its deadline.
	ErrTimeout = errors.New("resilience: operation timed out")

	// ErrMaxAttempts is returned when retry attempts are exhausted.
	// The last attempt's error is wrapped alongside it.
	ErrMaxAttempts = errors.New("resilience: max attempts exceeded")

	// ErrRateLimitExceeded is returned when the rate limiter rejects a call.
	ErrRateLimitExceeded = errors.New("resilience: rate limit exceeded")

	// ErrFallbackFailed is returned when the fallback itself fails.
	ErrFallbackFailed = errors.New("resilience: fallback failed")

	// ErrNoSuchResource is returned when a named resource is not registered.
	ErrNoSuchResource = errors.New("resilience: no such resource")
)

// transientError marks an error as retryable.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return "transient: " + e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// permanentError marks an error as not retryable.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return "permanent: " + e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Transient marks err as retryable. A nil err returns nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// Permanent marks err as not retryable. A nil err returns nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsTransient reports whether err was marked with Transient.
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// DefaultRetryIf is the default retry classifier. Every failure is retried
// except ones marked Permanent and rejections produced by the library itself.
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}
	if IsPermanent(err) {
		return false
	}
	switch {
	case errors.Is(err, ErrCircuitOpen),
		errors.Is(err, ErrBulkheadFull),
		errors.Is(err, ErrRateLimitExceeded):
		return false
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		// Caller cancellation and exhausted overall budgets are final.
		// Per-attempt deadlines surface as ErrTimeout and stay retryable.
		return false
	}
	return true
}

// fallbackError carries both the primary failure and the fallback's own error.
type fallbackError struct {
	primary  error
	fallback error
}

func (e *fallbackError) Error() string {
	return fmt.Sprintf("%v (primary: %v, fallback: %v)", ErrFallbackFailed, e.primary, e.fallback)
}

func (e *fallbackError) Is(target error) bool { return target == ErrFallbackFailed }

func (e *fallbackError) Unwrap() []error { return []error{e.primary, e.fallback} }
