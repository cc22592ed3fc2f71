package resilience

import (
	"math"
	"math/rand/v2"
	"time"
)

// Backoff computes the delay before the next retry. The attempt number of
// the call that just failed is passed in, starting at 1.
type Backoff func(attempt int) time.Duration

// ConstantBackoff returns the same delay for every retry.
func ConstantBackoff(d time.Duration) Backoff {
	return func(int) time.Duration { return d }
}

// LinearBackoff grows the delay linearly with the attempt number.
func LinearBackoff(initial time.Duration) Backoff {
	return func(attempt int) time.Duration {
		return initial * time.Duration(attempt)
	}
}

// ExponentialBackoff multiplies the delay by multiplier after each attempt,
// capped at max.
func ExponentialBackoff(initial time.Duration, multiplier float64, max time.Duration) Backoff {
	if multiplier <= 1 {
		multiplier = 2.0
	}
	return func(attempt int) time.Duration {
		d := time.Duration(float64(initial) * math.Pow(multiplier, float64(attempt-1)))
		switch {
		case max > 0 && (d > max || d < 0):
			d = max
		case d < 0:
			// Overflow with no cap configured.
			d = time.Duration(math.MaxInt64)
		}
		return d
	}
}

// WithJitter adds up to fraction (0-1] of random extra delay to prevent
// thundering herds. A fraction outside the range defaults to 0.25.
func WithJitter(b Backoff, fraction float64) Backoff {
	if fraction <= 0 || fraction > 1 {
		fraction = 0.25
	}
	return func(attempt int) time.Duration {
		d := b(attempt)
		if d <= 0 {
			return d
		}
		span := int64(float64(d) * fraction)
		if span <= 0 {
			return d
		}
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		return d + time.Duration(rand.Int64N(span))
	}
}

// DefaultBackoff is exponential starting at 100ms, doubling, capped at 30s,
// with 25% jitter.
func DefaultBackoff() Backoff {
	return WithJitter(ExponentialBackoff(100*time.Millisecond, 2.0, 30*time.Second), 0.25)
}
