package resilience

import "time"

// Clock supplies time to the resilience components. Injecting a Clock makes
// window eviction, open-state expiry, and backoff waits testable without
// real sleeps.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After waits for the duration to elapse and then delivers the
	// current time on the returned channel.
	After(d time.Duration) <-chan time.Time
}

// systemClock is the default Clock backed by the time package.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock returns the process wall clock.
func SystemClock() Clock { return systemClock{} }

// orSystem returns c, or the system clock when c is nil.
func orSystem(c Clock) Clock {
	if c == nil {
		return systemClock{}
	}
	return c
}
