package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means the circuit is operating normally.
	StateClosed State = iota
	// StateOpen means the circuit is blocking all requests.
	StateOpen
	// StateHalfOpen means the circuit is testing if the service recovered.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// FailureRateThreshold is the rolling failure rate (0-1] that opens
	// the circuit. Default: 0.5
	FailureRateThreshold float64

	// MinSamples is the minimum number of recorded calls before the
	// failure rate is evaluated. Default: 5
	MinSamples int

	// WindowSize is the capacity of the rolling outcome window.
	// Default: 100
	WindowSize int

	// WindowAge evicts outcomes older than this from the window.
	// Default: 0 (count-based eviction only)
	WindowAge time.Duration

	// OpenDuration is how long the circuit stays open before probing.
	// Default: 30 seconds
	OpenDuration time.Duration

	// HalfOpenMaxCalls is the max trial calls admitted in half-open state.
	// Default: 1
	HalfOpenMaxCalls int

	// HalfOpenSuccesses is the number of trial successes required to close.
	// Default: HalfOpenMaxCalls
	HalfOpenSuccesses int

	// IsFailure determines if an error counts toward the failure rate.
	// Errors it rejects pass through unrecorded.
	// Default: all non-nil errors are failures.
	IsFailure func(err error) bool

	// OnStateChange is called when the circuit state changes.
	OnStateChange func(from, to State)

	// Clock overrides the time source. Default: system clock.
	Clock Clock
}

// CircuitBreaker tracks recent call outcomes in a rolling window and
// short-circuits calls once the failure rate breaches the threshold.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	clock  Clock

	mu            sync.Mutex
	state         State
	window        *callWindow
	openedAt      time.Time
	halfOpenCalls int
	halfOpenOKs   int
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	// Apply defaults
	if config.FailureRateThreshold <= 0 || config.FailureRateThreshold > 1 {
		config.FailureRateThreshold = 0.5
	}
	if config.MinSamples <= 0 {
		config.MinSamples = 5
	}
	if config.WindowSize <= 0 {
		config.WindowSize = 100
	}
	if config.OpenDuration <= 0 {
		config.OpenDuration = 30 * time.Second
	}
	if config.HalfOpenMaxCalls <= 0 {
		config.HalfOpenMaxCalls = 1
	}
	if config.HalfOpenSuccesses <= 0 {
		config.HalfOpenSuccesses = config.HalfOpenMaxCalls
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}

	clock := orSystem(config.Clock)
	return &CircuitBreaker{
		config: config,
		clock:  clock,
		state:  StateClosed,
		window: newCallWindow(config.WindowSize, config.WindowAge, clock),
	}
}

// Allow reports whether a call may proceed. It returns ErrCircuitOpen when
// the call is short-circuited; the wrapped operation must not be invoked.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentStateLocked() {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if cb.halfOpenCalls >= cb.config.HalfOpenMaxCalls {
			return ErrCircuitOpen
		}
		cb.halfOpenCalls++
	}
	return nil
}

// RecordSuccess records a successful call outcome.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.recordLocked(false)
}

// RecordFailure records a failed call outcome. Errors the configured
// classifier rejects are ignored, as are the breaker's own rejections.
func (cb *CircuitBreaker) RecordFailure(err error) {
	if errors.Is(err, ErrCircuitOpen) || !cb.config.IsFailure(err) {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.recordLocked(true)
}

// cancelTrial returns a half-open trial slot consumed by Allow when the
// call ended without a recordable outcome, such as caller cancellation.
// Without it a cancelled probe would hold the slot forever and wedge the
// circuit in half-open.
func (cb *CircuitBreaker) cancelTrial() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateHalfOpen && cb.halfOpenCalls > 0 {
		cb.halfOpenCalls--
	}
}

// Execute runs the operation through the circuit breaker.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := cb.Allow(); err != nil {
		return err
	}

	err := op(ctx)
	if err == nil {
		cb.RecordSuccess()
	} else {
		cb.RecordFailure(err)
	}
	return err
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentStateLocked()
}

// Reset resets the circuit breaker to closed state and clears the window.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	oldState := cb.state
	cb.state = StateClosed
	cb.window.reset()
	cb.halfOpenCalls = 0
	cb.halfOpenOKs = 0

	if oldState != StateClosed && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(oldState, StateClosed)
	}
}

func (cb *CircuitBreaker) recordLocked(failure bool) {
	switch cb.state {
	case StateClosed:
		cb.window.record(failure)
		if failure &&
			cb.window.size() >= cb.config.MinSamples &&
			cb.window.failureRate() >= cb.config.FailureRateThreshold {
			cb.transitionLocked(StateOpen)
		}

	case StateHalfOpen:
		if failure {
			// Failed trial, back to open with a fresh timer.
			cb.transitionLocked(StateOpen)
			return
		}
		cb.halfOpenOKs++
		if cb.halfOpenOKs >= cb.config.HalfOpenSuccesses {
			cb.window.reset()
			cb.transitionLocked(StateClosed)
		}

	case StateOpen:
		// Outcome of a call admitted before the circuit opened; still
		// worth keeping in the window for when the circuit closes.
		cb.window.record(failure)
	}
}

func (cb *CircuitBreaker) currentStateLocked() State {
	if cb.state == StateOpen && cb.clock.Now().Sub(cb.openedAt) >= cb.config.OpenDuration {
		cb.transitionLocked(StateHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) transitionLocked(to State) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state = to

	switch to {
	case StateOpen:
		cb.openedAt = cb.clock.Now()
	case StateHalfOpen:
		cb.halfOpenCalls = 0
		cb.halfOpenOKs = 0
	}

	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(from, to)
	}
}

// Metrics returns current circuit breaker statistics.
func (cb *CircuitBreaker) Metrics() CircuitBreakerMetrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return CircuitBreakerMetrics{
		State:       cb.currentStateLocked(),
		Samples:     cb.window.size(),
		FailureRate: cb.window.failureRate(),
		OpenedAt:    cb.openedAt,
	}
}

// CircuitBreakerMetrics contains circuit breaker statistics.
type CircuitBreakerMetrics struct {
	State       State
	Samples     int
	FailureRate float64
	OpenedAt    time.Time
}
