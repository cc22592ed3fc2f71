package health

import (
	"context"
	"sync"
	"time"

	"github.com/jonwraymond/shield/resilience"
)

// AggregatorConfig configures the health aggregator.
type AggregatorConfig struct {
	// Timeout bounds a full CheckAll sweep.
	// Default: 10 seconds
	Timeout time.Duration

	// Parallel fans the checks out concurrently when true.
	// Default: true
	Parallel bool
}

// Aggregator combines multiple health checkers into a single composite
// check. The usual setup registers a BreakerChecker over the resilience
// registry next to process-level checkers like MemoryChecker.
type Aggregator struct {
	config   AggregatorConfig
	mu       sync.RWMutex
	checkers map[string]Checker
	names    []string // registration order
}

// NewAggregator creates a new health aggregator.
func NewAggregator(config ...AggregatorConfig) *Aggregator {
	cfg := AggregatorConfig{
		Timeout:  10 * time.Second,
		Parallel: true,
	}
	if len(config) > 0 {
		cfg = config[0]
		if cfg.Timeout <= 0 {
			cfg.Timeout = 10 * time.Second
		}
	}

	return &Aggregator{
		config:   cfg,
		checkers: make(map[string]Checker),
	}
}

// Register adds a health checker under the given name, replacing any
// checker already registered under it.
func (a *Aggregator) Register(name string, checker Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.checkers[name]; !exists {
		a.names = append(a.names, name)
	}
	a.checkers[name] = checker
}

// RegisterChecker adds a checker under its own name.
func (a *Aggregator) RegisterChecker(checker Checker) {
	a.Register(checker.Name(), checker)
}

// RegisterBreakers adds a BreakerChecker over the given registry, so the
// aggregate reflects circuit state alongside the other checks.
func (a *Aggregator) RegisterBreakers(reg *resilience.Registry) {
	a.RegisterChecker(NewBreakerChecker(reg))
}

// Unregister removes a health checker from the aggregator.
func (a *Aggregator) Unregister(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.checkers[name]; !exists {
		return
	}
	delete(a.checkers, name)

	for i, n := range a.names {
		if n == name {
			a.names = append(a.names[:i], a.names[i+1:]...)
			break
		}
	}
}

// CheckerNames returns the registered checker names in registration order.
func (a *Aggregator) CheckerNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, len(a.names))
	copy(names, a.names)
	return names
}

// Check runs a single named health check.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	checker, ok := a.checkers[name]
	a.mu.RUnlock()

	if !ok {
		return Result{}, ErrCheckerNotFound
	}

	return a.runCheck(ctx, checker), nil
}

type checkerEntry struct {
	name    string
	checker Checker
}

// CheckAll runs every registered check under the aggregator's timeout and
// returns the results keyed by checker name.
func (a *Aggregator) CheckAll(ctx context.Context) map[string]Result {
	a.mu.RLock()
	entries := make([]checkerEntry, 0, len(a.names))
	for _, name := range a.names {
		entries = append(entries, checkerEntry{name, a.checkers[name]})
	}
	a.mu.RUnlock()

	results := make(map[string]Result, len(entries))
	if len(entries) == 0 {
		return results
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	if !a.config.Parallel {
		for _, e := range entries {
			results[e.name] = a.runCheck(ctx, e.checker)
		}
		return results
	}

	type outcome struct {
		name   string
		result Result
	}
	ch := make(chan outcome, len(entries))
	for _, e := range entries {
		go func(e checkerEntry) {
			ch <- outcome{e.name, a.runCheck(ctx, e.checker)}
		}(e)
	}
	for range entries {
		o := <-ch
		results[o.name] = o.result
	}
	return results
}

// OverallStatus computes the worst status across a set of results: any
// unhealthy check makes the whole aggregate unhealthy, any degraded check
// degrades it, and an empty set is healthy.
func (a *Aggregator) OverallStatus(results map[string]Result) Status {
	worst := StatusHealthy
	for _, r := range results {
		switch r.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			worst = StatusDegraded
		}
	}
	return worst
}

// runCheck runs one checker in its own goroutine so a stuck check cannot
// block the sweep past the context deadline.
func (a *Aggregator) runCheck(ctx context.Context, checker Checker) Result {
	start := time.Now()
	done := make(chan Result, 1)

	go func() {
		r := checker.Check(ctx)
		if r.Timestamp.IsZero() {
			r.Timestamp = start
		}
		done <- r.WithDuration(time.Since(start))
	}()

	select {
	case r := <-done:
		return r
	case <-ctx.Done():
		return Unhealthy("check timed out", ErrCheckTimeout).WithDuration(time.Since(start))
	}
}

// Checker adapts the aggregator into a single Checker, so one aggregate
// can nest inside another or back a handler directly.
func (a *Aggregator) Checker() Checker {
	return &compositeChecker{agg: a}
}

type compositeChecker struct {
	agg *Aggregator
}

func (c *compositeChecker) Name() string {
	return "aggregate"
}

func (c *compositeChecker) Check(ctx context.Context) Result {
	results := c.agg.CheckAll(ctx)
	status := c.agg.OverallStatus(results)

	details := make(map[string]any, len(results))
	for name, r := range results {
		details[name] = map[string]any{
			"status":   r.Status.String(),
			"message":  r.Message,
			"duration": r.Duration.String(),
		}
	}

	var message string
	switch status {
	case StatusDegraded:
		message = "some checks degraded"
	case StatusUnhealthy:
		message = "some checks failed"
	default:
		message = "all checks passed"
	}

	result := Result{
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	}
	return result.WithDetails(details)
}
