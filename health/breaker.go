package health

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonwraymond/shield/resilience"
)

// BreakerChecker reports health derived from circuit breaker state. A
// closed circuit is healthy, a half-open circuit is degraded, an open
// circuit is unhealthy. The overall result takes the worst state across
// all registered resources.
type BreakerChecker struct {
	registry *resilience.Registry
}

// NewBreakerChecker creates a health checker over the given registry.
func NewBreakerChecker(registry *resilience.Registry) *BreakerChecker {
	return &BreakerChecker{registry: registry}
}

// Name returns the name of this checker.
func (b *BreakerChecker) Name() string {
	return "circuits"
}

// Check inspects every registered resource's circuit.
func (b *BreakerChecker) Check(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return Unhealthy("context cancelled", ctx.Err())
	default:
	}

	names := b.registry.Names()
	if len(names) == 0 {
		return Healthy("no resources registered")
	}

	details := make(map[string]any, len(names))
	var open, halfOpen []string

	for _, name := range names {
		res, err := b.registry.Lookup(name)
		if err != nil {
			// Removed between Names and Lookup; skip.
			continue
		}
		m := res.Breaker().Metrics()
		details[name] = map[string]any{
			"state":        m.State.String(),
			"samples":      m.Samples,
			"failure_rate": m.FailureRate,
		}

		switch m.State {
		case resilience.StateOpen:
			open = append(open, name)
		case resilience.StateHalfOpen:
			halfOpen = append(halfOpen, name)
		}
	}

	if len(open) > 0 {
		return Unhealthy(
			fmt.Sprintf("circuits open: %s", strings.Join(open, ", ")),
			ErrCircuitOpen,
		).WithDetails(details)
	}

	if len(halfOpen) > 0 {
		return Degraded(
			fmt.Sprintf("circuits probing recovery: %s", strings.Join(halfOpen, ", ")),
		).WithDetails(details)
	}

	return Healthy(
		fmt.Sprintf("all %d circuits closed", len(names)),
	).WithDetails(details)
}
