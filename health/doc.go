// Package health provides health checking primitives for guarded resources.
//
// This package implements a generic health checking framework and a checker
// that derives component health from circuit breaker state. It provides
// interfaces for defining health checks, aggregating results from multiple
// checkers, and exposing health status via HTTP endpoints.
//
// # Core Concepts
//
// A Checker is any component that can report its health status. The Status
// type represents the health state: Healthy, Degraded, or Unhealthy.
//
// # Circuit Breaker Health
//
// BreakerChecker maps the circuit state of every configured resource onto a
// health status: a closed circuit is healthy, a half-open circuit is
// degraded, an open circuit is unhealthy.
//
//	reg := resilience.NewRegistry()
//	check := health.NewBreakerChecker(reg)
//
//	result := check.Check(ctx)
//	if result.Status == health.StatusUnhealthy {
//	    log.Printf("circuits open: %s", result.Message)
//	}
//
// # Aggregating Health Checks
//
// Use Aggregator to combine multiple health checks into a single composite check:
//
//	agg := health.NewAggregator()
//	agg.Register("circuits", health.NewBreakerChecker(reg))
//	agg.Register("memory", health.NewMemoryChecker(health.MemoryCheckerConfig{}))
//
//	// Check all components
//	results := agg.CheckAll(ctx)
//	overall := agg.OverallStatus(results)
//
// # HTTP Endpoints
//
// The package provides HTTP handlers for common health check patterns:
//
//	// Liveness probe (for Kubernetes)
//	http.Handle("/healthz", health.LivenessHandler())
//
//	// Readiness probe with component checks
//	http.Handle("/readyz", health.ReadinessHandler(aggregator))
//
//	// Detailed health status
//	http.Handle("/health", health.DetailedHandler(aggregator))
package health
