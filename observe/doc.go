// Package observe provides observability for resilience pipelines.
//
// It is a pure instrumentation library: no execution, no transport, no I/O
// beyond exporter setup. Consumers build an Observer, derive resilience
// hooks from it with NewInstrumentor, and wire those into their registry.
package observe
