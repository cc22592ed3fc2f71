package resilience

import "context"

// Operation is a unit of work wrapped by the pipeline. It may be invoked
// zero or more times per execution and must tolerate re-invocation.
type Operation[T any] func(ctx context.Context) (T, error)

// FallbackFunc produces a substitute value once the primary path is
// exhausted. It receives the terminal primary error.
type FallbackFunc[T any] func(ctx context.Context, err error) (T, error)

// ResultKind tags the final outcome of a pipeline execution.
type ResultKind int

const (
	// KindSuccess means the operation itself produced the value.
	KindSuccess ResultKind = iota
	// KindFallback means the fallback produced the value.
	KindFallback
	// KindFailure means neither the operation nor a fallback recovered.
	KindFailure
)

// String returns the string representation of the kind.
func (k ResultKind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindFallback:
		return "fallback"
	case KindFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Result is the tagged outcome of one pipeline execution.
type Result[T any] struct {
	kind  ResultKind
	value T
	err   error
}

// Success wraps a value produced by the operation.
func Success[T any](v T) Result[T] {
	return Result[T]{kind: KindSuccess, value: v}
}

// FromFallback wraps a value produced by the fallback.
func FromFallback[T any](v T) Result[T] {
	return Result[T]{kind: KindFallback, value: v}
}

// Failure wraps a terminal error.
func Failure[T any](err error) Result[T] {
	return Result[T]{kind: KindFailure, err: err}
}

// Kind returns the outcome tag.
func (r Result[T]) Kind() ResultKind { return r.kind }

// Value returns the produced value; the zero value for failures.
func (r Result[T]) Value() T { return r.value }

// Err returns the terminal error; nil for success and fallback outcomes.
func (r Result[T]) Err() error { return r.err }

// Ok reports whether the execution produced a value, from either path.
func (r Result[T]) Ok() bool { return r.kind != KindFailure }

// Unwrap collapses the result back into Go's conventional value/error pair.
func (r Result[T]) Unwrap() (T, error) { return r.value, r.err }
