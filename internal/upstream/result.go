package upstream

// Result is the tagged outcome of one upstream fetch: either a value or a
// failure reason. Every fetch is wrapped into a Result at its call boundary
// so a fault from one source never propagates out of the aggregation
// pipeline; an Err result is the trigger for a degraded classification, not
// a crash.
type Result[T any] struct {
	value  T
	reason string
	failed bool
}

// Ok wraps a successful fetch value.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Err wraps a failure reason. The zero value of T is retained so callers can
// still read a well-typed (if empty) value.
func Err[T any](reason string) Result[T] {
	return Result[T]{reason: reason, failed: true}
}

// Failed reports whether the fetch failed.
func (r Result[T]) Failed() bool {
	return r.failed
}

// Value returns the wrapped value. For a failed result this is the zero
// value of T.
func (r Result[T]) Value() T {
	return r.value
}

// Reason returns the failure reason, or "" for a successful result.
func (r Result[T]) Reason() string {
	return r.reason
}
