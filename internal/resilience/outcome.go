// Package resilience provides degraded-path results, retry with backoff, and
// a circuit breaker for calls to external collaborators.
package resilience

// Source identifies which branch produced an Outcome value.
type Source int

const (
	// Primary means the collaborator answered.
	Primary Source = iota
	// Degraded means a fallback value was substituted.
	Degraded
)

func (s Source) String() string {
	if s == Degraded {
		return "degraded"
	}
	return "primary"
}

// Outcome is a value tagged with the branch that produced it. A degraded
// outcome carries the cause that forced the fallback.
type Outcome[T any] struct {
	Value  T
	Source Source
	Cause  error
}

// Ok wraps a primary value.
func Ok[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v, Source: Primary}
}

// Fallback wraps a substitute value with the error that caused it.
func Fallback[T any](v T, cause error) Outcome[T] {
	return Outcome[T]{Value: v, Source: Degraded, Cause: cause}
}

// IsDegraded reports whether the fallback branch was taken.
func (o Outcome[T]) IsDegraded() bool {
	return o.Source == Degraded
}

// Or returns fn's value as a primary outcome, or fallback(err) when fn fails.
func Or[T any](fn func() (T, error), fallback func(error) T) Outcome[T] {
	v, err := fn()
	if err != nil {
		return Fallback(fallback(err), err)
	}
	return Ok(v)
}
