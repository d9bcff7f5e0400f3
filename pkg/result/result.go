// Package result carries adapter outcomes that may be live, fallback or failed.
package result

type Kind int

const (
	KindOk Kind = iota
	KindFallback
	KindErr
)

func (k Kind) String() string {
	switch k {
	case KindOk:
		return "ok"
	case KindFallback:
		return "fallback"
	default:
		return "error"
	}
}

// Result is the outcome of one adapter call. A Fallback holds a usable
// synthetic value together with the reason the live path was skipped.
type Result[T any] struct {
	Value  T
	Kind   Kind
	Reason string
	Cause  error
}

func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v, Kind: KindOk}
}

func Fallback[T any](v T, reason string) Result[T] {
	return Result[T]{Value: v, Kind: KindFallback, Reason: reason}
}

func Err[T any](err error) Result[T] {
	r := Result[T]{Kind: KindErr, Cause: err}
	if err != nil {
		r.Reason = err.Error()
	}
	return r
}

func (r Result[T]) IsOk() bool       { return r.Kind == KindOk }
func (r Result[T]) IsFallback() bool { return r.Kind == KindFallback }
func (r Result[T]) IsErr() bool      { return r.Kind == KindErr }
