// Package result provides the two-variant outcome type used for every
// remote command: a success value or a typed error, never both. No
// operation panics; Err is the only failure channel.
package result

import "errors"

var errNil = errors.New("unknown error")

// Result holds either a success value or an error.
// The zero value is an Err carrying an unknown error.
type Result[T any] struct {
	value T
	err   error
	ok    bool
}

// Ok wraps a success value.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v, ok: true}
}

// Err wraps a failure. A nil err is replaced with a generic error so the
// two variants stay mutually exclusive.
func Err[T any](err error) Result[T] {
	if err == nil {
		err = errNil
	}
	return Result[T]{err: err}
}

// IsOk reports whether the result holds a success value.
func (r Result[T]) IsOk() bool {
	return r.ok
}

// Fold invokes exactly one of the two handlers: onErr for the failure
// variant, onOk for the success variant.
func (r Result[T]) Fold(onErr func(error), onOk func(T)) {
	if r.ok {
		if onOk != nil {
			onOk(r.value)
		}
		return
	}
	if onErr != nil {
		onErr(r.errOrNil())
	}
}

// Unwrap returns the success value and a nil error, or the zero value and
// the carried error.
func (r Result[T]) Unwrap() (T, error) {
	if r.ok {
		return r.value, nil
	}
	var zero T
	return zero, r.errOrNil()
}

// UnwrapOr returns the success value, or fallback for the failure variant.
func (r Result[T]) UnwrapOr(fallback T) T {
	if r.ok {
		return r.value
	}
	return fallback
}

func (r Result[T]) errOrNil() error {
	if r.err == nil {
		return errNil
	}
	return r.err
}

// Map rewrites the success value through fn, passing errors through
// untouched.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	if !r.ok {
		return Err[U](r.errOrNil())
	}
	return Ok(fn(r.value))
}

// Match folds the result into a single value of another type.
func Match[T, U any](r Result[T], onErr func(error) U, onOk func(T) U) U {
	if r.ok {
		return onOk(r.value)
	}
	return onErr(r.errOrNil())
}
