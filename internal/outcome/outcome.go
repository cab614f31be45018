// Package outcome provides the tagged success/failure value returned across
// the core instead of error unwinding for expected failures.
package outcome

import (
	"errors"
	"fmt"
)

// DefaultSuccessMessage is reported by a success that was not given a message.
const DefaultSuccessMessage = "Operation completed successfully"

// Unit is the empty payload of outcomes that only report success or failure.
type Unit struct{}

// Outcome is the result of an operation: either a success carrying a value
// or a failure carrying a code and message. A failure never carries a value.
type Outcome[T any] struct {
	success bool
	code    Code
	message string
	value   T
	cause   error
}

// Success returns a successful outcome holding value.
func Success[T any](value T) Outcome[T] {
	return Outcome[T]{success: true, value: value}
}

// SuccessWithMessage returns a successful outcome with a custom message.
func SuccessWithMessage[T any](value T, message string) Outcome[T] {
	return Outcome[T]{success: true, value: value, message: message}
}

// OK returns a successful Unit outcome.
func OK() Outcome[Unit] {
	return Success(Unit{})
}

// Failure returns a failed outcome with the given code and message.
func Failure[T any](code Code, message string) Outcome[T] {
	return Outcome[T]{code: code, message: message}
}

// Failuref is Failure with a formatted message.
func Failuref[T any](code Code, format string, args ...any) Outcome[T] {
	return Failure[T](code, fmt.Sprintf(format, args...))
}

// FailureFrom returns a failed outcome whose message is err's text. The error
// is kept as the cause for logging and errors.Is checks.
func FailureFrom[T any](code Code, err error) Outcome[T] {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return Outcome[T]{code: code, message: msg, cause: err}
}

// Propagate converts a failed outcome into a failure of another value type,
// keeping code, message and cause unchanged. It panics if o is a success,
// since a success cannot be re-typed without a value.
func Propagate[U, T any](o Outcome[T]) Outcome[U] {
	if o.success {
		panic("outcome: Propagate called on a successful outcome")
	}
	return Outcome[U]{code: o.code, message: o.message, cause: o.cause}
}

// Map transforms a success value; failures pass through unchanged.
func Map[T, U any](o Outcome[T], fn func(T) U) Outcome[U] {
	if !o.success {
		return Propagate[U](o)
	}
	return Outcome[U]{success: true, value: fn(o.value), message: o.message}
}

// FlatMap chains an outcome-returning step after a success.
func FlatMap[T, U any](o Outcome[T], fn func(T) Outcome[U]) Outcome[U] {
	if !o.success {
		return Propagate[U](o)
	}
	return fn(o.value)
}

// IsSuccess reports whether the outcome is a success.
func (o Outcome[T]) IsSuccess() bool { return o.success }

// IsFailure reports whether the outcome is a failure.
func (o Outcome[T]) IsFailure() bool { return !o.success }

// Code returns the failure code, empty for successes.
func (o Outcome[T]) Code() Code { return o.code }

// Message returns the human-readable message.
func (o Outcome[T]) Message() string {
	if o.success && o.message == "" {
		return DefaultSuccessMessage
	}
	return o.message
}

// Value returns the success value; the zero value for failures.
func (o Outcome[T]) Value() T { return o.value }

// Cause returns the underlying error of a failure, if any.
func (o Outcome[T]) Cause() error { return o.cause }

// WithCause attaches an underlying error to a failure.
func (o Outcome[T]) WithCause(err error) Outcome[T] {
	if !o.success {
		o.cause = err
	}
	return o
}

// OrElse returns the success value or fallback.
func (o Outcome[T]) OrElse(fallback T) T {
	if o.success {
		return o.value
	}
	return fallback
}

// Err returns nil for a success and an *Error for a failure.
func (o Outcome[T]) Err() error {
	if o.success {
		return nil
	}
	return &Error{Code: o.code, Message: o.message, Cause: o.cause}
}

// Error adapts a failed outcome to the error interface so it can cross
// boundaries that speak Go errors (transactions, errgroup).
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// FromError recovers a failed outcome from an error produced by Err. Errors
// of other kinds become failures with the fallback code.
func FromError[T any](err error, fallback Code) Outcome[T] {
	var oe *Error
	if errors.As(err, &oe) {
		return Outcome[T]{code: oe.Code, message: oe.Message, cause: oe.Cause}
	}
	return FailureFrom[T](fallback, err)
}
