// Package errors augments the standard errors
// provided by fmt (https://golang.org/src/fmt/errors.go)
// with wrapping methods, so sentinel errors declared by
// the status packages can carry an underlying cause
// without resorting to fmt.Errorf("%w", err).
package errors

import (
	stderr "errors"

	"go.uber.org/zap"
)

var _ error = New("")

// New Error
func New(msg string) *Error {
	return &Error{msg: msg}
}

// Error augments the standard error interface with wrapping methods.
//
// The main difference with github.com/pkg/errors is that we are wrapping
// errors from errors, not from text.
type Error struct {
	msg string
	err error
}

// Error message, including the wrapped cause when present
func (e *Error) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

// Unwrap nested error
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// Wrap a nested error. A copy is returned, so sentinel errors
// remain usable concurrently.
func (e *Error) Wrap(err error) *Error {
	return &Error{msg: e.msg, err: err}
}

// WrapMessage wraps a cause built from a plain message
func (e *Error) WrapMessage(msg string) *Error {
	return e.Wrap(stderr.New(msg))
}

// WrapWithLog wraps a nested error and logs the wrapped error with
// the provided fields. Convenient at call sites which both surface
// and log a failure.
func (e *Error) WrapWithLog(l *zap.Logger, err error, fields ...zap.Field) *Error {
	wrapped := e.Wrap(err)
	if l != nil {
		l.Error(e.msg, append(fields, zap.Error(err))...)
	}
	return wrapped
}

// Is of some error type? Wrap returns copies, so sentinels
// compare by message, not only by pointer.
func (e *Error) Is(target error) bool {
	o, ok := target.(*Error)
	if !ok {
		return false
	}
	return e == o || e.msg == o.msg
}

// As finds the first error in err's chain that matches target, and if so, sets target to that error value and returns true.
// (a shortcut to standard lib errors.As)
func As(err error, target interface{}) bool {
	return stderr.As(err, target)
}

// Is reports whether any error in err's chain matches target
// (a shortcut to standard lib errors.Is)
func Is(err, target error) bool {
	return stderr.Is(err, target)
}
