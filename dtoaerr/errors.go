// Package dtoaerr defines the failure taxonomy for float-digits.
//
// Every error returned by the bignum engine, the converter, or the CLI maps to
// exactly one FailureClass, which determines the exit code and lets tests
// verify failure classification, not just "did it fail."
package dtoaerr

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// FailureClass is a stable failure category.
type FailureClass string

const (
	CapacityOverflow FailureClass = "CAPACITY_OVERFLOW"
	InvalidOperand   FailureClass = "INVALID_OPERAND"
	PrecisionRange   FailureClass = "PRECISION_RANGE"
	InvalidInput     FailureClass = "INVALID_INPUT"
	CLIUsage         FailureClass = "CLI_USAGE"
	InternalIO       FailureClass = "INTERNAL_IO"
	InternalError    FailureClass = "INTERNAL_ERROR"
)

// ExitCode returns the process exit code for this failure class.
func (fc FailureClass) ExitCode() int {
	switch fc {
	case CapacityOverflow, InvalidOperand, InternalIO, InternalError:
		return 10
	default:
		return 2
	}
}

// Error is the structured error type for all float-digits failures.
type Error struct {
	Class   FailureClass
	Op      string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var s string
	if e.Op != "" {
		s = fmt.Sprintf("dtoaerr: %s in %s: %s", e.Class, e.Op, e.Message)
	} else {
		s = fmt.Sprintf("dtoaerr: %s: %s", e.Class, e.Message)
	}
	if e.Cause != nil {
		s += ": " + e.Cause.Error()
	}
	return s
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given class and message.
func New(class FailureClass, op string, message string) *Error {
	return &Error{Class: class, Op: op, Message: message}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(class FailureClass, op string, message string, cause error) *Error {
	return &Error{Class: class, Op: op, Message: message, Cause: cause}
}

// Assertion creates an Error for a violated internal invariant. The cause is
// an assertion failure carrying a stack trace, so errors.HasAssertionFailure
// reports true for the returned error.
func Assertion(class FailureClass, op string, format string, args ...any) *Error {
	return &Error{
		Class:   class,
		Op:      op,
		Message: "invariant violated",
		Cause:   errors.AssertionFailedWithDepthf(1, format, args...),
	}
}

// ClassOf returns the FailureClass of the first *Error in err's chain, or
// InternalError when err carries no classification.
func ClassOf(err error) FailureClass {
	var e *Error
	if errors.As(err, &e) {
		return e.Class
	}
	return InternalError
}
