package combinator

import (
	"errors"
	"fmt"
)

// Code categorizes evaluation failures. Codes are stable: callers branch
// on them and the journal records them.
type Code string

const (
	// CodeMalformed indicates an ill-formed definition or persisted tree.
	CodeMalformed Code = "MALFORMED_DEFINITION"

	// CodeTemporal indicates acquisition past a horizon or before a prerequisite time.
	CodeTemporal Code = "TEMPORAL_VIOLATION"

	// CodeReacquisition indicates a node or anytime slot acquired twice.
	CodeReacquisition Code = "REACQUISITION"

	// CodeUnauthorized indicates the caller may not perform the operation.
	CodeUnauthorized Code = "UNAUTHORIZED"

	// CodeUnsetDependency indicates an or-choice was needed before being set.
	CodeUnsetDependency Code = "UNSET_DEPENDENCY"

	// CodeArithmetic indicates integer overflow or a value too large for int64.
	CodeArithmetic Code = "ARITHMETIC"

	// CodeOutOfBounds indicates an index outside an external-input table.
	CodeOutOfBounds Code = "OUT_OF_BOUNDS"

	// CodeInsufficientFunds indicates a withdrawal that cannot be paid.
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"

	// CodeAlreadySet indicates a set-once input was set a second time.
	CodeAlreadySet Code = "ALREADY_SET"
)

// Error is a classified evaluation failure. Every Error aborts the current
// evaluation event.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Details contains additional context.
	Details map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Errorf creates an Error with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// With returns e with an additional detail.
func (e *Error) With(key, value string) *Error {
	if e.Details == nil {
		e.Details = map[string]string{}
	}
	e.Details[key] = value
	return e
}

// CodeOf returns the Code of err, or "" if err is not an *Error.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err is an *Error with the given code.
func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
