// Package domainerrors provides coded errors for the domain layer.
//
// Services construct these directly (bad input, authorization, lifecycle
// violations) or translate sentinel errors from infrastructure into them.
// Transport layers map codes to wire statuses; they never inspect error
// strings. Compliance failures additionally carry the numeric rule code so
// callers can branch on the specific rule that rejected an operation.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	// CodeUnauthorized: the caller's role is insufficient for the mutation.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden: the caller is authenticated but the action is denied.
	CodeForbidden Code = "forbidden"
	// CodeValidation: malformed input (mismatched lengths, zero amounts,
	// out-of-range index, already-initialized state supplied as input).
	CodeValidation Code = "validation"
	// CodeBadRequest: transport-level input that cannot be parsed into a
	// domain request.
	CodeBadRequest Code = "bad_request"
	// CodeInvalidInput: a value object failed its parsing invariant.
	CodeInvalidInput Code = "invalid_input"
	// CodeCompliance: a named, numerically coded policy rule failed.
	CodeCompliance Code = "compliance"
	// CodeInvalidState: operation invalid in the current lifecycle state
	// (cap already set, investor already locked, double initialization).
	CodeInvalidState Code = "invalid_state"
	// CodeNotFound: the referenced entity does not exist.
	CodeNotFound Code = "not_found"
	// CodeConflict: the mutation conflicts with existing state.
	CodeConflict Code = "conflict"
	// CodeInvariantViolation: an aggregate invariant would be broken.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeInternal: unexpected infrastructure failure.
	CodeInternal Code = "internal"
)

// Error is the concrete coded error. Use New / Wrap to construct.
type Error struct {
	code Code
	msg  string
	// ruleCode is the compliance rule code for CodeCompliance errors;
	// zero means "Valid" and is never carried by an error.
	ruleCode int
	wrapped  error
}

func (e *Error) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.wrapped)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.wrapped }

// Code returns the error's classification code.
func (e *Error) Code() Code { return e.code }

// Message returns the human-readable message without wrapped causes.
func (e *Error) Message() string { return e.msg }

// New constructs a coded error.
func New(code Code, msg string) error {
	return &Error{code: code, msg: msg}
}

// Newf constructs a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error, preserving the
// cause for errors.Is / errors.As chains.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{code: code, msg: msg, wrapped: err}
}

// NewCompliance constructs a compliance error carrying the numeric rule
// code alongside the rule's message.
func NewCompliance(ruleCode int, msg string) error {
	return &Error{code: CodeCompliance, msg: msg, ruleCode: ruleCode}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.code == code {
			return true
		}
		err = de.wrapped
		if err == nil {
			return false
		}
	}
	return false
}

// CodeOf returns the outermost code in the chain, or CodeInternal when the
// error carries no code.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.code
	}
	return CodeInternal
}

// RuleCode extracts the compliance rule code from the chain. The boolean
// is false when no compliance error is present.
func RuleCode(err error) (int, bool) {
	var de *Error
	for errors.As(err, &de) {
		if de.code == CodeCompliance {
			return de.ruleCode, true
		}
		err = de.wrapped
		if err == nil {
			break
		}
	}
	return 0, false
}

// Is delegates to errors.Is; kept so callers can stay on one import.
func Is(err, target error) bool { return errors.Is(err, target) }
