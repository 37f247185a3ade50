// Package corerr defines the closed set of error kinds the core surfaces to
// external collaborators (spec §6/§7), as a tagged sum type instead of the
// source's mixed dynamic error shapes (spec §9: "Mixed dynamic schemas →
// tagged sum types").
package corerr

import (
	"errors"
	"fmt"
)

// Kind is the closed set of error kinds the core ever returns across a
// component boundary.
type Kind string

const (
	KindValidation          Kind = "ValidationError"
	KindNotFound            Kind = "NotFound"
	KindConflict            Kind = "Conflict"
	KindCycleDetected       Kind = "CycleDetected"
	KindScaffoldingEpic     Kind = "ScaffoldingEpicRejected"
	KindLockTimeout         Kind = "LockTimeout"
	KindDeadlock            Kind = "Deadlock"
	KindPathViolation       Kind = "PathViolation"
	KindOracleUnavailable   Kind = "OracleUnavailable"
	KindOracleMalformed     Kind = "OracleMalformed"
	KindTransportFailure    Kind = "TransportFailure"
	KindCorrupt             Kind = "Corrupt"
	KindCancelled           Kind = "Cancelled"
	KindInternal            Kind = "Internal"
)

// retryable records which kinds spec §7 allows a single-level jittered
// retry for. CycleDetected, ScaffoldingEpicRejected, ValidationError, and
// PathViolation are never retried; Cancelled is surfaced immediately.
var retryable = map[Kind]bool{
	KindTransportFailure:  true,
	KindOracleUnavailable: true,
}

// Error is the core's Result sum type's error arm: Err(kind, message,
// recoverable, details). It implements error and Unwrap so callers can use
// errors.Is/errors.As against the wrapped cause.
type Error struct {
	Kind        Kind
	Message     string
	Recoverable bool
	Details     map[string]any
	Cause       error
}

// New constructs an Error. Recoverable defaults to true for everything
// except Internal, matching spec §7's "Internal ... fatal for the
// operation".
func New(kind Kind, message string, cause error) *Error {
	return &Error{
		Kind:        kind,
		Message:     message,
		Recoverable: kind != KindInternal,
		Cause:       cause,
	}
}

// WithDetails attaches structured context and returns the receiver for chaining.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is allows errors.Is(err, corerr.New(kind, "", nil)) style kind checks;
// use KindOf to extract the bare Kind instead.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// Retryable reports whether spec §7 permits a single-level jittered retry
// for this error's kind.
func (e *Error) Retryable() bool {
	return retryable[e.Kind]
}

// KindOf extracts the Kind from err if it is (or wraps) a *Error, and the
// zero Kind otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Validation builds a *Error of kind ValidationError.
func Validation(message string, cause error) *Error { return New(KindValidation, message, cause) }

// NotFound builds a *Error of kind NotFound.
func NotFound(message string) *Error { return New(KindNotFound, message, nil) }

// Conflict builds a *Error of kind Conflict.
func Conflict(message string) *Error { return New(KindConflict, message, nil) }

// CycleDetected builds a *Error of kind CycleDetected.
func CycleDetected(message string) *Error { return New(KindCycleDetected, message, nil) }

// ScaffoldingEpicRejected builds a *Error of kind ScaffoldingEpicRejected.
func ScaffoldingEpicRejected(message string) *Error {
	return New(KindScaffoldingEpic, message, nil)
}

// LockTimeout builds a *Error of kind LockTimeout.
func LockTimeout(message string) *Error { return New(KindLockTimeout, message, nil) }

// Deadlock builds a *Error of kind Deadlock.
func Deadlock(message string) *Error { return New(KindDeadlock, message, nil) }

// PathViolation builds a *Error of kind PathViolation.
func PathViolation(message string) *Error { return New(KindPathViolation, message, nil) }

// OracleUnavailable builds a *Error of kind OracleUnavailable.
func OracleUnavailable(message string, cause error) *Error {
	return New(KindOracleUnavailable, message, cause)
}

// OracleMalformed builds a *Error of kind OracleMalformed.
func OracleMalformed(message string) *Error { return New(KindOracleMalformed, message, nil) }

// TransportFailure builds a *Error of kind TransportFailure.
func TransportFailure(message string, cause error) *Error {
	return New(KindTransportFailure, message, cause)
}

// Corrupt builds a *Error of kind Corrupt.
func Corrupt(message string, cause error) *Error { return New(KindCorrupt, message, cause) }

// Cancelled builds a *Error of kind Cancelled.
func Cancelled(message string) *Error {
	e := New(KindCancelled, message, nil)
	e.Recoverable = false
	return e
}

// Internal builds a *Error of kind Internal.
func Internal(message string, cause error) *Error { return New(KindInternal, message, cause) }
