package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a domain error for transport mapping and retry decisions.
type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindNotFound    ErrorKind = "not_found"
	KindConflict    ErrorKind = "conflict"
	KindForbidden   ErrorKind = "forbidden"
	KindUnavailable ErrorKind = "unavailable"
)

// Error is the typed error returned by domain and application code.
type Error struct {
	Kind      ErrorKind
	Code      string
	Message   string
	Retryable bool
	Err       error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a domain error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithMessage returns a copy of the error carrying a more specific message.
func (e *Error) WithMessage(msg string) *Error {
	cp := *e
	cp.Message = msg
	return &cp
}

// NewError creates a coded domain error. Packages use it to declare their sentinels.
func NewError(kind ErrorKind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// NewValidationError creates an error for malformed input.
func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Code: "VALIDATION_FAILED", Message: message}
}

// NewNotFoundError creates an error for a missing entity.
func NewNotFoundError(entity, id string) *Error {
	return &Error{Kind: KindNotFound, Code: "NOT_FOUND", Message: fmt.Sprintf("%s %s not found", entity, id)}
}

// NewConflictError creates an error for a failed precondition on current state.
func NewConflictError(message string) *Error {
	return &Error{Kind: KindConflict, Code: "CONFLICT", Message: message}
}

// NewForbiddenError creates an error for an actor that may not perform the operation.
func NewForbiddenError(message string) *Error {
	return &Error{Kind: KindForbidden, Code: "FORBIDDEN", Message: message}
}

// NewInvalidStateError creates a conflict error for an illegal state transition.
func NewInvalidStateError(from, to string) *Error {
	return &Error{
		Kind:    KindConflict,
		Code:    "INVALID_STATE_TRANSITION",
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
	}
}

// ErrStoreUnavailable is the sentinel for transient infrastructure failures.
var ErrStoreUnavailable = NewError(KindUnavailable, "STORE_UNAVAILABLE", "the booking store is temporarily unavailable")

// NewUnavailableError wraps an infrastructure failure. Retryable must only be true when
// nothing was written before the failure.
func NewUnavailableError(err error, retryable bool) *Error {
	return &Error{
		Kind:      KindUnavailable,
		Code:      ErrStoreUnavailable.Code,
		Message:   ErrStoreUnavailable.Message,
		Retryable: retryable,
		Err:       err,
	}
}

// KindOf returns the kind of err, or "" when err is not a domain error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsRetryable reports whether err is a transient failure that is safe to retry.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindUnavailable && e.Retryable
	}
	return false
}
