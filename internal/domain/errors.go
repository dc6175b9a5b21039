package domain

import "errors"

// Kind classifies a failure so transports can map it to a status code.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindNotFound           Kind = "not_found"
	KindUnauthorized       Kind = "unauthorized"
	KindForbidden          Kind = "forbidden"
	KindConflict           Kind = "conflict"
	KindPreconditionFailed Kind = "precondition_failed"
	KindInvalidStatus      Kind = "invalid_status"
	KindInvalidTransition  Kind = "invalid_transition"
	KindStorage            Kind = "storage"
)

// Error is a domain failure carrying a user-facing message.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil && e.Kind == KindStorage {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches another *Error by kind, so errors.Is(err, domain.ErrNotFound) works
// for any not-found error regardless of its message.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized}
	ErrForbidden          = &Error{Kind: KindForbidden}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrPreconditionFailed = &Error{Kind: KindPreconditionFailed}
	ErrInvalidStatus      = &Error{Kind: KindInvalidStatus}
	ErrInvalidTransition  = &Error{Kind: KindInvalidTransition}
	ErrStorage            = &Error{Kind: KindStorage}
)

func Validation(msg string) *Error         { return &Error{Kind: KindValidation, Message: msg} }
func NotFound(msg string) *Error           { return &Error{Kind: KindNotFound, Message: msg} }
func Unauthorized(msg string) *Error       { return &Error{Kind: KindUnauthorized, Message: msg} }
func Forbidden(msg string) *Error          { return &Error{Kind: KindForbidden, Message: msg} }
func Conflict(msg string) *Error           { return &Error{Kind: KindConflict, Message: msg} }
func PreconditionFailed(msg string) *Error { return &Error{Kind: KindPreconditionFailed, Message: msg} }
func InvalidStatus(msg string) *Error      { return &Error{Kind: KindInvalidStatus, Message: msg} }
func InvalidTransition(msg string) *Error  { return &Error{Kind: KindInvalidTransition, Message: msg} }

// Storage wraps an unexpected persistence failure.
func Storage(op string, cause error) *Error {
	return &Error{Kind: KindStorage, Message: op, Cause: cause}
}

// KindOf returns the kind of err, or KindStorage for anything that is not a
// domain error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}
