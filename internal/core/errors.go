package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeAlreadyMember    = "already_member"
	ErrCodeInternal         = "internal"
)

// Error wraps a code and human-readable message. Services return these for
// every policy or lookup failure; transports map codes to HTTP statuses or
// error_message events.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Unauthorized builds an unauthorized error.
func Unauthorized(msg string) *Error {
	return &Error{Code: ErrCodeUnauthorized, Message: msg}
}

// Forbidden builds a forbidden error.
func Forbidden(msg string) *Error {
	return &Error{Code: ErrCodeForbidden, Message: msg}
}

// NotFound builds a not_found error.
func NotFound(msg string) *Error {
	return &Error{Code: ErrCodeNotFound, Message: msg}
}

// Invalid builds a validation_failed error.
func Invalid(msg string) *Error {
	return &Error{Code: ErrCodeValidationFailed, Message: msg}
}

// AlreadyMember builds an already_member error.
func AlreadyMember(msg string) *Error {
	return &Error{Code: ErrCodeAlreadyMember, Message: msg}
}

// CodeOf extracts the domain error code, or "internal" for plain errors.
func CodeOf(err error) string {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ErrCodeInternal
}
