// Package errors defines the structured error kinds returned by ReadUp services.
//
// Services never return presentation strings for users to read; they return an
// *Error carrying a Code. The API layer maps the Code to an HTTP status and the
// client decides how to phrase it.
//
//	if errors.Is(err, errors.ErrLimitExceeded) {
//	    // the user already has MaxFavorites favorites
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	// CodeUnauthorized is AuthenticationRequired: no authenticated user.
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeTokenExpired  Code = "TOKEN_EXPIRED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeInvalidState  Code = "INVALID_STATE"
	CodeLimitExceeded Code = "LIMIT_EXCEEDED"
	CodeNotFound      Code = "NOT_FOUND"
	CodeAlreadyExists Code = "ALREADY_EXISTS"
	CodeRateLimited   Code = "RATE_LIMITED"
	// CodeInternal is DatabaseError and any other backend failure.
	CodeInternal Code = "INTERNAL_ERROR"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeUnauthorized, CodeTokenExpired:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeValidation:
		return http.StatusBadRequest
	case CodeInvalidState, CodeLimitExceeded, CodeAlreadyExists:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy of the error carrying details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: details, cause: e.cause}
}

// Sentinel errors for use with errors.Is().
var (
	ErrUnauthorized  = &Error{Code: CodeUnauthorized, Message: "authentication required"}
	ErrTokenExpired  = &Error{Code: CodeTokenExpired, Message: "token expired"}
	ErrForbidden     = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrValidation    = &Error{Code: CodeValidation, Message: "validation error"}
	ErrInvalidState  = &Error{Code: CodeInvalidState, Message: "invalid state"}
	ErrLimitExceeded = &Error{Code: CodeLimitExceeded, Message: "limit exceeded"}
	ErrNotFound      = &Error{Code: CodeNotFound, Message: "not found"}
	ErrAlreadyExists = &Error{Code: CodeAlreadyExists, Message: "already exists"}
	ErrRateLimited   = &Error{Code: CodeRateLimited, Message: "too many requests"}
	ErrInternal      = &Error{Code: CodeInternal, Message: "internal error"}
)

// Unauthorized creates an AuthenticationRequired error.
func Unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

// Forbidden creates a forbidden error.
func Forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// InvalidState creates an error for an operation the current state does not allow.
func InvalidState(msg string) *Error {
	return &Error{Code: CodeInvalidState, Message: msg}
}

// LimitExceeded creates an error for a per-user cap being reached.
func LimitExceeded(msg string, limit int) *Error {
	return &Error{Code: CodeLimitExceeded, Message: msg, Details: map[string]int{"limit": limit}}
}

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// AlreadyExists creates an already exists error.
func AlreadyExists(msg string) *Error {
	return &Error{Code: CodeAlreadyExists, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Database wraps a storage backend failure.
func Database(err error) *Error {
	return &Error{Code: CodeInternal, Message: "database error", cause: err}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// CodeOf returns the Code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
