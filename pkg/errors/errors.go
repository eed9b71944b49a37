package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies failures so callers can decide whether to retry,
// skip the current item, or abort the run.
type ErrorType string

const (
	// ErrorTypeAuthExpired means the session became invalid. Fatal.
	ErrorTypeAuthExpired ErrorType = "auth_expired"
	// ErrorTypeAccessDenied means the account is private and the session
	// does not follow it. Fatal.
	ErrorTypeAccessDenied ErrorType = "access_denied"
	// ErrorTypeRateLimited means the platform signalled throttling.
	// Retried with backoff, then fatal.
	ErrorTypeRateLimited ErrorType = "rate_limited"
	// ErrorTypeWrite means a filesystem write failed. Fatal for the
	// current item only.
	ErrorTypeWrite ErrorType = "write"

	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeTwoFactor   ErrorType = "two_factor_required"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error is a classified error, optionally carrying the HTTP status code
// that produced it and the underlying cause.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Cause   error
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a classified error.
func New(t ErrorType, message string) *Error {
	return &Error{Type: t, Message: message}
}

// Newf creates a classified error with a formatted message.
func Newf(t ErrorType, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a classified error around an underlying cause.
func Wrap(t ErrorType, err error, message string) *Error {
	return &Error{Type: t, Message: message, Cause: err}
}

// TypeOf returns the classification of err, or ErrorTypeUnknown if err
// is not a classified error.
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// Is reports whether err is classified as t.
func Is(err error, t ErrorType) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == t
}

// IsRetryable reports whether an error of the given type is worth
// retrying. Auth and access failures never change on retry.
func IsRetryable(t ErrorType) bool {
	switch t {
	case ErrorTypeRateLimited, ErrorTypeNetwork, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode reports whether an HTTP status code indicates a
// retryable condition.
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // network error, no response
		return true
	case 429:
		return true
	case 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}
