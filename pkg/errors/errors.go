// Package errors provides the structured rejection type shared by accountd
// services and HTTP handlers.
//
// Every rejection carries a stable Code that clients can switch on, a
// human-readable Message and optional Details. HTTPStatusCode maps the code
// onto the response status.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode string

const (
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeRateLimited  ErrorCode = "RATE_LIMITED"

	// Verification state
	ErrCodeVerificationMissing      ErrorCode = "VERIFICATION_MISSING"
	ErrCodeVerificationNotCompleted ErrorCode = "VERIFICATION_NOT_COMPLETED"
	ErrCodeVerificationExpired      ErrorCode = "VERIFICATION_EXPIRED"
	ErrCodeCodeMismatch             ErrorCode = "CODE_MISMATCH"
	ErrCodeCodeNotFound             ErrorCode = "CODE_NOT_FOUND"
	ErrCodeAlreadyVerified          ErrorCode = "ALREADY_VERIFIED"

	// Credentials
	ErrCodeAccountNotFound ErrorCode = "ACCOUNT_NOT_FOUND"
	ErrCodeWeakPassword    ErrorCode = "WEAK_PASSWORD"

	// Collaborators
	ErrCodeUpstream        ErrorCode = "UPSTREAM_ERROR"
	ErrCodeUpstreamTimeout ErrorCode = "UPSTREAM_TIMEOUT"
)

// Error represents a structured error with code, message, and optional details
type Error struct {
	Code    ErrorCode      // Unique error code
	Message string         // Human-readable error message
	Details map[string]any // Optional additional details
	Err     error          // Wrapped underlying error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// HTTPStatusCode returns the appropriate HTTP status code for this error
func (e *Error) HTTPStatusCode() int {
	return MapErrorCodeToHTTPStatus(e.Code)
}

// New creates a new Error with the given code and message
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with formatted message
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with code and message
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsCode checks if an error has a specific error code
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error
// Returns ErrCodeInternal if the error is not a structured Error
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// MapErrorCodeToHTTPStatus maps error codes to HTTP status codes
func MapErrorCodeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidInput, ErrCodeWeakPassword, ErrCodeVerificationMissing,
		ErrCodeVerificationNotCompleted, ErrCodeVerificationExpired,
		ErrCodeCodeMismatch, ErrCodeAlreadyVerified:
		return http.StatusBadRequest

	case ErrCodeAccountNotFound, ErrCodeCodeNotFound:
		return http.StatusNotFound

	case ErrCodeRateLimited:
		return http.StatusTooManyRequests

	// Upstream failures are reported as 500 so clients see one retryable class.
	case ErrCodeUpstream, ErrCodeUpstreamTimeout, ErrCodeInternal:
		return http.StatusInternalServerError

	default:
		return http.StatusInternalServerError
	}
}

// InvalidInput creates an "invalid input" error
func InvalidInput(field, reason string) *Error {
	return New(ErrCodeInvalidInput, fmt.Sprintf("invalid %s: %s", field, reason)).WithDetail("field", field)
}

// Internal wraps an unexpected error
func Internal(err error, message string) *Error {
	return Wrap(err, ErrCodeInternal, message)
}
