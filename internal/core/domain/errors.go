// Package domain defines the core domain models for attrmesh.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// DomainError represents a domain error with a structured error code.
// Codes have the form AM-{CATEGORY}-{NNNN}; the last four digits mirror the
// closest HTTP status where one applies.
type DomainError struct {
	Code    string // Error code (e.g., "AM-SESS-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support. Two DomainErrors match when their codes match.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError reports whether err is a DomainError with the given code.
// An empty code matches any DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrInvalidArgument indicates an invalid argument, such as a nil request handle.
	ErrInvalidArgument = NewDomainError("AM-ARG-1001", "invalid argument")

	// ErrMissingArgument indicates a required argument is missing.
	ErrMissingArgument = NewDomainError("AM-ARG-1002", "missing required argument")

	// ErrUnknownScope indicates an attribute scope name could not be parsed.
	ErrUnknownScope = NewDomainError("AM-ARG-1003", "unknown attribute scope")
)

// ============================================================================
// Lifecycle State Errors (STATE)
// ============================================================================

var (
	// ErrRequestCompleted indicates request-scoped work was attempted after the
	// accessor was marked completed.
	ErrRequestCompleted = NewDomainError("AM-STATE-4090", "request already completed")

	// ErrRequestClosed indicates the container request is no longer active.
	ErrRequestClosed = NewDomainError("AM-STATE-4091", "request is not active")

	// ErrSessionInvalidated indicates the session was invalidated.
	ErrSessionInvalidated = NewDomainError("AM-STATE-4092", "session invalidated")
)

// ============================================================================
// Session Errors (SESS)
// ============================================================================

var (
	// ErrSessionNotFound indicates the requested session was not found.
	ErrSessionNotFound = NewDomainError("AM-SESS-4040", "session not found")

	// ErrSessionExpired indicates the session has expired.
	ErrSessionExpired = NewDomainError("AM-SESS-4041", "session expired")

	// ErrSessionConflict indicates the session ID already exists.
	ErrSessionConflict = NewDomainError("AM-SESS-4090", "session id conflict")
)

// ============================================================================
// Attribute Errors (ATTR)
// ============================================================================

var (
	// ErrAttributeNotFound indicates the attribute is absent in the requested scope.
	ErrAttributeNotFound = NewDomainError("AM-ATTR-4040", "attribute not found")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrInternalServer indicates an internal server error.
	ErrInternalServer = NewDomainError("AM-SYS-5000", "internal server error")

	// ErrStorageError indicates a storage layer error.
	ErrStorageError = NewDomainError("AM-SYS-5001", "storage error")

	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = NewDomainError("AM-SYS-4000", "bad request")

	// ErrRateLimited indicates too many requests.
	ErrRateLimited = NewDomainError("AM-SYS-4290", "too many requests")
)

// IsInvalidState reports whether err is one of the lifecycle state errors.
func IsInvalidState(err error) bool {
	return strings.HasPrefix(GetErrorCode(err), "AM-STATE-")
}
