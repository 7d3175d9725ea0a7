package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name:     "error without details",
			err:      NewDomainError("AM-TEST-1000", "test message"),
			expected: "[AM-TEST-1000] test message",
		},
		{
			name:     "error with details",
			err:      NewDomainError("AM-TEST-1001", "test message").WithDetails("extra info"),
			expected: "[AM-TEST-1001] test message: extra info",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDomainError_Is(t *testing.T) {
	err1 := NewDomainError("AM-TEST-1000", "message 1")
	err2 := NewDomainError("AM-TEST-1000", "message 2") // Same code, different message
	err3 := NewDomainError("AM-TEST-1001", "message 1")

	if !errors.Is(err1, err2) {
		t.Error("errors.Is should return true for same error code")
	}
	if errors.Is(err1, err3) {
		t.Error("errors.Is should return false for different error code")
	}
	if errors.Is(err1, fmt.Errorf("some error")) {
		t.Error("errors.Is should return false for non-DomainError")
	}

	// Details do not affect identity
	if !errors.Is(ErrRequestCompleted.WithDetails("x"), ErrRequestCompleted) {
		t.Error("errors.Is should ignore details")
	}
}

func TestDomainError_WithCause(t *testing.T) {
	original := NewDomainError("AM-TEST-1000", "original message")
	cause := fmt.Errorf("root cause")
	withCause := original.WithCause(cause)

	if original.Cause != nil {
		t.Error("WithCause should not modify original error")
	}
	if errors.Unwrap(withCause) != cause {
		t.Errorf("Unwrap() = %v, want %v", errors.Unwrap(withCause), cause)
	}
	if withCause.Code != original.Code {
		t.Errorf("Code = %q, want %q", withCause.Code, original.Code)
	}
}

func TestIsDomainError(t *testing.T) {
	if !IsDomainError(ErrSessionNotFound, "AM-SESS-4040") {
		t.Error("IsDomainError should return true for matching code")
	}
	if IsDomainError(ErrSessionNotFound, "AM-SESS-9999") {
		t.Error("IsDomainError should return false for non-matching code")
	}
	if !IsDomainError(ErrSessionNotFound, "") {
		t.Error("empty code should match any DomainError")
	}
	if IsDomainError(fmt.Errorf("regular error"), "") {
		t.Error("IsDomainError should return false for non-DomainError")
	}

	wrapped := fmt.Errorf("wrapped: %w", ErrRequestClosed)
	if !IsDomainError(wrapped, "AM-STATE-4091") {
		t.Error("IsDomainError should work with wrapped errors")
	}
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"domain error", ErrInvalidArgument, "AM-ARG-1001"},
		{"wrapped domain error", fmt.Errorf("wrapped: %w", ErrRequestCompleted), "AM-STATE-4090"},
		{"regular error", fmt.Errorf("regular error"), ""},
		{"nil error", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetErrorCode(tt.err); got != tt.expected {
				t.Errorf("GetErrorCode() = %q, want %q", got, tt.expected)
			}
		})
	}
}
