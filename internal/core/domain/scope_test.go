package domain

import (
	"errors"
	"testing"
)

func TestParseScope(t *testing.T) {
	tests := []struct {
		input string
		want  Scope
	}{
		{"request", ScopeRequest},
		{"session", ScopeSession},
		{"Portlet", ScopeSession},
		{"global", ScopeGlobalSession},
		{"global-session", ScopeGlobalSession},
		{" application ", ScopeGlobalSession},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseScope(tt.input)
			if err != nil {
				t.Fatalf("ParseScope(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseScope(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}

	if _, err := ParseScope("cookie"); !errors.Is(err, ErrUnknownScope) {
		t.Errorf("ParseScope(cookie) error = %v, want ErrUnknownScope", err)
	}
}

func TestScopePartition(t *testing.T) {
	if ScopeSession.Partition() != PartitionPortlet {
		t.Error("session scope should map to the portlet partition")
	}
	if ScopeGlobalSession.Partition() != PartitionApplication {
		t.Error("global scope should map to the application partition")
	}
	if ScopeRequest.IsSession() {
		t.Error("request scope is not session-backed")
	}
	if Scope(0).Valid() || Scope(9).Valid() {
		t.Error("undeclared scopes should be invalid")
	}
	if ScopeGlobalSession.String() != "global" {
		t.Errorf("String() = %q, want global", ScopeGlobalSession.String())
	}
}
