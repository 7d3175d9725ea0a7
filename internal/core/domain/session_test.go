package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewSession(t *testing.T) {
	s, err := NewSession(time.Minute)
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}

	if !strings.HasPrefix(s.ID(), SessionIDPrefix) {
		t.Errorf("ID = %q, want prefix %q", s.ID(), SessionIDPrefix)
	}
	if !IsValidSessionID(s.ID()) {
		t.Errorf("IsValidSessionID(%q) = false", s.ID())
	}
	if !s.Valid() {
		t.Error("new session should be valid")
	}
	if s.MaxInactiveInterval() != time.Minute {
		t.Errorf("MaxInactiveInterval = %v, want 1m", s.MaxInactiveInterval())
	}
}

func TestIsValidSessionID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"sess-01hqz3v8k6a2b4c5d6e7f8g9h0", true},
		{"SESS-01HQZ3V8K6A2B4C5D6E7F8G9H0", true},
		{"tmss-01hqz3v8k6a2b4c5d6e7f8g9h0", false},
		{"sess-short", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsValidSessionID(tt.id); got != tt.want {
			t.Errorf("IsValidSessionID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestSession_Partitions(t *testing.T) {
	s, _ := NewSession(0)

	if err := s.SetAttribute("k", "local", PartitionPortlet); err != nil {
		t.Fatal(err)
	}
	if err := s.SetAttribute("k", "global", PartitionApplication); err != nil {
		t.Fatal(err)
	}

	if v, _ := s.Attribute("k", PartitionPortlet); v != "local" {
		t.Errorf("portlet k = %v, want local", v)
	}
	if v, _ := s.Attribute("k", PartitionApplication); v != "global" {
		t.Errorf("application k = %v, want global", v)
	}

	s.RemoveAttribute("k", PartitionPortlet)
	if _, ok := s.Attribute("k", PartitionPortlet); ok {
		t.Error("portlet k should be removed")
	}
	if _, ok := s.Attribute("k", PartitionApplication); !ok {
		t.Error("application k should survive portlet removal")
	}
}

func TestSession_NilValueRemoves(t *testing.T) {
	s, _ := NewSession(0)
	_ = s.SetAttribute("k", 1, PartitionPortlet)
	_ = s.SetAttribute("k", nil, PartitionPortlet)

	if _, ok := s.Attribute("k", PartitionPortlet); ok {
		t.Error("nil value should remove the attribute")
	}
}

func TestSession_AttributeNamesSorted(t *testing.T) {
	s, _ := NewSession(0)
	for _, n := range []string{"b", "c", "a"} {
		_ = s.SetAttribute(n, n, PartitionApplication)
	}

	got := strings.Join(s.AttributeNames(PartitionApplication), ",")
	if got != "a,b,c" {
		t.Errorf("AttributeNames = %s, want a,b,c", got)
	}
	if len(s.AttributeNames(PartitionPortlet)) != 0 {
		t.Error("portlet partition should be empty")
	}
}

func TestSession_Invalidate(t *testing.T) {
	s, _ := NewSession(0)
	_ = s.SetAttribute("k", "v", PartitionPortlet)

	calls := 0
	s.RegisterDestructionCallback("k", PartitionPortlet, func() { calls++ })

	s.Invalidate()
	s.Invalidate()

	if calls != 1 {
		t.Errorf("destruction callback ran %d times, want 1", calls)
	}
	if s.Valid() {
		t.Error("session should be invalid")
	}
	if _, ok := s.Attribute("k", PartitionPortlet); ok {
		t.Error("attributes should be discarded on invalidate")
	}
	if err := s.SetAttribute("k", "v", PartitionPortlet); !errors.Is(err, ErrSessionInvalidated) {
		t.Errorf("SetAttribute after invalidate error = %v, want ErrSessionInvalidated", err)
	}
}

func TestSession_RemoveRunsCallback(t *testing.T) {
	s, _ := NewSession(0)
	_ = s.SetAttribute("k", "v", PartitionApplication)

	calls := 0
	s.RegisterDestructionCallback("k", PartitionApplication, func() { calls++ })
	s.RegisterDestructionCallback("k", PartitionApplication, func() { calls += 10 })

	s.RemoveAttribute("k", PartitionApplication)
	s.RemoveAttribute("k", PartitionApplication)

	if calls != 10 {
		t.Errorf("calls = %d, want 10 (replacement callback, once)", calls)
	}
}

func TestSession_Expiry(t *testing.T) {
	s, _ := NewSession(time.Minute)
	now := s.LastAccessed()

	if s.IsExpired(now.Add(30 * time.Second)) {
		t.Error("session should not expire before its interval")
	}
	if !s.IsExpired(now.Add(2 * time.Minute)) {
		t.Error("session should expire after its interval")
	}

	s.Touch(now.Add(90 * time.Second))
	if s.IsExpired(now.Add(2 * time.Minute)) {
		t.Error("touch should extend the idle window")
	}

	forever, _ := NewSession(0)
	if forever.IsExpired(now.Add(24 * time.Hour)) {
		t.Error("zero interval should never expire")
	}
}

func TestSession_RecordRoundTrip(t *testing.T) {
	s, _ := NewSession(time.Hour)
	_ = s.SetAttribute("theme", "dark", PartitionPortlet)
	_ = s.SetAttribute("user", "alice", PartitionApplication)

	restored, err := RestoreSession(s.Record())
	if err != nil {
		t.Fatalf("RestoreSession() error = %v", err)
	}

	if restored.ID() != s.ID() {
		t.Errorf("ID = %q, want %q", restored.ID(), s.ID())
	}
	if v, _ := restored.Attribute("theme", PartitionPortlet); v != "dark" {
		t.Errorf("theme = %v, want dark", v)
	}
	if v, _ := restored.Attribute("user", PartitionApplication); v != "alice" {
		t.Errorf("user = %v, want alice", v)
	}
	if restored.MaxInactiveInterval() != time.Hour {
		t.Errorf("MaxInactiveInterval = %v, want 1h", restored.MaxInactiveInterval())
	}
	if restored.Dirty() {
		t.Error("restored session should start clean")
	}

	if _, err := RestoreSession(&SessionRecord{ID: "bogus"}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("RestoreSession(bogus) error = %v, want ErrInvalidArgument", err)
	}
}
