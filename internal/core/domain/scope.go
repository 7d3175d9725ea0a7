package domain

import "strings"

// Scope selects which store an attribute operation targets.
type Scope uint8

const (
	// ScopeRequest stores attributes on the request for its lifetime only.
	ScopeRequest Scope = iota + 1

	// ScopeSession stores attributes in the session's portlet partition.
	ScopeSession

	// ScopeGlobalSession stores attributes in the session's application partition.
	ScopeGlobalSession
)

// String returns the wire name of the scope.
func (s Scope) String() string {
	switch s {
	case ScopeRequest:
		return "request"
	case ScopeSession:
		return "session"
	case ScopeGlobalSession:
		return "global"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the declared scopes.
func (s Scope) Valid() bool {
	return s >= ScopeRequest && s <= ScopeGlobalSession
}

// IsSession reports whether the scope is backed by the session.
func (s Scope) IsSession() bool {
	return s == ScopeSession || s == ScopeGlobalSession
}

// Partition returns the session partition backing a session scope.
// Request scope maps to PartitionPortlet; callers check IsSession first.
func (s Scope) Partition() Partition {
	if s == ScopeGlobalSession {
		return PartitionApplication
	}
	return PartitionPortlet
}

// ParseScope converts a wire name into a Scope.
// It accepts "global-session" and "application" as aliases of "global".
func ParseScope(name string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "request":
		return ScopeRequest, nil
	case "session", "portlet":
		return ScopeSession, nil
	case "global", "global-session", "global_session", "application":
		return ScopeGlobalSession, nil
	default:
		return 0, ErrUnknownScope.WithDetails(name)
	}
}

// Partition is a session-internal namespace.
type Partition uint8

const (
	// PartitionPortlet is private to the component that owns the session view.
	PartitionPortlet Partition = iota + 1

	// PartitionApplication is shared by every component in the session.
	PartitionApplication
)

// String returns the partition name.
func (p Partition) String() string {
	switch p {
	case PartitionPortlet:
		return "portlet"
	case PartitionApplication:
		return "application"
	default:
		return "unknown"
	}
}
