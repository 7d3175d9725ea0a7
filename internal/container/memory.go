package container

import (
	"sort"
	"sync"

	"github.com/yndnr/attrmesh/internal/core/domain"
)

// SessionFactory creates a session when a request demands one.
type SessionFactory func() (Session, error)

// MemoryRequest is an in-process Request backed by a plain map.
//
// MemoryRequest is safe for concurrent use so a container may Bind a session
// from another goroutine while the accessor is running.
type MemoryRequest struct {
	mu      sync.Mutex
	attrs   map[string]any
	session Session
	factory SessionFactory
	closed  bool
	lookups []bool
	creates int
}

// MemoryOption configures a MemoryRequest.
type MemoryOption func(*MemoryRequest)

// WithSession binds an existing session to the request.
func WithSession(s Session) MemoryOption {
	return func(r *MemoryRequest) {
		r.session = s
	}
}

// WithSessionFactory overrides how a new session is created.
func WithSessionFactory(f SessionFactory) MemoryOption {
	return func(r *MemoryRequest) {
		r.factory = f
	}
}

// NewMemoryRequest creates a MemoryRequest. By default missing sessions are
// created with domain.NewSession and the default inactivity interval.
func NewMemoryRequest(opts ...MemoryOption) *MemoryRequest {
	r := &MemoryRequest{
		attrs:   make(map[string]any),
		factory: newDefaultSession,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func newDefaultSession() (Session, error) {
	s, err := domain.NewSession(domain.DefaultMaxInactiveInterval)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Attribute implements Request.
func (r *MemoryRequest) Attribute(name string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.attrs[name]
	return v, ok
}

// SetAttribute implements Request.
func (r *MemoryRequest) SetAttribute(name string, value any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return domain.ErrRequestClosed
	}
	if value == nil {
		delete(r.attrs, name)
		return nil
	}
	r.attrs[name] = value
	return nil
}

// RemoveAttribute implements Request.
func (r *MemoryRequest) RemoveAttribute(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.attrs, name)
}

// AttributeNames implements Request.
func (r *MemoryRequest) AttributeNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.attrs))
	for k := range r.attrs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Session implements Request. A closed request still reports an existing
// session but refuses to create one.
func (r *MemoryRequest) Session(create bool) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lookups = append(r.lookups, create)
	if r.session != nil && !r.session.Valid() {
		r.session = nil
	}
	if r.session != nil || !create {
		return r.session, nil
	}
	if r.closed {
		return nil, domain.ErrRequestClosed.WithDetails("cannot create session")
	}

	s, err := r.factory()
	if err != nil {
		return nil, err
	}
	r.session = s
	r.creates++
	return s, nil
}

// Bind attaches a session to the request, replacing any previous one.
func (r *MemoryRequest) Bind(s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session = s
}

// Close marks the request inactive. Further writes and session creation fail.
func (r *MemoryRequest) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

// Closed reports whether Close was called.
func (r *MemoryRequest) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// SessionLookups returns the create flag of every Session call, in order.
func (r *MemoryRequest) SessionLookups() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]bool, len(r.lookups))
	copy(out, r.lookups)
	return out
}

// SessionsCreated returns how many sessions the request created.
func (r *MemoryRequest) SessionsCreated() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.creates
}

var _ Request = (*MemoryRequest)(nil)
