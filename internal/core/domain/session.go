package domain

import (
	"crypto/rand"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/attrmesh/pkg/cmap"
)

const (
	// SessionIDPrefix is the prefix for session IDs.
	SessionIDPrefix = "sess-"

	// DefaultMaxInactiveInterval is applied when a session is created without one.
	DefaultMaxInactiveInterval = 30 * time.Minute
)

// Session is a container-managed session with two attribute partitions.
//
// A Session may be shared by concurrent requests carrying the same cookie,
// so attribute partitions are sharded maps and lifecycle flags are atomic.
type Session struct {
	id          string
	createdAt   int64 // Unix milliseconds
	lastAccess  atomic.Int64
	maxInactive atomic.Int64 // nanoseconds, 0 = never expires

	portlet     *cmap.Map[string, any]
	application *cmap.Map[string, any]

	mu        sync.Mutex
	callbacks []destructionCallback

	invalid atomic.Bool
	dirty   atomic.Bool
}

type destructionCallback struct {
	name      string
	partition Partition
	fn        func()
}

// NewSession creates a new Session with a generated ID.
func NewSession(maxInactive time.Duration) (*Session, error) {
	id, err := GenerateSessionID()
	if err != nil {
		return nil, err
	}
	return newSession(id, time.Now().UnixMilli(), maxInactive), nil
}

func newSession(id string, createdAt int64, maxInactive time.Duration) *Session {
	s := &Session{
		id:          id,
		createdAt:   createdAt,
		portlet:     cmap.New[string, any](),
		application: cmap.New[string, any](),
	}
	s.lastAccess.Store(createdAt)
	s.maxInactive.Store(int64(maxInactive))
	return s
}

// GenerateSessionID generates a new session ID using ULID.
// Format: sess-{ulid_lowercase}, 31 characters total.
func GenerateSessionID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", ErrInternalServer.WithCause(err)
	}
	return SessionIDPrefix + strings.ToLower(id.String()), nil
}

// IsValidSessionID checks if a string is a well-formed session ID.
func IsValidSessionID(id string) bool {
	id = strings.ToLower(id)
	if !strings.HasPrefix(id, SessionIDPrefix) {
		return false
	}
	if len(id) != len(SessionIDPrefix)+ulid.EncodedSize {
		return false
	}
	_, err := ulid.Parse(strings.ToUpper(id[len(SessionIDPrefix):]))
	return err == nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// CreatedAt returns the creation time.
func (s *Session) CreatedAt() time.Time { return time.UnixMilli(s.createdAt) }

// LastAccessed returns the time of the last Touch.
func (s *Session) LastAccessed() time.Time { return time.UnixMilli(s.lastAccess.Load()) }

// MaxInactiveInterval returns the idle timeout. Zero means the session never expires.
func (s *Session) MaxInactiveInterval() time.Duration {
	return time.Duration(s.maxInactive.Load())
}

// SetMaxInactiveInterval changes the idle timeout.
func (s *Session) SetMaxInactiveInterval(d time.Duration) {
	s.maxInactive.Store(int64(d))
	s.dirty.Store(true)
}

// Touch records an access at the given time.
func (s *Session) Touch(now time.Time) {
	s.lastAccess.Store(now.UnixMilli())
	s.dirty.Store(true)
}

// IsExpired reports whether the session has been idle longer than its interval.
func (s *Session) IsExpired(now time.Time) bool {
	d := s.MaxInactiveInterval()
	if d <= 0 {
		return false
	}
	return now.Sub(s.LastAccessed()) > d
}

// Valid reports whether the session has not been invalidated.
func (s *Session) Valid() bool { return !s.invalid.Load() }

// Dirty reports whether the session changed since the last ClearDirty.
func (s *Session) Dirty() bool { return s.dirty.Load() }

// ClearDirty resets the change marker after the session was persisted.
func (s *Session) ClearDirty() { s.dirty.Store(false) }

func (s *Session) partition(p Partition) *cmap.Map[string, any] {
	if p == PartitionApplication {
		return s.application
	}
	return s.portlet
}

// Attribute returns the value stored under name in partition p.
func (s *Session) Attribute(name string, p Partition) (any, bool) {
	if !s.Valid() {
		return nil, false
	}
	return s.partition(p).Get(name)
}

// SetAttribute stores value under name in partition p.
// A nil value removes the attribute.
func (s *Session) SetAttribute(name string, value any, p Partition) error {
	if !s.Valid() {
		return ErrSessionInvalidated.WithDetails(s.id)
	}
	if value == nil {
		s.RemoveAttribute(name, p)
		return nil
	}
	s.partition(p).Set(name, value)
	s.dirty.Store(true)
	return nil
}

// RemoveAttribute deletes name from partition p and runs its destruction callback.
func (s *Session) RemoveAttribute(name string, p Partition) {
	if !s.Valid() {
		return
	}
	if _, ok := s.partition(p).Pop(name); ok {
		s.dirty.Store(true)
	}
	if cb, ok := s.takeCallback(name, p); ok {
		cb()
	}
}

// AttributeNames returns the sorted attribute names in partition p.
func (s *Session) AttributeNames(p Partition) []string {
	if !s.Valid() {
		return nil
	}
	names := s.partition(p).Keys()
	sort.Strings(names)
	return names
}

// RegisterDestructionCallback registers fn to run when name is removed from
// partition p or the session is invalidated. A later registration for the
// same name replaces the earlier one.
func (s *Session) RegisterDestructionCallback(name string, p Partition, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cb := range s.callbacks {
		if cb.name == name && cb.partition == p {
			s.callbacks[i].fn = fn
			return
		}
	}
	s.callbacks = append(s.callbacks, destructionCallback{name: name, partition: p, fn: fn})
}

func (s *Session) takeCallback(name string, p Partition) (func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cb := range s.callbacks {
		if cb.name == name && cb.partition == p {
			s.callbacks = append(s.callbacks[:i], s.callbacks[i+1:]...)
			return cb.fn, true
		}
	}
	return nil, false
}

// Invalidate discards all attributes and runs every destruction callback once.
func (s *Session) Invalidate() {
	if !s.invalid.CompareAndSwap(false, true) {
		return
	}

	s.mu.Lock()
	callbacks := s.callbacks
	s.callbacks = nil
	s.mu.Unlock()

	s.portlet.Clear()
	s.application.Clear()
	s.dirty.Store(true)

	for _, cb := range callbacks {
		cb.fn()
	}
}

// SessionRecord is the serialized form of a Session.
// Destruction callbacks are process-local and are not part of the record.
type SessionRecord struct {
	ID           string         `json:"id"`
	CreatedAt    int64          `json:"created_at"`
	LastAccessed int64          `json:"last_accessed"`
	MaxInactive  int64          `json:"max_inactive_ms"`
	Portlet      map[string]any `json:"portlet,omitempty"`
	Application  map[string]any `json:"application,omitempty"`
}

// Record captures the session state for persistence.
func (s *Session) Record() *SessionRecord {
	return &SessionRecord{
		ID:           s.id,
		CreatedAt:    s.createdAt,
		LastAccessed: s.lastAccess.Load(),
		MaxInactive:  s.MaxInactiveInterval().Milliseconds(),
		Portlet:      s.portlet.Snapshot(),
		Application:  s.application.Snapshot(),
	}
}

// RestoreSession rebuilds a Session from a persisted record.
func RestoreSession(rec *SessionRecord) (*Session, error) {
	if rec == nil || !IsValidSessionID(rec.ID) {
		return nil, ErrInvalidArgument.WithDetails("malformed session record")
	}

	s := newSession(rec.ID, rec.CreatedAt, time.Duration(rec.MaxInactive)*time.Millisecond)
	s.lastAccess.Store(rec.LastAccessed)
	for k, v := range rec.Portlet {
		s.portlet.Set(k, v)
	}
	for k, v := range rec.Application {
		s.application.Set(k, v)
	}
	return s, nil
}
