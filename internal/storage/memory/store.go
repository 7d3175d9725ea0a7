package memory

import (
	"context"
	"time"

	"github.com/yndnr/attrmesh/internal/core/domain"
	"github.com/yndnr/attrmesh/internal/core/service"
	"github.com/yndnr/attrmesh/pkg/cmap"
)

// Store provides in-memory session storage.
type Store struct {
	sessions *cmap.Map[string, *domain.Session]
}

// Option configures the Store.
type Option func(*storeOptions)

type storeOptions struct {
	shards int
}

// WithShards sets the number of map shards. Must be a power of two.
func WithShards(n int) Option {
	return func(o *storeOptions) {
		o.shards = n
	}
}

// New creates a new in-memory store.
func New(opts ...Option) *Store {
	o := storeOptions{shards: cmap.DefaultShardCount}
	for _, opt := range opts {
		opt(&o)
	}

	return &Store{
		sessions: cmap.NewWithShards[string, *domain.Session](o.shards),
	}
}

// Create stores a new session.
func (s *Store) Create(_ context.Context, session *domain.Session) error {
	if session == nil {
		return domain.ErrMissingArgument.WithDetails("session is nil")
	}
	if !s.sessions.SetIfAbsent(session.ID(), session) {
		return domain.ErrSessionConflict.WithDetails(session.ID())
	}
	return nil
}

// Get retrieves a session by ID. The returned value is the stored instance.
func (s *Store) Get(_ context.Context, id string) (*domain.Session, error) {
	session, ok := s.sessions.Get(id)
	if !ok {
		return nil, domain.ErrSessionNotFound.WithDetails(id)
	}
	return session, nil
}

// Save replaces the stored instance for an existing, still valid session.
func (s *Store) Save(_ context.Context, session *domain.Session) error {
	if !session.Valid() || !s.sessions.SetIfPresent(session.ID(), session) {
		return domain.ErrSessionNotFound.WithDetails(session.ID())
	}
	return nil
}

// Delete removes a session by ID.
func (s *Store) Delete(_ context.Context, id string) error {
	if _, ok := s.sessions.Pop(id); !ok {
		return domain.ErrSessionNotFound.WithDetails(id)
	}
	return nil
}

// DeleteExpired removes and invalidates sessions idle past their interval.
func (s *Store) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	var expired []*domain.Session
	n := s.sessions.DeleteIf(func(_ string, session *domain.Session) bool {
		if session.IsExpired(now) || !session.Valid() {
			expired = append(expired, session)
			return true
		}
		return false
	})

	// Callbacks run outside shard locks.
	for _, session := range expired {
		session.Invalidate()
	}
	return n, nil
}

// Count returns the number of stored sessions.
func (s *Store) Count(_ context.Context) (int, error) {
	return s.sessions.Count(), nil
}

// Range calls fn for each stored session until fn returns false.
func (s *Store) Range(fn func(*domain.Session) bool) {
	s.sessions.Range(func(_ string, session *domain.Session) bool {
		return fn(session)
	})
}

var _ service.SessionRepository = (*Store)(nil)
