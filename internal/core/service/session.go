package service

import (
	"context"
	"errors"
	"time"

	"github.com/yndnr/attrmesh/internal/core/domain"
	"github.com/yndnr/attrmesh/internal/telemetry/logger"
	"github.com/yndnr/attrmesh/internal/telemetry/metric"
)

// SessionRepository defines the storage interface for sessions.
//
// Get, Save and Delete return an error matching domain.ErrSessionNotFound
// when the session does not exist.
type SessionRepository interface {
	// Create stores a new session. It fails with domain.ErrSessionConflict
	// if the ID is taken.
	Create(ctx context.Context, session *domain.Session) error

	// Get retrieves a session by ID.
	Get(ctx context.Context, id string) (*domain.Session, error)

	// Save writes the current state of an existing session.
	Save(ctx context.Context, session *domain.Session) error

	// Delete removes a session by ID.
	Delete(ctx context.Context, id string) error

	// DeleteExpired removes every session idle past its interval at now and
	// returns how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)

	// Count returns the number of stored sessions.
	Count(ctx context.Context) (int, error)
}

// SessionService handles session lifecycle operations.
type SessionService struct {
	repo        SessionRepository
	maxInactive time.Duration
	logger      logger.Logger
	metrics     *metric.Registry
	now         func() time.Time
}

// Option configures a SessionService.
type Option func(*SessionService)

// WithMaxInactive sets the inactivity interval for new sessions.
func WithMaxInactive(d time.Duration) Option {
	return func(s *SessionService) {
		s.maxInactive = d
	}
}

// WithLogger sets the service logger.
func WithLogger(l logger.Logger) Option {
	return func(s *SessionService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics registry.
func WithMetrics(m *metric.Registry) Option {
	return func(s *SessionService) {
		s.metrics = m
	}
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *SessionService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSessionService creates a new SessionService.
func NewSessionService(repo SessionRepository, opts ...Option) *SessionService {
	s := &SessionService{
		repo:        repo,
		maxInactive: domain.DefaultMaxInactiveInterval,
		logger:      logger.Nop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create creates and stores a new session.
func (s *SessionService) Create(ctx context.Context) (*domain.Session, error) {
	session, err := domain.NewSession(s.maxInactive)
	if err != nil {
		return nil, err
	}
	session.Touch(s.now())

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, storageError(err)
	}
	session.ClearDirty()

	s.metrics.SessionCreated()
	s.logger.Debug("session created", "session_id", session.ID())
	return session, nil
}

// Lookup resolves id to a live session and records the access.
//
// Malformed, unknown and invalidated sessions fail with
// domain.ErrSessionNotFound. A session idle past its interval is removed and
// fails with domain.ErrSessionExpired.
func (s *SessionService) Lookup(ctx context.Context, id string) (*domain.Session, error) {
	if id == "" {
		return nil, domain.ErrMissingArgument.WithDetails("session_id is required")
	}
	if !domain.IsValidSessionID(id) {
		return nil, domain.ErrSessionNotFound.WithDetails("malformed session id")
	}

	session, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, storageError(err)
	}
	if !session.Valid() {
		return nil, domain.ErrSessionNotFound
	}

	now := s.now()
	if session.IsExpired(now) {
		if err := s.repo.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			return nil, storageError(err)
		}
		session.Invalidate()
		s.metrics.SessionsRemoved(1, true)
		return nil, domain.ErrSessionExpired.WithDetails(id)
	}

	session.Touch(now)
	return session, nil
}

// Persist writes session back to the repository if it changed. An
// invalidated session is deleted instead.
func (s *SessionService) Persist(ctx context.Context, session *domain.Session) error {
	if session == nil {
		return nil
	}

	if !session.Valid() {
		err := s.repo.Delete(ctx, session.ID())
		if err == nil {
			s.metrics.SessionsRemoved(1, false)
			return nil
		}
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil
		}
		return storageError(err)
	}

	if !session.Dirty() {
		return nil
	}
	if err := s.repo.Save(ctx, session); err != nil {
		if !session.Valid() && errors.Is(err, domain.ErrSessionNotFound) {
			// Invalidated while saving; the record is already gone.
			return nil
		}
		return storageError(err)
	}
	session.ClearDirty()
	return nil
}

// Invalidate removes the session and runs its destruction callbacks.
func (s *SessionService) Invalidate(ctx context.Context, id string) error {
	session, err := s.repo.Get(ctx, id)
	if err != nil {
		return storageError(err)
	}
	// Flag first so a concurrent Persist cannot write the record back.
	session.Invalidate()
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			// A concurrent Persist already removed it.
			return nil
		}
		return storageError(err)
	}
	s.metrics.SessionsRemoved(1, false)
	s.logger.Debug("session invalidated", "session_id", id)
	return nil
}

// Sweep removes expired sessions and returns how many were removed.
func (s *SessionService) Sweep(ctx context.Context) (int, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, storageError(err)
	}
	s.metrics.SessionsRemoved(n, true)

	if count, err := s.repo.Count(ctx); err == nil {
		s.metrics.SetSessionsActive(count)
	}
	if n > 0 {
		s.logger.Info("expired sessions removed", "count", n)
	}
	return n, nil
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *SessionService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Warn("session sweep failed", "error", err)
			}
		}
	}
}

// storageError keeps domain errors as they are and wraps everything else.
func storageError(err error) error {
	if domain.IsDomainError(err, "") {
		return err
	}
	return domain.ErrStorageError.WithCause(err)
}
