package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/yndnr/attrmesh/internal/core/domain"
	"github.com/yndnr/attrmesh/internal/core/service"
	"github.com/yndnr/attrmesh/pkg/cmap"
	"github.com/yndnr/attrmesh/pkg/crypto/sealer"
)

// sessionPrefix is the key prefix for session records.
const sessionPrefix = "session/"

func sessionKey(id string) []byte {
	return []byte(sessionPrefix + id)
}

// SessionStore is a SessionRepository persisting sessions as JSON records in
// a KVEngine.
//
// Sessions returned by Get are cached until deleted, so a session in use by
// several requests is one shared instance. Attribute values must be
// JSON-encodable; after a restart they come back in their JSON form
// (numbers as float64, objects as map[string]any).
type SessionStore struct {
	kv     KVEngine
	live   *cmap.Map[string, *domain.Session]
	sealer *sealer.Sealer
}

// StoreOption configures a SessionStore.
type StoreOption func(*SessionStore)

// WithSealer encrypts records at rest, bound to their key. Plain records
// written before a sealer was configured are still read.
func WithSealer(s *sealer.Sealer) StoreOption {
	return func(st *SessionStore) {
		st.sealer = s
	}
}

// NewSessionStore creates a SessionStore on kv.
func NewSessionStore(kv KVEngine, opts ...StoreOption) *SessionStore {
	s := &SessionStore{
		kv:   kv,
		live: cmap.New[string, *domain.Session](),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new session.
func (s *SessionStore) Create(ctx context.Context, session *domain.Session) error {
	if session == nil {
		return domain.ErrMissingArgument.WithDetails("session is nil")
	}

	if _, err := s.kv.Get(ctx, sessionKey(session.ID())); err == nil {
		return domain.ErrSessionConflict.WithDetails(session.ID())
	} else if !errors.Is(err, ErrKeyNotFound) {
		return err
	}

	if !s.live.SetIfAbsent(session.ID(), session) {
		return domain.ErrSessionConflict.WithDetails(session.ID())
	}
	if err := s.write(ctx, session); err != nil {
		s.live.Delete(session.ID())
		return err
	}
	return nil
}

// Get retrieves a session by ID, loading it from the engine on first use.
func (s *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	if session, ok := s.live.Get(id); ok {
		return session, nil
	}

	rec, err := s.read(ctx, id)
	if err != nil {
		return nil, err
	}
	session, err := domain.RestoreSession(rec)
	if err != nil {
		return nil, fmt.Errorf("restore session %s: %w", id, err)
	}

	if !s.live.SetIfAbsent(id, session) {
		// Another request loaded it first; share that instance.
		if existing, ok := s.live.Get(id); ok {
			return existing, nil
		}
	}
	return session, nil
}

// Save writes the current state of an existing session. A session that
// was deleted or invalidated is not written back.
func (s *SessionStore) Save(ctx context.Context, session *domain.Session) error {
	key, data, err := s.encode(session)
	if err != nil {
		return err
	}
	if !session.Valid() {
		return domain.ErrSessionNotFound.WithDetails(session.ID())
	}
	if err := s.kv.Replace(ctx, key, data); err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return domain.ErrSessionNotFound.WithDetails(session.ID())
		}
		return err
	}
	return nil
}

// Delete removes a session by ID.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	_, cached := s.live.Pop(id)

	_, err := s.kv.Get(ctx, sessionKey(id))
	switch {
	case err == nil:
		return s.kv.Delete(ctx, sessionKey(id))
	case !errors.Is(err, ErrKeyNotFound):
		return err
	case cached:
		return nil
	default:
		return domain.ErrSessionNotFound.WithDetails(id)
	}
}

// DeleteExpired removes sessions idle past their interval at now. Cached
// sessions are judged by their in-memory state, which may be newer than the
// stored record.
func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	var ids []string
	err := s.kv.Scan(ctx, []byte(sessionPrefix), func(key, value []byte) bool {
		id := string(key[len(sessionPrefix):])
		if session, ok := s.live.Get(id); ok {
			if session.IsExpired(now) || !session.Valid() {
				ids = append(ids, id)
			}
			return true
		}

		plain, err := s.unseal(key, value)
		if err != nil {
			// Sealed under a key we do not hold; leave it alone.
			return true
		}
		var rec domain.SessionRecord
		if err := json.Unmarshal(plain, &rec); err != nil {
			// Unreadable records are garbage.
			ids = append(ids, id)
			return true
		}
		if recordExpired(&rec, now) {
			ids = append(ids, id)
		}
		return true
	})
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, id := range ids {
		if err := s.kv.Delete(ctx, sessionKey(id)); err != nil {
			return removed, err
		}
		if session, ok := s.live.Pop(id); ok {
			session.Invalidate()
		}
		removed++
	}
	return removed, nil
}

// Count returns the number of stored sessions.
func (s *SessionStore) Count(ctx context.Context) (int, error) {
	n := 0
	err := s.kv.Scan(ctx, []byte(sessionPrefix), func(_, _ []byte) bool {
		n++
		return true
	})
	return n, err
}

func (s *SessionStore) write(ctx context.Context, session *domain.Session) error {
	key, data, err := s.encode(session)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, key, data)
}

func (s *SessionStore) encode(session *domain.Session) ([]byte, []byte, error) {
	data, err := json.Marshal(session.Record())
	if err != nil {
		return nil, nil, domain.ErrStorageError.WithDetails("session attributes are not JSON-encodable").WithCause(err)
	}
	key := sessionKey(session.ID())
	if s.sealer != nil {
		if data, err = s.sealer.Seal(data, key); err != nil {
			return nil, nil, err
		}
	}
	return key, data, nil
}

func (s *SessionStore) read(ctx context.Context, id string) (*domain.SessionRecord, error) {
	key := sessionKey(id)
	data, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, domain.ErrSessionNotFound.WithDetails(id)
		}
		return nil, err
	}
	if data, err = s.unseal(key, data); err != nil {
		return nil, fmt.Errorf("open session %s: %w", id, err)
	}

	var rec domain.SessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &rec, nil
}

func (s *SessionStore) unseal(key, data []byte) ([]byte, error) {
	if !sealer.IsSealed(data) {
		return data, nil
	}
	if s.sealer == nil {
		return nil, errors.New("record is encrypted and no storage key is configured")
	}
	return s.sealer.Open(data, key)
}

func recordExpired(rec *domain.SessionRecord, now time.Time) bool {
	if rec.MaxInactive <= 0 {
		return false
	}
	idle := now.Sub(time.UnixMilli(rec.LastAccessed))
	return idle > time.Duration(rec.MaxInactive)*time.Millisecond
}

var _ service.SessionRepository = (*SessionStore)(nil)
