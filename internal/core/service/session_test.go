package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/attrmesh/internal/core/domain"
	"github.com/yndnr/attrmesh/internal/telemetry/metric"
)

// mockSessionRepo is a map-backed SessionRepository for testing.
type mockSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	saves    int
	failNext error
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]*domain.Session)}
}

func (m *mockSessionRepo) takeFailure() error {
	err := m.failNext
	m.failNext = nil
	return err
}

func (m *mockSessionRepo) Create(ctx context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	if _, exists := m.sessions[s.ID()]; exists {
		return domain.ErrSessionConflict
	}
	m.sessions[s.ID()] = s
	return nil
}

func (m *mockSessionRepo) Get(ctx context.Context, id string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

func (m *mockSessionRepo) Save(ctx context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	if _, ok := m.sessions[s.ID()]; !ok {
		return domain.ErrSessionNotFound
	}
	m.sessions[s.ID()] = s
	m.saves++
	return nil
}

func (m *mockSessionRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *mockSessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.IsExpired(now) {
			delete(m.sessions, id)
			s.Invalidate()
			n++
		}
	}
	return n, nil
}

func (m *mockSessionRepo) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions), nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestService(t *testing.T, opts ...Option) (*SessionService, *mockSessionRepo, *fakeClock) {
	t.Helper()
	repo := newMockSessionRepo()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clock.Now), WithMaxInactive(time.Minute)}, opts...)
	return NewSessionService(repo, opts...), repo, clock
}

func TestSessionService_Create(t *testing.T) {
	reg := metric.NewRegistry()
	svc, repo, _ := newTestService(t, WithMetrics(reg))
	ctx := context.Background()

	s, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !domain.IsValidSessionID(s.ID()) {
		t.Errorf("Create() id = %q, want valid session id", s.ID())
	}
	if s.MaxInactiveInterval() != time.Minute {
		t.Errorf("MaxInactiveInterval() = %v, want 1m", s.MaxInactiveInterval())
	}
	if s.Dirty() {
		t.Error("freshly stored session should not be dirty")
	}
	if n, _ := repo.Count(ctx); n != 1 {
		t.Errorf("repo count = %d, want 1", n)
	}
	if got := testutil.ToFloat64(reg.SessionsCreated); got != 1 {
		t.Errorf("sessions created metric = %v, want 1", got)
	}
}

func TestSessionService_CreateStorageError(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.failNext = errors.New("disk full")

	_, err := svc.Create(context.Background())
	if !errors.Is(err, domain.ErrStorageError) {
		t.Errorf("Create() error = %v, want ErrStorageError", err)
	}
}

func TestSessionService_Lookup(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()

	created, _ := svc.Create(ctx)
	clock.Advance(30 * time.Second)

	got, err := svc.Lookup(ctx, created.ID())
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if got.ID() != created.ID() {
		t.Errorf("Lookup() id = %q, want %q", got.ID(), created.ID())
	}
	if !got.LastAccessed().Equal(clock.Now()) {
		t.Errorf("LastAccessed() = %v, want %v", got.LastAccessed(), clock.Now())
	}
	if !got.Dirty() {
		t.Error("Lookup() should mark the session dirty through Touch")
	}
}

func TestSessionService_LookupErrors(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr error
	}{
		{name: "empty", id: "", wantErr: domain.ErrMissingArgument},
		{name: "malformed", id: "not-a-session", wantErr: domain.ErrSessionNotFound},
		{name: "unknown", id: "sess-01hqz3v8k6a2b4c5d6e7f8g9h0", wantErr: domain.ErrSessionNotFound},
	}

	svc, _, _ := newTestService(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Lookup(context.Background(), tt.id)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Lookup(%q) error = %v, want %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestSessionService_LookupExpired(t *testing.T) {
	reg := metric.NewRegistry()
	svc, repo, clock := newTestService(t, WithMetrics(reg))
	ctx := context.Background()

	s, _ := svc.Create(ctx)
	called := false
	s.RegisterDestructionCallback("k", domain.PartitionPortlet, func() { called = true })

	clock.Advance(2 * time.Minute)

	if _, err := svc.Lookup(ctx, s.ID()); !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("Lookup() error = %v, want ErrSessionExpired", err)
	}
	if _, err := repo.Get(ctx, s.ID()); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Error("expired session should be removed from the repository")
	}
	if !called {
		t.Error("expired session callbacks should run")
	}
	if got := testutil.ToFloat64(reg.SessionsExpired); got != 1 {
		t.Errorf("sessions expired metric = %v, want 1", got)
	}
}

func TestSessionService_LookupInvalidated(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	s, _ := svc.Create(ctx)
	s.Invalidate()

	if _, err := svc.Lookup(ctx, s.ID()); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Lookup() error = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionService_Persist(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	s, _ := svc.Create(ctx)

	if err := svc.Persist(ctx, s); err != nil {
		t.Fatalf("Persist() clean error = %v", err)
	}
	if repo.saves != 0 {
		t.Errorf("clean session saved %d times, want 0", repo.saves)
	}

	_ = s.SetAttribute("k", "v", domain.PartitionApplication)
	if err := svc.Persist(ctx, s); err != nil {
		t.Fatalf("Persist() dirty error = %v", err)
	}
	if repo.saves != 1 {
		t.Errorf("dirty session saved %d times, want 1", repo.saves)
	}
	if s.Dirty() {
		t.Error("Persist() should clear the dirty marker")
	}

	if err := svc.Persist(ctx, nil); err != nil {
		t.Errorf("Persist(nil) error = %v", err)
	}
}

func TestSessionService_PersistInvalidated(t *testing.T) {
	reg := metric.NewRegistry()
	svc, repo, _ := newTestService(t, WithMetrics(reg))
	ctx := context.Background()

	s, _ := svc.Create(ctx)
	s.Invalidate()

	if err := svc.Persist(ctx, s); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	if n, _ := repo.Count(ctx); n != 0 {
		t.Errorf("repo count = %d, want 0", n)
	}
	if got := testutil.ToFloat64(reg.SessionsInvalidated); got != 1 {
		t.Errorf("sessions invalidated metric = %v, want 1", got)
	}

	// Already deleted; a second persist is a no-op.
	if err := svc.Persist(ctx, s); err != nil {
		t.Errorf("second Persist() error = %v", err)
	}
}

func TestSessionService_Invalidate(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	s, _ := svc.Create(ctx)
	_ = s.SetAttribute("k", "v", domain.PartitionPortlet)

	if err := svc.Invalidate(ctx, s.ID()); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if s.Valid() {
		t.Error("session should be invalidated")
	}
	if n, _ := repo.Count(ctx); n != 0 {
		t.Errorf("repo count = %d, want 0", n)
	}
	if err := svc.Invalidate(ctx, s.ID()); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("second Invalidate() error = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionService_Sweep(t *testing.T) {
	reg := metric.NewRegistry()
	svc, repo, clock := newTestService(t, WithMetrics(reg))
	ctx := context.Background()

	old, _ := svc.Create(ctx)
	clock.Advance(50 * time.Second)
	fresh, _ := svc.Create(ctx)
	clock.Advance(20 * time.Second)

	n, err := svc.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}
	if _, err := repo.Get(ctx, old.ID()); err == nil {
		t.Error("old session should be swept")
	}
	if _, err := repo.Get(ctx, fresh.ID()); err != nil {
		t.Error("fresh session should survive")
	}
	if got := testutil.ToFloat64(reg.SessionsActive); got != 1 {
		t.Errorf("sessions active metric = %v, want 1", got)
	}
}

func TestSessionService_RunSweeper(t *testing.T) {
	svc, repo, clock := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())

	_, _ = svc.Create(ctx)
	clock.Advance(time.Hour)

	done := make(chan struct{})
	go func() {
		svc.RunSweeper(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		if n, _ := repo.Count(ctx); n == 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("sweeper did not remove expired session")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunSweeper did not stop after cancel")
	}
}
