package shutdown

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestHandler_Shutdown_ReverseOrder(t *testing.T) {
	h := NewHandler(5 * time.Second)

	var mu sync.Mutex
	var order []string
	record := func(name string) Hook {
		return func(ctx context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}
	h.OnShutdown("storage", record("storage"))
	h.OnShutdown("sweeper", record("sweeper"))
	h.OnShutdown("http", record("http"))

	if err := h.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if got := strings.Join(order, ","); got != "http,sweeper,storage" {
		t.Errorf("order = %s, want http,sweeper,storage", got)
	}

	select {
	case <-h.Done():
	default:
		t.Error("Done() should be closed after Shutdown")
	}
}

func TestHandler_Shutdown_JoinsErrors(t *testing.T) {
	h := NewHandler(time.Second)
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	ran := false

	h.OnShutdown("a", func(context.Context) error { return errA })
	h.OnShutdown("ok", func(context.Context) error { ran = true; return nil })
	h.OnShutdown("b", func(context.Context) error { return errB })

	err := h.Shutdown()
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("Shutdown() error = %v, want both hook errors", err)
	}
	if !ran {
		t.Error("a failing hook must not stop later hooks")
	}
	if !strings.Contains(err.Error(), "a: a failed") {
		t.Errorf("error %q should name the hook", err)
	}
}

func TestHandler_Shutdown_Once(t *testing.T) {
	h := NewHandler(time.Second)
	calls := 0
	h.OnShutdown("count", func(context.Context) error { calls++; return errors.New("x") })

	if err := h.Shutdown(); err == nil {
		t.Error("first Shutdown() should report the hook error")
	}
	if err := h.Shutdown(); err != nil {
		t.Errorf("second Shutdown() error = %v, want nil", err)
	}
	if calls != 1 {
		t.Errorf("hook ran %d times, want 1", calls)
	}
}

func TestHandler_Shutdown_Timeout(t *testing.T) {
	h := NewHandler(50 * time.Millisecond)
	h.OnShutdown("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	start := time.Now()
	err := h.Shutdown()
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Shutdown() error = %v, want deadline exceeded", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("timeout was not applied to hooks")
	}
}

func TestHandler_Wait_ContextCancel(t *testing.T) {
	h := NewHandler(time.Second)
	called := make(chan struct{})
	h.OnShutdown("hook", func(context.Context) error {
		close(called)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- h.Wait(ctx) }()

	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Wait() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not return after context cancel")
	}
	select {
	case <-called:
	default:
		t.Error("hook was not called")
	}
}
