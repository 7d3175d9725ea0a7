package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/yndnr/attrmesh/internal/telemetry/logger"
)

// Hook releases one component. It should return once ctx is done.
type Hook func(ctx context.Context) error

type namedHook struct {
	name string
	fn   Hook
}

// Handler handles graceful shutdown.
type Handler struct {
	timeout time.Duration
	logger  logger.Logger
	signals []os.Signal

	mu    sync.Mutex
	hooks []namedHook

	once sync.Once
	done chan struct{}
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger used while running hooks.
func WithLogger(l logger.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithSignals overrides the signals that trigger shutdown.
func WithSignals(sig ...os.Signal) Option {
	return func(h *Handler) {
		h.signals = sig
	}
}

// NewHandler creates a new shutdown handler.
func NewHandler(timeout time.Duration, opts ...Option) *Handler {
	h := &Handler{
		timeout: timeout,
		logger:  logger.Nop(),
		signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// OnShutdown registers a hook. Hooks run in reverse order of registration.
func (h *Handler) OnShutdown(name string, hook Hook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, namedHook{name: name, fn: hook})
}

// Wait blocks until a shutdown signal arrives or ctx is done, then runs
// the hooks.
func (h *Handler) Wait(ctx context.Context) error {
	sigCtx, stop := signal.NotifyContext(ctx, h.signals...)
	defer stop()

	<-sigCtx.Done()
	h.logger.Info("shutdown initiated", "cause", context.Cause(sigCtx))
	return h.Shutdown()
}

// Shutdown runs every hook once under the handler timeout and returns the
// joined hook errors. Later calls return nil.
func (h *Handler) Shutdown() error {
	var err error
	h.once.Do(func() {
		defer close(h.done)

		ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
		defer cancel()

		h.mu.Lock()
		hooks := make([]namedHook, len(h.hooks))
		copy(hooks, h.hooks)
		h.mu.Unlock()

		var errs []error
		for i := len(hooks) - 1; i >= 0; i-- {
			hook := hooks[i]
			start := time.Now()
			if hookErr := hook.fn(ctx); hookErr != nil {
				h.logger.Error("shutdown hook failed", "hook", hook.name, "error", hookErr)
				errs = append(errs, fmt.Errorf("%s: %w", hook.name, hookErr))
				continue
			}
			h.logger.Debug("shutdown hook completed",
				"hook", hook.name,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		}
		err = errors.Join(errs...)
	})
	return err
}

// Done returns a channel that closes when shutdown is complete.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}
