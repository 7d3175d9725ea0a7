package httpserver

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/yndnr/attrmesh/internal/core/domain"
	"github.com/yndnr/attrmesh/internal/server/httpserver/handler"
	"github.com/yndnr/attrmesh/internal/telemetry/logger"
	"github.com/yndnr/attrmesh/internal/telemetry/metric"
	"github.com/yndnr/attrmesh/pkg/cmap"
)

// HeaderRequestID carries the request ID in both directions.
const HeaderRequestID = "X-Request-ID"

// maxRequestIDLength bounds client supplied request IDs.
const maxRequestIDLength = 64

// Middleware wraps an http.Handler with additional functionality.
type Middleware func(http.Handler) http.Handler

// Chain chains multiple middlewares together. The first middleware is the
// outermost.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// RequestID assigns every request an ID, honouring a well-formed incoming
// X-Request-ID header.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(HeaderRequestID)
			if !validRequestID(requestID) {
				requestID = "req-" + strings.ToLower(ulid.Make().String())
			}

			w.Header().Set(HeaderRequestID, requestID)
			ctx := logger.WithRequestID(r.Context(), requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}

// Recover recovers from panics and returns a 500 error.
func Recover(log logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					log.WithContext(r.Context()).Error("panic recovered",
						"error", err,
						"path", r.URL.Path,
					)
					handler.WriteError(w, r, domain.ErrInternalServer)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// limiterIdleTTL is how long a per-client limiter survives without traffic.
const limiterIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // Unix nanoseconds
}

// RateLimit applies a token bucket per client IP as resolved by
// ResolveClientIP. Idle buckets are swept lazily while requests arrive.
func RateLimit(rps float64, burst int) Middleware {
	limiters := cmap.New[string, *clientLimiter]()
	var lastSweep atomic.Int64
	lastSweep.Store(time.Now().UnixNano())

	get := func(ip string, now time.Time) *clientLimiter {
		cl, ok := limiters.Get(ip)
		if !ok {
			cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
			if !limiters.SetIfAbsent(ip, cl) {
				cl, _ = limiters.Get(ip)
			}
		}
		cl.lastSeen.Store(now.UnixNano())
		return cl
	}

	sweep := func(now time.Time) {
		last := lastSweep.Load()
		if now.UnixNano()-last < int64(limiterIdleTTL) {
			return
		}
		if !lastSweep.CompareAndSwap(last, now.UnixNano()) {
			return
		}
		cutoff := now.Add(-limiterIdleTTL).UnixNano()
		limiters.DeleteIf(func(_ string, cl *clientLimiter) bool {
			return cl.lastSeen.Load() < cutoff
		})
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			sweep(now)

			cl := get(getClientIP(r), now)
			res := cl.limiter.ReserveN(now, 1)
			if !res.OK() {
				w.Header().Set("Retry-After", "1")
				handler.WriteError(w, r, domain.ErrRateLimited)
				return
			}
			if delay := res.DelayFrom(now); delay > 0 {
				res.CancelAt(now)
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
				handler.WriteError(w, r, domain.ErrRateLimited)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AccessLog logs each request and records request metrics.
func AccessLog(log logger.Logger, metrics *metric.Registry) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			elapsed := time.Since(start)
			if metrics != nil {
				metrics.ObserveRequest(r.Method, wrapped.statusCode, elapsed)
			}

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", elapsed.Milliseconds(),
				"client_ip", getClientIP(r),
			}

			l := log.WithContext(r.Context())
			switch {
			case wrapped.statusCode >= 500:
				l.Error("request completed with error", attrs...)
			case wrapped.statusCode >= 400:
				l.Warn("request completed with client error", attrs...)
			default:
				l.Info("request completed", attrs...)
			}
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.statusCode = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
