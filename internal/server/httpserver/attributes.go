package httpserver

import (
	"context"
	"net/http"

	"github.com/yndnr/attrmesh/internal/core/attributes"
	"github.com/yndnr/attrmesh/internal/core/service"
	"github.com/yndnr/attrmesh/internal/server/httpserver/handler"
	"github.com/yndnr/attrmesh/internal/telemetry/logger"
	"github.com/yndnr/attrmesh/internal/telemetry/metric"
)

// AttributesConfig configures the Attributes middleware.
type AttributesConfig struct {
	Sessions *service.SessionService
	Cookies  *CookieCodec
	Logger   logger.Logger
	Metrics  *metric.Registry
}

// Attributes places a RequestAttributes accessor on the request context.
//
// After the handler returns the accessor is marked completed, the request
// is closed and any session it touched is persisted. The session cookie is
// written just before the response header goes out.
func Attributes(cfg AttributesConfig) Middleware {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := newHTTPRequest(r, cfg.Sessions, cfg.Cookies, logger.RequestIDFromContext(r.Context()))

			attrs, err := attributes.New(req,
				attributes.WithLogger(log),
				attributes.WithMetrics(cfg.Metrics),
			)
			if err != nil {
				handler.WriteError(w, r, err)
				return
			}

			sw := &sessionWriter{
				ResponseWriter: w,
				req:            req,
				cookies:        cfg.Cookies,
				logger:         log.WithContext(r.Context()),
			}
			ctx := attributes.NewContext(r.Context(), attrs)

			defer func() {
				attrs.RequestCompleted()
				sw.writeCookie()
				for _, s := range req.close() {
					// The client may already be gone; persisting must not be
					// tied to the request context.
					if err := cfg.Sessions.Persist(context.WithoutCancel(ctx), s); err != nil {
						log.WithContext(ctx).Error("failed to persist session",
							"session_id", s.ID(),
							"error", err,
						)
					}
				}
			}()

			next.ServeHTTP(sw, r.WithContext(ctx))
		})
	}
}

// sessionWriter sets or clears the session cookie before the first byte of
// the response is written.
type sessionWriter struct {
	http.ResponseWriter
	req     *httpRequest
	cookies *CookieCodec
	logger  logger.Logger
	written bool
}

func (w *sessionWriter) WriteHeader(code int) {
	w.writeCookie()
	w.ResponseWriter.WriteHeader(code)
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	w.writeCookie()
	return w.ResponseWriter.Write(b)
}

func (w *sessionWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *sessionWriter) writeCookie() {
	if w.written {
		return
	}
	w.written = true

	set, clear := w.req.cookie()
	switch {
	case set != nil:
		c, err := w.cookies.Cookie(set.ID())
		if err != nil {
			w.logger.Error("failed to encode session cookie", "error", err)
			return
		}
		http.SetCookie(w.ResponseWriter, c)
	case clear:
		http.SetCookie(w.ResponseWriter, w.cookies.Expired())
	}
}
