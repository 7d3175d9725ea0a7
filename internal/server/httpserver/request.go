package httpserver

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"

	"github.com/yndnr/attrmesh/internal/container"
	"github.com/yndnr/attrmesh/internal/core/domain"
	"github.com/yndnr/attrmesh/internal/core/service"
)

// Request attributes seeded by the container.
const (
	AttrRequestID = "attrmesh.request_id"
	AttrClientIP  = "attrmesh.client_ip"
)

// httpRequest is the container.Request for one HTTP exchange.
//
// The session cookie is resolved on the first Session call, so handlers
// that never touch a session scope never hit the session store.
type httpRequest struct {
	mu       sync.Mutex
	ctx      context.Context
	attrs    map[string]any
	sessions *service.SessionService

	cookieID string // decoded from the request cookie, "" if none
	rejected bool   // a cookie was presented but failed to decode

	session  *domain.Session
	retired  []*domain.Session // invalidated while bound to this request
	resolved bool
	stale    bool // cookieID did not resolve to a live session
	closed   bool
}

func newHTTPRequest(r *http.Request, sessions *service.SessionService, cookies *CookieCodec, requestID string) *httpRequest {
	req := &httpRequest{
		ctx:      r.Context(),
		attrs:    make(map[string]any),
		sessions: sessions,
	}
	if requestID != "" {
		req.attrs[AttrRequestID] = requestID
	}
	req.attrs[AttrClientIP] = getClientIP(r)

	if _, err := r.Cookie(cookies.Name()); err == nil {
		req.cookieID = cookies.SessionID(r)
		req.rejected = req.cookieID == ""
	}
	return req
}

func (r *httpRequest) Attribute(name string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.attrs[name]
	return v, ok
}

func (r *httpRequest) SetAttribute(name string, value any) error {
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

func (r *httpRequest) RemoveAttribute(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.attrs, name)
}

func (r *httpRequest) AttributeNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.attrs))
	for k := range r.attrs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Session implements container.Request. A nil session is always returned
// as an untyped nil interface.
func (r *httpRequest) Session(create bool) (container.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.resolveLocked(); err != nil {
		return nil, err
	}
	if r.session != nil {
		return r.session, nil
	}
	if !create {
		return nil, nil
	}
	if r.closed {
		return nil, domain.ErrRequestClosed
	}

	s, err := r.sessions.Create(r.ctx)
	if err != nil {
		return nil, err
	}
	r.session = s
	return s, nil
}

func (r *httpRequest) resolveLocked() error {
	if !r.resolved {
		if r.cookieID != "" {
			s, err := r.sessions.Lookup(r.ctx, r.cookieID)
			switch {
			case err == nil:
				r.session = s
			case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrSessionExpired):
				r.stale = true
			default:
				return err
			}
		}
		r.resolved = true
	}

	if r.session != nil && !r.session.Valid() {
		r.retired = append(r.retired, r.session)
		r.session = nil
	}
	return nil
}

// cookie reports which session cookie the response should carry: set is
// the session to issue a cookie for, clear is true when the presented
// cookie must be deleted.
func (r *httpRequest) cookie() (set *domain.Session, clear bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil && !r.session.Valid() {
		r.retired = append(r.retired, r.session)
		r.session = nil
	}

	if r.session != nil {
		if r.session.ID() != r.cookieID {
			return r.session, false
		}
		return nil, false
	}
	return nil, r.rejected || r.stale || len(r.retired) > 0
}

// close marks the request inactive and returns every session that needs
// persisting.
func (r *httpRequest) close() []*domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	out := make([]*domain.Session, 0, len(r.retired)+1)
	out = append(out, r.retired...)
	if r.session != nil {
		out = append(out, r.session)
	}
	return out
}

var _ container.Request = (*httpRequest)(nil)
