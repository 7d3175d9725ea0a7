package handler

import (
	"net/http"

	"github.com/yndnr/attrmesh/internal/core/attributes"
	"github.com/yndnr/attrmesh/internal/core/domain"
)

// boundSession returns the request's session without creating one.
func (h *Handler) boundSession(w http.ResponseWriter, r *http.Request) (*domain.Session, bool) {
	attrs, ok := attributes.FromContext(r.Context())
	if !ok {
		h.handleServiceError(w, r, domain.ErrInternalServer.WithDetails("request attributes not installed"))
		return nil, false
	}

	cs, err := attrs.Request().Session(false)
	if err != nil {
		h.handleServiceError(w, r, err)
		return nil, false
	}
	s, ok := cs.(*domain.Session)
	if !ok || s == nil {
		h.handleServiceError(w, r, domain.ErrSessionNotFound)
		return nil, false
	}
	return s, true
}

// handleGetSession handles GET /v1/session.
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.boundSession(w, r)
	if !ok {
		return
	}

	h.writeJSON(w, r, http.StatusOK, &SessionResponse{
		ID:                 s.ID(),
		CreatedAt:          s.CreatedAt().UTC(),
		LastAccessed:       s.LastAccessed().UTC(),
		MaxInactiveSeconds: int64(s.MaxInactiveInterval().Seconds()),
	})
}

// handleInvalidateSession handles POST /v1/session/invalidate.
func (h *Handler) handleInvalidateSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.boundSession(w, r)
	if !ok {
		return
	}

	if err := h.sessions.Invalidate(r.Context(), s.ID()); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
