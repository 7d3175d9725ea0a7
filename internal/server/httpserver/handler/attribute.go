package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/yndnr/attrmesh/internal/core/attributes"
	"github.com/yndnr/attrmesh/internal/core/domain"
)

// MaxValueBytes bounds the body of an attribute write.
const MaxValueBytes = 1 << 20

func (h *Handler) accessor(w http.ResponseWriter, r *http.Request) (*attributes.RequestAttributes, domain.Scope, bool) {
	attrs, ok := attributes.FromContext(r.Context())
	if !ok {
		h.handleServiceError(w, r, domain.ErrInternalServer.WithDetails("request attributes not installed"))
		return nil, 0, false
	}

	scope, err := domain.ParseScope(r.PathValue("scope"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return nil, 0, false
	}
	return attrs, scope, true
}

// handleListAttributes handles GET /v1/attributes/{scope}.
func (h *Handler) handleListAttributes(w http.ResponseWriter, r *http.Request) {
	attrs, scope, ok := h.accessor(w, r)
	if !ok {
		return
	}

	names := attrs.AttributeNames(scope)
	if names == nil {
		names = []string{}
	}
	h.writeJSON(w, r, http.StatusOK, &ListAttributesResponse{
		Scope: scope.String(),
		Names: names,
	})
}

// handleGetAttribute handles GET /v1/attributes/{scope}/{name}.
func (h *Handler) handleGetAttribute(w http.ResponseWriter, r *http.Request) {
	attrs, scope, ok := h.accessor(w, r)
	if !ok {
		return
	}

	name := r.PathValue("name")
	value, found := attrs.Attribute(name, scope)
	if !found {
		h.handleServiceError(w, r, domain.ErrAttributeNotFound.WithDetails(name))
		return
	}
	h.writeJSON(w, r, http.StatusOK, &AttributeResponse{
		Scope: scope.String(),
		Name:  name,
		Value: value,
	})
}

// handleSetAttribute handles PUT /v1/attributes/{scope}/{name}.
func (h *Handler) handleSetAttribute(w http.ResponseWriter, r *http.Request) {
	attrs, scope, ok := h.accessor(w, r)
	if !ok {
		return
	}

	var req SetAttributeRequest
	body := http.MaxBytesReader(w, r.Body, MaxValueBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			h.handleServiceError(w, r, domain.ErrBadRequest.WithDetails("value too large"))
		case errors.Is(err, io.EOF):
			h.handleServiceError(w, r, domain.ErrMissingArgument.WithDetails("request body is empty"))
		default:
			h.handleServiceError(w, r, domain.ErrBadRequest.WithDetails("invalid JSON body"))
		}
		return
	}

	name := r.PathValue("name")
	if req.Value == nil {
		attrs.RemoveAttribute(name, scope)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := attrs.SetAttribute(name, req.Value, scope); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, &AttributeResponse{
		Scope:   scope.String(),
		Name:    name,
		Value:   req.Value,
		Pending: len(attrs.PendingWrites()) > 0,
	})
}

// handleRemoveAttribute handles DELETE /v1/attributes/{scope}/{name}.
// Removing an absent attribute succeeds.
func (h *Handler) handleRemoveAttribute(w http.ResponseWriter, r *http.Request) {
	attrs, scope, ok := h.accessor(w, r)
	if !ok {
		return
	}

	attrs.RemoveAttribute(r.PathValue("name"), scope)
	w.WriteHeader(http.StatusNoContent)
}
