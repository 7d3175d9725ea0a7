package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/yndnr/attrmesh/internal/core/domain"
	"github.com/yndnr/attrmesh/internal/core/service"
	"github.com/yndnr/attrmesh/internal/telemetry/logger"
)

// ReadyFunc reports whether the backing store can serve requests.
type ReadyFunc func(ctx context.Context) error

// Handler routes API requests to attribute and session operations.
type Handler struct {
	sessions *service.SessionService
	ready    ReadyFunc
	logger   logger.Logger
	mux      *http.ServeMux
}

// New creates a Handler. ready may be nil.
func New(sessions *service.SessionService, ready ReadyFunc, log logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	h := &Handler{
		sessions: sessions,
		ready:    ready,
		logger:   log,
		mux:      http.NewServeMux(),
	}

	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)

	h.mux.HandleFunc("GET /v1/attributes/{scope}", h.handleListAttributes)
	h.mux.HandleFunc("GET /v1/attributes/{scope}/{name}", h.handleGetAttribute)
	h.mux.HandleFunc("PUT /v1/attributes/{scope}/{name}", h.handleSetAttribute)
	h.mux.HandleFunc("DELETE /v1/attributes/{scope}/{name}", h.handleRemoveAttribute)

	h.mux.HandleFunc("GET /v1/session", h.handleGetSession)
	h.mux.HandleFunc("POST /v1/session/invalidate", h.handleInvalidateSession)
}

// writeJSON writes a JSON response with the standard envelope.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	response := NewResponse(logger.RequestIDFromContext(r.Context()), data)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.WithContext(r.Context()).Error("failed to encode response", "error", err)
	}
}

// handleServiceError converts errors into enveloped responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if !domain.IsDomainError(err, "") || StatusForError(err) >= 500 {
		h.logger.WithContext(r.Context()).Error("request failed", "error", err)
	}
	WriteError(w, r, err)
}

// WriteError writes err with the standard envelope. Errors that are not
// DomainErrors are reported as AM-SYS-5000 without their message.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.GetErrorCode(err)
	message := err.Error()
	if code == "" {
		code = domain.ErrInternalServer.Code
		message = domain.ErrInternalServer.Message
	}

	response := NewErrorResponse(logger.RequestIDFromContext(r.Context()), code, message, nil)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(errorCodeToHTTPStatus(code))
	_ = json.NewEncoder(w).Encode(response)
}

// StatusForError returns the HTTP status WriteError would use for err.
func StatusForError(err error) int {
	code := domain.GetErrorCode(err)
	if code == "" {
		return http.StatusInternalServerError
	}
	return errorCodeToHTTPStatus(code)
}

// errorCodeToHTTPStatus maps error codes to HTTP status codes.
func errorCodeToHTTPStatus(code string) int {
	switch {
	case strings.HasPrefix(code, "AM-ARG-"):
		return http.StatusBadRequest
	case strings.HasPrefix(code, "AM-STATE-"):
		return http.StatusConflict
	case strings.HasSuffix(code, "-4040"), strings.HasSuffix(code, "-4041"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "-4090"):
		return http.StatusConflict
	case strings.HasSuffix(code, "-4290"):
		return http.StatusTooManyRequests
	case strings.HasSuffix(code, "-4000"):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
