package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yndnr/attrmesh/internal/container"
	"github.com/yndnr/attrmesh/internal/core/attributes"
	"github.com/yndnr/attrmesh/internal/core/domain"
	"github.com/yndnr/attrmesh/internal/telemetry/logger"
)

func newTestHandler() *Handler {
	return New(nil, nil, logger.Nop())
}

// newAttributeRequest builds a request carrying a fresh accessor over an
// in-memory container request.
func newAttributeRequest(t *testing.T, method, target string, body io.Reader) (*http.Request, *attributes.RequestAttributes) {
	t.Helper()
	attrs, err := attributes.New(container.NewMemoryRequest())
	if err != nil {
		t.Fatalf("attributes.New() error = %v", err)
	}
	r := httptest.NewRequest(method, target, body)
	return r.WithContext(attributes.NewContext(r.Context(), attrs)), attrs
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) *Response {
	t.Helper()
	var resp Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return &resp
}

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{"AM-ARG-1001", http.StatusBadRequest},
		{"AM-ARG-1002", http.StatusBadRequest},
		{"AM-ARG-1003", http.StatusBadRequest},
		{"AM-STATE-4090", http.StatusConflict},
		{"AM-STATE-4091", http.StatusConflict},
		{"AM-STATE-4092", http.StatusConflict},
		{"AM-SESS-4040", http.StatusNotFound},
		{"AM-SESS-4041", http.StatusNotFound},
		{"AM-SESS-4090", http.StatusConflict},
		{"AM-ATTR-4040", http.StatusNotFound},
		{"AM-SYS-4000", http.StatusBadRequest},
		{"AM-SYS-4290", http.StatusTooManyRequests},
		{"AM-SYS-5000", http.StatusInternalServerError},
		{"AM-SYS-5001", http.StatusInternalServerError},
		{"UNKNOWN", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := errorCodeToHTTPStatus(tt.code); got != tt.want {
				t.Errorf("errorCodeToHTTPStatus(%q) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "domain error",
			err:        domain.ErrAttributeNotFound.WithDetails("color"),
			wantStatus: http.StatusNotFound,
			wantCode:   "AM-ATTR-4040",
			wantMsg:    "color",
		},
		{
			name:       "wrapped domain error",
			err:        fmt.Errorf("lookup: %w", domain.ErrRequestCompleted),
			wantStatus: http.StatusConflict,
			wantCode:   "AM-STATE-4090",
		},
		{
			name:       "plain error hides its message",
			err:        errors.New("disk on fire"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "AM-SYS-5000",
			wantMsg:    "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if StatusForError(tt.err) != tt.wantStatus {
				t.Errorf("StatusForError() = %d, want %d", StatusForError(tt.err), tt.wantStatus)
			}
			if got := w.Header().Get("X-Error-Code"); got != tt.wantCode {
				t.Errorf("X-Error-Code = %q, want %q", got, tt.wantCode)
			}

			resp := decodeResponse(t, w)
			if resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
			}
			if !strings.Contains(resp.Message, tt.wantMsg) {
				t.Errorf("message = %q, want it to contain %q", resp.Message, tt.wantMsg)
			}
			if strings.Contains(resp.Message, "disk on fire") {
				t.Error("internal error text leaked into the response")
			}
		})
	}
}

func TestHandleSetAttribute(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		body       string
		seed       any
		wantStatus int
		wantCode   string
		wantValue  any // nil means the attribute must be absent
	}{
		{
			name:       "stores value",
			target:     "/v1/attributes/request/color",
			body:       `{"value":"blue"}`,
			wantStatus: http.StatusOK,
			wantCode:   "OK",
			wantValue:  "blue",
		},
		{
			name:       "null value removes",
			target:     "/v1/attributes/request/color",
			body:       `{"value":null}`,
			seed:       "red",
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "empty body",
			target:     "/v1/attributes/request/color",
			body:       "",
			seed:       "red",
			wantStatus: http.StatusBadRequest,
			wantCode:   "AM-ARG-1002",
			wantValue:  "red",
		},
		{
			name:       "invalid json",
			target:     "/v1/attributes/request/color",
			body:       `{"value":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "AM-SYS-4000",
		},
		{
			name:       "value too large",
			target:     "/v1/attributes/request/color",
			body:       `{"value":"` + strings.Repeat("a", MaxValueBytes) + `"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "AM-SYS-4000",
		},
		{
			name:       "unknown scope",
			target:     "/v1/attributes/galaxy/color",
			body:       `{"value":"blue"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "AM-ARG-1003",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler()
			r, attrs := newAttributeRequest(t, http.MethodPut, tt.target, strings.NewReader(tt.body))
			if tt.seed != nil {
				if err := attrs.SetAttribute("color", tt.seed, domain.ScopeRequest); err != nil {
					t.Fatal(err)
				}
			}

			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantCode != "" {
				if resp := decodeResponse(t, w); resp.Code != tt.wantCode {
					t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
				}
			} else if w.Body.Len() != 0 {
				t.Errorf("body = %q, want empty", w.Body.String())
			}

			got, found := attrs.Attribute("color", domain.ScopeRequest)
			switch {
			case tt.wantValue == nil && found:
				t.Errorf("attribute = %v, want absent", got)
			case tt.wantValue != nil && got != tt.wantValue:
				t.Errorf("attribute = %v, want %v", got, tt.wantValue)
			}
		})
	}
}

func TestHandleGetAttribute(t *testing.T) {
	h := newTestHandler()

	r, attrs := newAttributeRequest(t, http.MethodGet, "/v1/attributes/request/color", nil)
	_ = attrs.SetAttribute("color", "blue", domain.ScopeRequest)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	data, _ := decodeResponse(t, w).Data.(map[string]any)
	if data["value"] != "blue" || data["scope"] != "request" {
		t.Errorf("data = %v", data)
	}

	r, _ = newAttributeRequest(t, http.MethodGet, "/v1/attributes/request/missing", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusNotFound || w.Header().Get("X-Error-Code") != "AM-ATTR-4040" {
		t.Errorf("missing attribute status = %d, code %q", w.Code, w.Header().Get("X-Error-Code"))
	}
}

func TestHandleRemoveAttribute_Absent(t *testing.T) {
	req := container.NewMemoryRequest()
	attrs, err := attributes.New(req)
	if err != nil {
		t.Fatal(err)
	}
	r := httptest.NewRequest(http.MethodDelete, "/v1/attributes/session/color", nil)
	r = r.WithContext(attributes.NewContext(r.Context(), attrs))

	w := httptest.NewRecorder()
	newTestHandler().ServeHTTP(w, r)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if n := req.SessionsCreated(); n != 0 {
		t.Errorf("sessions created = %d, want 0", n)
	}
}

func TestHandler_NoAccessor(t *testing.T) {
	w := httptest.NewRecorder()
	newTestHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/attributes/request", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if code := decodeResponse(t, w).Code; code != "AM-SYS-5000" {
		t.Errorf("code = %q, want AM-SYS-5000", code)
	}
}
