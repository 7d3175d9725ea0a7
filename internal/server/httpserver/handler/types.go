package handler

import "time"

// Response is the standard API response envelope.
// All JSON responses use this format (except /metrics which uses Prometheus format).
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// SetAttributeRequest is the request body for PUT /v1/attributes/{scope}/{name}.
// A null value removes the attribute.
type SetAttributeRequest struct {
	Value any `json:"value"`
}

// AttributeResponse is the response body for attribute reads and writes.
type AttributeResponse struct {
	Scope   string `json:"scope"`
	Name    string `json:"name"`
	Value   any    `json:"value,omitempty"`
	Pending bool   `json:"pending,omitempty"`
}

// ListAttributesResponse is the response body for GET /v1/attributes/{scope}.
type ListAttributesResponse struct {
	Scope string   `json:"scope"`
	Names []string `json:"names"`
}

// SessionResponse describes the session bound to the request.
type SessionResponse struct {
	ID                 string    `json:"id"`
	CreatedAt          time.Time `json:"created_at"`
	LastAccessed       time.Time `json:"last_accessed"`
	MaxInactiveSeconds int64     `json:"max_inactive_seconds"`
}
