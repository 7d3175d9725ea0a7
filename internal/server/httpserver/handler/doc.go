// Package handler provides the JSON API handlers for attrmesh.
//
// Handlers find the request's attribute accessor on the context and map
// domain errors to HTTP status codes.
package handler
