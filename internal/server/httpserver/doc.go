// Package httpserver is the HTTP container for attrmesh.
//
// Every API request gets a container request carrying request attributes
// and a lazily resolved session, wrapped in an attributes.RequestAttributes
// accessor placed on the request context. Sessions are tracked with a
// signed and encrypted cookie; a session is only looked up when a handler
// touches a session scope and only created when one writes to it.
//
// Middleware chain for the API: RequestID, Recover, RateLimit, AccessLog,
// Attributes.
package httpserver
