// Package connection is the attrmesh-cli HTTP client.
//
// Responses use the server's JSON envelope; error envelopes become
// *APIError. Cookies are kept in a FileJar so the server session survives
// between invocations.
package connection
