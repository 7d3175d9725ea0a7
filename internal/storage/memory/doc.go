// Package memory provides in-memory session storage for attrmesh.
//
// Store keeps live *domain.Session values in a sharded map, so concurrent
// requests carrying the same session cookie share one Session instance and
// observe each other's attribute writes immediately.
//
// Sessions do not survive a restart; use the Badger-backed store in package
// storage for that.
package memory
