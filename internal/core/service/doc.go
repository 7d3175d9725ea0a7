// Package service provides domain services for attrmesh.
//
// SessionService owns the session lifecycle behind the HTTP container: it
// creates sessions on demand, resolves session cookies to live sessions,
// persists changed sessions after each request and sweeps sessions that
// exceeded their inactivity interval.
//
// Storage is abstracted by SessionRepository so the service runs unchanged
// on the in-memory store and on the Badger-backed store.
package service
