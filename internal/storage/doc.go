// Package storage provides durable session storage for attrmesh.
//
// BadgerEngine is a thin KV layer over Badger v3 with a background
// value-log GC loop. SessionStore builds the session repository on top of
// it: each session is a JSON record under "session/{id}", and sessions that
// are in use stay cached so concurrent requests share one instance.
package storage
