// Package container defines the host container boundary that request
// attribute accessors are written against.
//
// A container supplies a Request per incoming call and, on demand, the
// Session bound to it. Session lookup always takes an explicit create flag
// so callers decide whether a missing session may be created.
//
// MemoryRequest is a self-contained implementation used by tests and by
// embedders that drive the accessor outside of HTTP.
package container
