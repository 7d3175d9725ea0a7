// Package localserver provides the local management listener.
//
// The server exposes its HTTP API on a Unix domain socket next to the TCP
// listener. The socket is created owner-only so local tooling can reach the
// server without opening a network port. Windows is not supported.
package localserver
