// Command attrmesh-cli reads and writes attributes on an attrmesh server.
//
// The session cookie is kept in a file between invocations so successive
// commands share one server session.
package main
