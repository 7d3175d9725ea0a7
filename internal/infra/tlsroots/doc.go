// Package tlsroots loads TLS material for attrmesh.
//
// A Pool collects trusted roots for clients talking to an HTTPS server,
// starting from the system roots plus any PEM bundles given on the command
// line. A Reloader keeps a server key pair current, re-reading it when the
// files change on disk so certificates can be rotated without a restart.
package tlsroots
