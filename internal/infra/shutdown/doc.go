// Package shutdown coordinates graceful process shutdown.
//
// Components register named hooks as they start; on SIGINT, SIGTERM or
// parent context cancellation the hooks run in reverse registration order
// under a shared timeout.
package shutdown
