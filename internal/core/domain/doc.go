// Package domain defines the core domain models for attrmesh.
//
// Domain models carry no IO dependencies. This package contains:
//
//   - Scope and Partition: where an attribute lives
//   - Session: container session with portlet and application partitions
//   - Errors: coded domain errors shared by every layer
package domain
