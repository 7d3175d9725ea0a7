// Package buildinfo exposes version information stamped at build time.
//
//	go build -ldflags "-X github.com/yndnr/attrmesh/internal/infra/buildinfo.Version=v1.0.0"
//
// Values that were not stamped fall back to the module build info embedded
// by the Go toolchain.
package buildinfo
