// Package config provides attrmesh-cli configuration.
//
// Settings come from ~/.attrmesh/cli.yaml and ATTRMESH_CLI_* environment
// variables; command-line flags override both.
package config
