// Package confloader loads layered configuration with koanf.
//
// Priority (highest to lowest):
//
//  1. Overrides (command-line flags)
//  2. Environment variables (ATTRMESH_ prefix, "__" between path segments)
//  3. YAML configuration file
//  4. Defaults
//
// Watcher reports writes to a configuration file through fsnotify so the
// server can apply reloadable settings without a restart.
package confloader
