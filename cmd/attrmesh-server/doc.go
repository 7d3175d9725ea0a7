// Command attrmesh-server serves the request attribute API.
//
// Configuration is read from an optional YAML file, ATTRMESH_* environment
// variables and --set key=value overrides, in increasing priority. Editing
// the file while the server runs reapplies log.level.
package main
