// Package output formats attrmesh-cli results as text, JSON or YAML.
package output
