// Package logger provides structured logging for attrmesh.
//
//   - logger.go: slog-backed Logger, shared level control, adapters for the
//     slog default and *log.Logger consumers
//   - context.go: request ID propagation; loggers bound with WithContext
//     add it to every entry
//   - redact.go: masking of session identifiers and secrets
//
// Output is JSON by default; "text" selects the slog text handler.
package logger
