// Package logging configures structured logging for Janus.
//
// The package wraps Go's standard log/slog to provide:
//   - JSON, text, and console output formats
//   - Configurable log levels (debug, info, warn, error)
//   - Installation as the process default logger, so components can
//     scope themselves with slog.Default().With("component", ...)
package logging
