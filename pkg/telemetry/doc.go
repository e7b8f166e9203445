// Package telemetry provides observability for Janus.
//
// # Components
//
//   - logging: structured logging built on log/slog
//   - metrics: Prometheus metrics collection
//
// Telemetry is wired explicitly at startup: the logging package
// installs the process default logger, and the metrics collector and
// its handler are injected into the engine and admin server.
package telemetry
