// Package server provides the admin HTTP server for Janus.
//
// This package ties together the governance engine components behind a
// JSON API and provides server lifecycle management including start,
// shutdown, and health checks.
//
// # Basic Usage
//
// Creating and starting a server:
//
//	import (
//	    "context"
//	    "mercator-hq/janus/pkg/config"
//	    "mercator-hq/janus/pkg/engine"
//	    "mercator-hq/janus/pkg/server"
//	)
//
//	cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	eng := engine.New(engine.Options{ /* ... */ })
//
//	srv := server.NewServer(&cfg.Server, &cfg.Telemetry.Metrics, eng, collector)
//	if err := srv.Start(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// The server handles graceful shutdown automatically when receiving SIGTERM
// or SIGINT:
//
//	if err := srv.Shutdown(context.Background()); err != nil {
//	    log.Error("shutdown error", "error", err)
//	}
//
// The shutdown process:
//  1. Stops accepting new connections
//  2. Waits for active connections to complete (up to shutdown timeout)
//  3. Forces connection closure if timeout exceeded
//
// # Routes
//
// The server exposes the following HTTP endpoints:
//
//   - POST /v1/evaluate - Evaluate a request context against the rule set
//   - POST /v1/approvals - Open an approval request
//   - GET /v1/approvals - List approval requests (status/mode filters)
//   - GET /v1/approvals/{id} - Fetch one approval request
//   - POST /v1/approvals/{id}/approve - Approve a pending request
//   - POST /v1/approvals/{id}/reject - Reject a pending request
//   - POST /v1/approvals/{id}/escalate - Escalate a pending request
//   - POST /v1/approvals/{id}/cancel - Cancel a pending request
//   - GET /v1/audit/{tenant}/verify - Verify the tenant's audit chain
//   - GET /healthz - Liveness probe (always returns 200)
//   - GET /metrics - Prometheus exposition (when metrics are enabled)
//
// Workflow errors map to HTTP statuses: unknown ids return 404 and
// resolution attempts on terminal requests return 409.
//
// # Thread Safety
//
// All server operations are thread-safe and can be called concurrently from
// multiple goroutines.
package server
