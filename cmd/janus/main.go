// Janus is a governance decision engine for agent actions.
//
// It evaluates agent requests against a tiered rule set, routes
// sensitive actions through a human approval workflow, and records
// every decision in a hash-chained audit ledger:
//   - Tiered policy evaluation (constitutional, organization, department)
//   - Human-in-the-loop approvals with SLA-driven escalation
//   - Tamper-evident per-tenant audit chains
//   - Reproducible decision traces
//
// Usage:
//
//	# Start server with default configuration
//	janus run
//
//	# Start with custom configuration file
//	janus run --config /path/to/config.yaml
//
//	# Show version information
//	janus version
//
//	# Validate rule documents
//	janus lint --file rules.yaml
//
//	# Verify a tenant's audit chain
//	janus verify --tenant acme
//
// For complete documentation, see: https://github.com/mercator-hq/janus
package main

func main() {
	Execute()
}
