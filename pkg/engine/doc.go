// Package engine assembles the governance subsystems into one
// explicitly wired facade: policy evaluation over the live rule
// snapshot, the approval workflow with its scheduled sweeps, the
// per-tenant audit ledger, and decision traces.
//
// Evaluations and trace finalizations append their audit records
// synchronously. Approval lifecycle transitions reach the ledger
// through the event dispatcher: the registry publishes exactly one
// event per committed transition, so scheduler sweeps and reviewer
// calls are recorded uniformly and idempotent retries never produce
// duplicate records.
package engine
