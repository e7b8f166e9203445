// Package hitl implements the human-in-the-loop approval workflow:
// a persistent queue of approval requests with reviewer assignment,
// SLA-driven escalation through reviewer levels, expiration, and
// idempotent resolution.
//
// The Registry is the only writer. Every state transition takes a
// per-request lock, so a reviewer decision racing an escalation sweep
// resolves to exactly one winner; the loser observes the committed
// state instead of failing.
package hitl
