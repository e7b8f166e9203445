// Package audit provides the tamper-evident, per-tenant audit ledger
// for the Janus governance engine.
//
// Every record carries a SHA-256 hash over its canonicalized content
// and the hash of its predecessor, forming a verifiable chain per
// tenant with a genesis sentinel at sequence 1. Canonicalization sorts
// object keys recursively and rounds floating-point values to a fixed
// precision so logically identical content always hashes identically.
//
// Appends are serialized per tenant; verification walks the full chain
// and reports the exact sequence number of the first break. The two
// operations are independent: corruption discovered by Verify never
// prevents further appends at the chain tail.
package audit
