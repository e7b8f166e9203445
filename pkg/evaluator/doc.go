// Package evaluator implements the Janus policy evaluator.
//
// Evaluation is a pure function over an immutable rule snapshot: every
// rule whose conditions match the request context contributes its
// action, folded in descending effective-priority order with a
// monotonic per-field merge (mode = max severity, tools_allowed = AND,
// approval_required / local_only = OR). Provenance is complete: every
// matched rule ID is recorded, not just the ones that changed the
// outcome.
//
// Ties on effective priority are broken deterministically by rule
// insertion order, then by rule ID. Condition errors fail closed: the
// rule is treated as non-matching and a warning is logged, so a
// malformed condition can never make the decision more permissive.
package evaluator
