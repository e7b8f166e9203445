// Package trace records governance computations as deterministically
// hashable decision traces. A finalized trace is immutable; its hash
// covers inputs, decision, resolution, and outcome but never
// timestamps, so identical logical computations always produce an
// identical trace hash.
package trace
