package rules

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Snapshot is an immutable, versioned view of all policy rules grouped
// by tier. Evaluations hold a snapshot for their full duration, so a
// concurrent snapshot swap can never expose a partially updated rule set.
type Snapshot struct {
	// Version identifies the snapshot ("" for ad hoc snapshots built in
	// tests; file sources use the document version field).
	Version string

	// LoadedAt is when the snapshot was constructed.
	LoadedAt time.Time

	// rules holds every rule across all tiers in document insertion
	// order. Insertion order is the first-level tie-break for rules
	// with equal effective priority.
	rules []PolicyRule

	// byID indexes rules for provenance lookups.
	byID map[string]*PolicyRule
}

// NewSnapshot validates the given rules and builds an immutable
// snapshot. Rule order is preserved as insertion order. Validation is
// all-or-nothing: any invalid rule rejects the whole snapshot.
func NewSnapshot(version string, ruleset []PolicyRule) (*Snapshot, error) {
	if err := ValidateRules(ruleset); err != nil {
		return nil, err
	}

	s := &Snapshot{
		Version:  version,
		LoadedAt: time.Now().UTC(),
		rules:    make([]PolicyRule, len(ruleset)),
		byID:     make(map[string]*PolicyRule, len(ruleset)),
	}
	copy(s.rules, ruleset)
	for i := range s.rules {
		s.byID[s.rules[i].ID] = &s.rules[i]
	}
	return s, nil
}

// Rules returns all rules in insertion order. Callers must not mutate
// the returned slice.
func (s *Snapshot) Rules() []PolicyRule {
	return s.rules
}

// Rule returns the rule with the given ID, or nil if absent.
func (s *Snapshot) Rule(id string) *PolicyRule {
	return s.byID[id]
}

// Len returns the number of rules in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.rules)
}

// TierRules returns the rules belonging to the given tier, preserving
// insertion order.
func (s *Snapshot) TierRules(tier Tier) []PolicyRule {
	var out []PolicyRule
	for _, r := range s.rules {
		if r.Tier == tier {
			out = append(out, r)
		}
	}
	return out
}

// Store holds the current rule snapshot and swaps it atomically on
// reload. Readers always observe one consistent snapshot; updates are
// copy-on-write replacements, never in-place edits.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore creates a store seeded with the given snapshot.
func NewStore(snapshot *Snapshot) *Store {
	s := &Store{}
	s.current.Store(snapshot)
	return s
}

// Snapshot returns the current snapshot.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Replace swaps in a new snapshot. In-flight evaluations keep the
// snapshot they started with.
func (s *Store) Replace(snapshot *Snapshot) error {
	if snapshot == nil {
		return fmt.Errorf("cannot replace with nil snapshot")
	}
	s.current.Store(snapshot)
	return nil
}

// Version returns the current snapshot's version.
func (s *Store) Version() string {
	return s.Snapshot().Version
}
