package rules

import "fmt"

// ValidateRules performs load-time validation over a full rule set.
// It is all-or-nothing: the first invalid rule rejects the set.
//
// Validated invariants:
//   - rule IDs are non-empty and unique within the set
//   - tiers and condition operators are known
//   - department-tier priorities stay below DepartmentPriorityCeiling,
//     so no department rule can reach organization-tier effective
//     priority (hard validation, not convention)
//   - priorities are non-negative
func ValidateRules(ruleset []PolicyRule) error {
	seen := make(map[string]bool, len(ruleset))

	for i := range ruleset {
		r := &ruleset[i]

		if r.ID == "" {
			return &ValidationError{Reason: fmt.Sprintf("rule at index %d has empty id", i)}
		}
		if seen[r.ID] {
			return &ValidationError{RuleID: r.ID, Reason: "duplicate rule id"}
		}
		seen[r.ID] = true

		if !r.Tier.Valid() {
			return &ValidationError{RuleID: r.ID, Reason: fmt.Sprintf("unknown tier %q", r.Tier)}
		}
		if r.Priority < 0 {
			return &ValidationError{RuleID: r.ID, Reason: fmt.Sprintf("negative priority %d", r.Priority)}
		}
		if r.Tier == TierDepartment && r.Priority >= DepartmentPriorityCeiling {
			return &ValidationError{
				RuleID: r.ID,
				Reason: fmt.Sprintf("department-tier priority %d exceeds ceiling %d", r.Priority, DepartmentPriorityCeiling),
			}
		}

		for j, c := range r.Conditions {
			if c.Field == "" {
				return &ValidationError{RuleID: r.ID, Reason: fmt.Sprintf("condition %d has empty field", j)}
			}
			if !c.Operator.Valid() {
				return &ValidationError{RuleID: r.ID, Reason: fmt.Sprintf("condition %d has unknown operator %q", j, c.Operator)}
			}
		}

		if m := r.Action.Mode; m != nil && !m.Valid() {
			return &ValidationError{RuleID: r.ID, Reason: fmt.Sprintf("unknown hitl_mode %q", *m)}
		}
	}

	return nil
}
