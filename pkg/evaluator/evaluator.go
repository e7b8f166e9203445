package evaluator

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"mercator-hq/janus/pkg/rules"
)

// Evaluator is a pure function over an immutable rule snapshot: it
// holds no mutable state and is safe for unbounded concurrent use.
type Evaluator struct {
	logger *slog.Logger
}

// New creates an evaluator.
func New(logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		logger: logger.With("component", "evaluator"),
	}
}

// match pairs a matched rule with its insertion position for the
// deterministic tie-break.
type match struct {
	rule  *rules.PolicyRule
	index int
}

// Evaluate matches every rule in the snapshot against the context,
// orders the matches by descending effective priority, and folds their
// actions with a monotonic per-field merge:
//
//   - hitl_mode: maximum severity seen
//   - tools_allowed: AND of all values seen
//   - approval_required, local_only: OR of all values seen
//
// Once a higher-priority rule sets a restriction, no lower-priority
// rule can relax it. Equal effective priorities break ties by rule
// insertion order, then by rule ID.
//
// A condition that errors is treated as non-matching for its rule and
// logged as a warning: a malformed condition never widens the decision.
func (e *Evaluator) Evaluate(ctx context.Context, ec *Context, snapshot *rules.Snapshot) Decision {
	start := time.Now()

	decision := DefaultDecision()
	if snapshot != nil {
		decision.SnapshotVersion = snapshot.Version
	}
	if ec == nil || snapshot == nil || snapshot.Len() == 0 {
		decision.EvaluationTime = time.Since(start)
		return decision
	}

	all := snapshot.Rules()
	matches := make([]match, 0, len(all))
	for i := range all {
		r := &all[i]
		if e.ruleMatches(ctx, r, ec) {
			matches = append(matches, match{rule: r, index: i})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		pi, pj := matches[i].rule.EffectivePriority(), matches[j].rule.EffectivePriority()
		if pi != pj {
			return pi > pj
		}
		if matches[i].index != matches[j].index {
			return matches[i].index < matches[j].index
		}
		return matches[i].rule.ID < matches[j].rule.ID
	})

	for _, m := range matches {
		mergeEffect(&decision, m.rule.Action)
		decision.TriggeredRuleIDs = append(decision.TriggeredRuleIDs, m.rule.ID)
	}

	decision.EvaluationTime = time.Since(start)

	e.logger.Debug("evaluation complete",
		"tenant_id", ec.TenantID,
		"matched", len(matches),
		"hitl_mode", decision.Mode,
		"approval_required", decision.ApprovalRequired,
		"duration", decision.EvaluationTime,
	)

	return decision
}

// ruleMatches reports whether all of a rule's conditions hold against
// the context. A rule with no conditions matches everything. A missing
// field or an operator error fails closed: the rule is skipped with a
// warning rather than letting a malformed condition widen the outcome.
func (e *Evaluator) ruleMatches(ctx context.Context, r *rules.PolicyRule, ec *Context) bool {
	for i := range r.Conditions {
		select {
		case <-ctx.Done():
			return false
		default:
		}

		c := &r.Conditions[i]
		actual, ok := ec.Field(c.Field)
		if !ok {
			return false
		}

		matched, err := evaluateOperator(c.Operator, actual, c.Value)
		if err != nil {
			e.logger.Warn("condition evaluation failed, treating rule as non-matching",
				"rule_id", r.ID,
				"field", c.Field,
				"operator", c.Operator,
				"error", err,
			)
			return false
		}
		if !matched {
			return false
		}
	}
	return true
}

// mergeEffect applies one rule action to the decision, field by field,
// preserving monotonicity. Nil effect fields leave the decision alone.
func mergeEffect(d *Decision, effect rules.Effect) {
	if effect.Mode != nil {
		d.Mode = rules.MaxMode(d.Mode, *effect.Mode)
	}
	if effect.ToolsAllowed != nil {
		d.ToolsAllowed = d.ToolsAllowed && *effect.ToolsAllowed
	}
	if effect.ApprovalRequired != nil {
		d.ApprovalRequired = d.ApprovalRequired || *effect.ApprovalRequired
	}
	if effect.LocalOnly != nil {
		d.LocalOnly = d.LocalOnly || *effect.LocalOnly
	}
}
