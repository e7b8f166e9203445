package evaluator

import (
	"context"
	"testing"

	"mercator-hq/janus/pkg/rules"
)

func modePtr(m rules.HITLMode) *rules.HITLMode { return &m }
func boolPtr(b bool) *bool                     { return &b }

func mustSnapshot(t *testing.T, ruleset []rules.PolicyRule) *rules.Snapshot {
	t.Helper()
	s, err := rules.NewSnapshot("test", ruleset)
	if err != nil {
		t.Fatalf("NewSnapshot failed: %v", err)
	}
	return s
}

func TestEvaluateNoMatchReturnsDefault(t *testing.T) {
	snapshot := mustSnapshot(t, []rules.PolicyRule{
		{ID: "r1", Tier: rules.TierOrganization, Priority: 10,
			Conditions: []rules.Condition{{Field: "intent", Operator: rules.OperatorEqual, Value: "refund"}},
			Action:     rules.Effect{Mode: modePtr(rules.ModeExecute)}},
	})

	d := New(nil).Evaluate(context.Background(), &Context{TenantID: "t1", Intent: "greeting"}, snapshot)

	if d.Mode != rules.ModeInform {
		t.Errorf("mode = %s, want INFORM", d.Mode)
	}
	if !d.ToolsAllowed || d.ApprovalRequired || d.LocalOnly {
		t.Error("default decision should allow tools and require nothing")
	}
	if len(d.TriggeredRuleIDs) != 0 {
		t.Errorf("triggered rules = %v, want none", d.TriggeredRuleIDs)
	}
}

func TestEvaluateTierDominance(t *testing.T) {
	// A constitutional ESCALATE rule (effective 10100) and a department
	// DRAFT rule (effective 4000) both match: the merge lands on ESCALATE.
	snapshot := mustSnapshot(t, []rules.PolicyRule{
		{ID: "const-escalate", Tier: rules.TierConstitutional, Priority: 100,
			Conditions: []rules.Condition{{Field: "risk", Operator: rules.OperatorEqual, Value: "high"}},
			Action:     rules.Effect{Mode: modePtr(rules.ModeEscalate)}},
		{ID: "dept-draft", Tier: rules.TierDepartment, Priority: 4000,
			Conditions: []rules.Condition{{Field: "risk", Operator: rules.OperatorEqual, Value: "high"}},
			Action:     rules.Effect{Mode: modePtr(rules.ModeDraft)}},
	})

	d := New(nil).Evaluate(context.Background(), &Context{TenantID: "t1", Risk: "high"}, snapshot)

	if d.Mode != rules.ModeEscalate {
		t.Errorf("mode = %s, want ESCALATE", d.Mode)
	}
	if len(d.TriggeredRuleIDs) != 2 {
		t.Fatalf("triggered rules = %v, want both", d.TriggeredRuleIDs)
	}
	// Provenance is ordered by descending effective priority.
	if d.TriggeredRuleIDs[0] != "const-escalate" || d.TriggeredRuleIDs[1] != "dept-draft" {
		t.Errorf("provenance order = %v", d.TriggeredRuleIDs)
	}
}

func TestEvaluateMonotonicMerge(t *testing.T) {
	base := []rules.PolicyRule{
		{ID: "org-restrict", Tier: rules.TierOrganization, Priority: 100,
			Action: rules.Effect{
				Mode:             modePtr(rules.ModeExecute),
				ToolsAllowed:     boolPtr(false),
				ApprovalRequired: boolPtr(true),
			}},
	}
	// A lower-priority rule that tries to relax every field.
	relaxer := rules.PolicyRule{
		ID: "dept-relax", Tier: rules.TierDepartment, Priority: 10,
		Action: rules.Effect{
			Mode:             modePtr(rules.ModeInform),
			ToolsAllowed:     boolPtr(true),
			ApprovalRequired: boolPtr(false),
		},
	}

	ec := &Context{TenantID: "t1"}
	ev := New(nil)

	before := ev.Evaluate(context.Background(), ec, mustSnapshot(t, base))
	after := ev.Evaluate(context.Background(), ec, mustSnapshot(t, append(base, relaxer)))

	if after.Mode.Severity() < before.Mode.Severity() {
		t.Errorf("mode relaxed from %s to %s", before.Mode, after.Mode)
	}
	if before.ToolsAllowed == false && after.ToolsAllowed == true {
		t.Error("tools_allowed=false was relaxed by a lower-priority rule")
	}
	if before.ApprovalRequired && !after.ApprovalRequired {
		t.Error("approval_required=true was relaxed by a lower-priority rule")
	}
	if len(after.TriggeredRuleIDs) != 2 {
		t.Errorf("provenance should include the relaxing rule: %v", after.TriggeredRuleIDs)
	}
}

func TestEvaluateTieBreakDeterministic(t *testing.T) {
	// Two rules with identical effective priority: insertion order, then
	// ID, decides the merge order.
	snapshot := mustSnapshot(t, []rules.PolicyRule{
		{ID: "z-second", Tier: rules.TierOrganization, Priority: 50},
		{ID: "a-first", Tier: rules.TierOrganization, Priority: 50},
	})

	ev := New(nil)
	ec := &Context{TenantID: "t1"}

	first := ev.Evaluate(context.Background(), ec, snapshot)
	for i := 0; i < 20; i++ {
		again := ev.Evaluate(context.Background(), ec, snapshot)
		if len(again.TriggeredRuleIDs) != 2 ||
			again.TriggeredRuleIDs[0] != first.TriggeredRuleIDs[0] ||
			again.TriggeredRuleIDs[1] != first.TriggeredRuleIDs[1] {
			t.Fatalf("non-deterministic provenance: %v vs %v", again.TriggeredRuleIDs, first.TriggeredRuleIDs)
		}
	}

	// Insertion order wins over lexicographic ID.
	if first.TriggeredRuleIDs[0] != "z-second" {
		t.Errorf("tie-break order = %v, want insertion order first", first.TriggeredRuleIDs)
	}
}

func TestEvaluateMalformedConditionFailsClosed(t *testing.T) {
	snapshot := mustSnapshot(t, []rules.PolicyRule{
		// Invalid regex: the rule must be skipped, not error out or match.
		{ID: "bad-regex", Tier: rules.TierOrganization, Priority: 90,
			Conditions: []rules.Condition{{Field: "intent", Operator: rules.OperatorMatches, Value: "("}},
			Action:     rules.Effect{ToolsAllowed: boolPtr(true)}},
		{ID: "restrict", Tier: rules.TierDepartment, Priority: 10,
			Action: rules.Effect{ToolsAllowed: boolPtr(false), ApprovalRequired: boolPtr(true)}},
	})

	d := New(nil).Evaluate(context.Background(), &Context{TenantID: "t1", Intent: "anything"}, snapshot)

	if d.ToolsAllowed {
		t.Error("malformed condition must not relax the decision")
	}
	if !d.ApprovalRequired {
		t.Error("surviving rule should still apply")
	}
	if len(d.TriggeredRuleIDs) != 1 || d.TriggeredRuleIDs[0] != "restrict" {
		t.Errorf("provenance = %v, want only the restrict rule", d.TriggeredRuleIDs)
	}
}

func TestEvaluateMissingFieldIsNonMatch(t *testing.T) {
	snapshot := mustSnapshot(t, []rules.PolicyRule{
		{ID: "needs-field", Tier: rules.TierOrganization, Priority: 10,
			Conditions: []rules.Condition{{Field: "region", Operator: rules.OperatorEqual, Value: "eu"}},
			Action:     rules.Effect{LocalOnly: boolPtr(true)}},
	})

	d := New(nil).Evaluate(context.Background(), &Context{TenantID: "t1"}, snapshot)
	if d.LocalOnly {
		t.Error("rule over a missing field must not match")
	}
}

func TestOperators(t *testing.T) {
	tests := []struct {
		name     string
		op       rules.Operator
		actual   interface{}
		expected interface{}
		want     bool
		wantErr  bool
	}{
		{"equal strings", rules.OperatorEqual, "high", "high", true, false},
		{"equal int float", rules.OperatorEqual, 3, 3.0, true, false},
		{"not equal", rules.OperatorNotEqual, "a", "b", true, false},
		{"less than", rules.OperatorLessThan, 2, 5, true, false},
		{"greater equal", rules.OperatorGreaterEqual, 5.0, 5, true, false},
		{"numeric on string number", rules.OperatorGreaterThan, "7", 5, true, false},
		{"contains substring", rules.OperatorContains, "wire transfer", "transfer", true, false},
		{"contains slice element", rules.OperatorContains, []interface{}{"a", "b"}, "b", true, false},
		{"matches", rules.OperatorMatches, "risk-9", `^risk-\d$`, true, false},
		{"matches invalid pattern", rules.OperatorMatches, "x", "(", false, true},
		{"starts with", rules.OperatorStartsWith, "sap.invoice.create", "sap.", true, false},
		{"ends with", rules.OperatorEndsWith, "report.pdf", ".pdf", true, false},
		{"in list", rules.OperatorIn, "eu", []interface{}{"us", "eu"}, true, false},
		{"not in list", rules.OperatorNotIn, "apac", []interface{}{"us", "eu"}, true, false},
		{"in non-list", rules.OperatorIn, "a", "not-a-list", false, true},
		{"numeric on non-number", rules.OperatorLessThan, "abc", 5, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evaluateOperator(tt.op, tt.actual, tt.expected)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateConcurrent(t *testing.T) {
	snapshot := mustSnapshot(t, []rules.PolicyRule{
		{ID: "r1", Tier: rules.TierConstitutional, Priority: 100,
			Conditions: []rules.Condition{{Field: "risk", Operator: rules.OperatorEqual, Value: "high"}},
			Action:     rules.Effect{Mode: modePtr(rules.ModeEscalate), ApprovalRequired: boolPtr(true)}},
	})

	ev := New(nil)
	done := make(chan Decision, 64)
	for i := 0; i < 64; i++ {
		go func() {
			done <- ev.Evaluate(context.Background(), &Context{TenantID: "t1", Risk: "high"}, snapshot)
		}()
	}
	for i := 0; i < 64; i++ {
		d := <-done
		if d.Mode != rules.ModeEscalate || !d.ApprovalRequired {
			t.Fatalf("concurrent evaluation diverged: %+v", d)
		}
	}
}
