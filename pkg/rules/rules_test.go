package rules

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func modePtr(m HITLMode) *HITLMode { return &m }
func boolPtr(b bool) *bool         { return &b }

func TestTierOffsets(t *testing.T) {
	tests := []struct {
		tier   Tier
		offset int
	}{
		{TierConstitutional, 10000},
		{TierOrganization, 5000},
		{TierDepartment, 0},
	}

	for _, tt := range tests {
		if got := tt.tier.Offset(); got != tt.offset {
			t.Errorf("Offset(%s) = %d, want %d", tt.tier, got, tt.offset)
		}
	}
}

func TestEffectivePriorityRespectsTier(t *testing.T) {
	// A department rule at the ceiling minus one must still rank below
	// an organization rule with priority zero.
	dept := PolicyRule{ID: "d", Tier: TierDepartment, Priority: 4999}
	org := PolicyRule{ID: "o", Tier: TierOrganization, Priority: 0}
	constitutional := PolicyRule{ID: "c", Tier: TierConstitutional, Priority: 0}

	if dept.EffectivePriority() >= org.EffectivePriority() {
		t.Errorf("department effective %d should be below organization %d",
			dept.EffectivePriority(), org.EffectivePriority())
	}
	if org.EffectivePriority() >= constitutional.EffectivePriority() {
		t.Errorf("organization effective %d should be below constitutional %d",
			org.EffectivePriority(), constitutional.EffectivePriority())
	}
}

func TestHITLModeSeverityOrdering(t *testing.T) {
	ordered := []HITLMode{ModeInform, ModeDraft, ModeExecute, ModeEscalate}
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1].Severity() >= ordered[i].Severity() {
			t.Errorf("expected %s < %s in severity", ordered[i-1], ordered[i])
		}
	}

	if got := MaxMode(ModeDraft, ModeEscalate); got != ModeEscalate {
		t.Errorf("MaxMode(DRAFT, ESCALATE) = %s, want ESCALATE", got)
	}
	if got := MaxMode(ModeExecute, ModeInform); got != ModeExecute {
		t.Errorf("MaxMode(EXECUTE, INFORM) = %s, want EXECUTE", got)
	}
}

func TestValidateRules(t *testing.T) {
	valid := []PolicyRule{
		{ID: "const-1", Tier: TierConstitutional, Priority: 100},
		{ID: "dept-1", Tier: TierDepartment, Priority: 4999},
	}

	tests := []struct {
		name    string
		ruleset []PolicyRule
		wantErr bool
	}{
		{
			name:    "valid set",
			ruleset: valid,
			wantErr: false,
		},
		{
			name: "department priority at ceiling",
			ruleset: []PolicyRule{
				{ID: "dept-hot", Tier: TierDepartment, Priority: 5000},
			},
			wantErr: true,
		},
		{
			name: "duplicate ids",
			ruleset: []PolicyRule{
				{ID: "dup", Tier: TierOrganization, Priority: 1},
				{ID: "dup", Tier: TierOrganization, Priority: 2},
			},
			wantErr: true,
		},
		{
			name: "empty id",
			ruleset: []PolicyRule{
				{ID: "", Tier: TierOrganization, Priority: 1},
			},
			wantErr: true,
		},
		{
			name: "unknown tier",
			ruleset: []PolicyRule{
				{ID: "x", Tier: Tier("galactic"), Priority: 1},
			},
			wantErr: true,
		},
		{
			name: "unknown operator",
			ruleset: []PolicyRule{
				{ID: "x", Tier: TierOrganization, Priority: 1,
					Conditions: []Condition{{Field: "intent", Operator: Operator("~="), Value: "a"}}},
			},
			wantErr: true,
		},
		{
			name: "unknown hitl mode in action",
			ruleset: []PolicyRule{
				{ID: "x", Tier: TierOrganization, Priority: 1,
					Action: Effect{Mode: modePtr(HITLMode("PANIC"))}},
			},
			wantErr: true,
		},
		{
			name: "negative priority",
			ruleset: []PolicyRule{
				{ID: "x", Tier: TierOrganization, Priority: -1},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRules(tt.ruleset)
			if tt.wantErr && err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
			if tt.wantErr {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Errorf("expected *ValidationError, got %T", err)
				}
			}
		})
	}
}

func TestStoreReplaceIsAtomic(t *testing.T) {
	first, err := NewSnapshot("v1", []PolicyRule{
		{ID: "a", Tier: TierOrganization, Priority: 1},
	})
	if err != nil {
		t.Fatalf("NewSnapshot failed: %v", err)
	}

	store := NewStore(first)

	held := store.Snapshot()

	second, err := NewSnapshot("v2", []PolicyRule{
		{ID: "b", Tier: TierOrganization, Priority: 2},
	})
	if err != nil {
		t.Fatalf("NewSnapshot failed: %v", err)
	}
	if err := store.Replace(second); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	// The held snapshot is unchanged by the swap.
	if held.Version != "v1" || held.Rule("a") == nil {
		t.Error("in-flight snapshot was mutated by Replace")
	}
	if store.Version() != "v2" {
		t.Errorf("store version = %q, want v2", store.Version())
	}
	if store.Snapshot().Rule("b") == nil {
		t.Error("new snapshot not visible after Replace")
	}
}

func TestFileSourceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")

	snapshot, err := NewSnapshot("2026-01", []PolicyRule{
		{ID: "const-block", Tier: TierConstitutional, Priority: 100,
			Conditions: []Condition{{Field: "risk", Operator: OperatorEqual, Value: "high"}},
			Action:     Effect{Mode: modePtr(ModeEscalate), ApprovalRequired: boolPtr(true)}},
		{ID: "org-tools", Tier: TierOrganization, Priority: 50,
			Action: Effect{ToolsAllowed: boolPtr(false)}},
		{ID: "dept-draft", Tier: TierDepartment, Priority: 4000,
			Action: Effect{Mode: modePtr(ModeDraft)}},
	})
	if err != nil {
		t.Fatalf("NewSnapshot failed: %v", err)
	}

	source := NewFileSource(path)
	if err := source.SaveSnapshot(snapshot); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	loaded, err := source.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}

	if loaded.Version != "2026-01" {
		t.Errorf("version = %q, want 2026-01", loaded.Version)
	}
	if loaded.Len() != 3 {
		t.Fatalf("rule count = %d, want 3", loaded.Len())
	}

	// Tier is reassigned from the document partition.
	if r := loaded.Rule("dept-draft"); r == nil || r.Tier != TierDepartment {
		t.Error("department rule lost its tier on round trip")
	}
	if r := loaded.Rule("const-block"); r == nil || r.Action.Mode == nil || *r.Action.Mode != ModeEscalate {
		t.Error("constitutional rule lost its action mode on round trip")
	}

	// Insertion order follows tier authority, then document order.
	ruleOrder := loaded.Rules()
	if ruleOrder[0].ID != "const-block" || ruleOrder[2].ID != "dept-draft" {
		t.Errorf("unexpected insertion order: %s, %s, %s",
			ruleOrder[0].ID, ruleOrder[1].ID, ruleOrder[2].ID)
	}
}

func TestFileSourceRejectsInvalidDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")

	doc := `version: bad
tiers:
  department:
    - id: too-hot
      priority: 9000
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write document: %v", err)
	}

	source := NewFileSource(path)
	if _, err := source.LoadSnapshot(); err == nil {
		t.Fatal("expected validation error for over-ceiling department rule")
	}
}
