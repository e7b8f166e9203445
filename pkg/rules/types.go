package rules

import "fmt"

// Tier represents the authority classification of a policy rule.
// Higher tiers always outrank lower tiers regardless of the rule's
// own priority, via the tier offset added to the effective priority.
type Tier string

const (
	// TierConstitutional rules bind the whole deployment and cannot be
	// overridden by any lower tier.
	TierConstitutional Tier = "constitutional"

	// TierOrganization rules apply organization-wide.
	TierOrganization Tier = "organization"

	// TierDepartment rules apply to a single department or team.
	TierDepartment Tier = "department"
)

// Tier priority offsets. A rule's effective priority is its own
// priority plus the offset of its tier.
const (
	OffsetConstitutional = 10000
	OffsetOrganization   = 5000
	OffsetDepartment     = 0

	// DepartmentPriorityCeiling is the exclusive upper bound for the raw
	// priority of a department-tier rule. The ceiling guarantees that no
	// department rule can reach organization-tier effective priority.
	DepartmentPriorityCeiling = 5000
)

// Offset returns the tier's priority offset.
func (t Tier) Offset() int {
	switch t {
	case TierConstitutional:
		return OffsetConstitutional
	case TierOrganization:
		return OffsetOrganization
	case TierDepartment:
		return OffsetDepartment
	default:
		return 0
	}
}

// Valid returns true if the tier is one of the known tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierConstitutional, TierOrganization, TierDepartment:
		return true
	}
	return false
}

// Tiers lists all tiers in descending authority order.
func Tiers() []Tier {
	return []Tier{TierConstitutional, TierOrganization, TierDepartment}
}

// HITLMode is the severity of human oversight required for a response.
// Severity is strictly ordered: INFORM < DRAFT < EXECUTE < ESCALATE.
type HITLMode string

const (
	ModeInform   HITLMode = "INFORM"
	ModeDraft    HITLMode = "DRAFT"
	ModeExecute  HITLMode = "EXECUTE"
	ModeEscalate HITLMode = "ESCALATE"
)

// Severity returns the mode's rank in the severity ordering.
// Unknown modes rank below INFORM so they can never win a merge.
func (m HITLMode) Severity() int {
	switch m {
	case ModeInform:
		return 0
	case ModeDraft:
		return 1
	case ModeExecute:
		return 2
	case ModeEscalate:
		return 3
	default:
		return -1
	}
}

// Valid returns true if the mode is one of the known modes.
func (m HITLMode) Valid() bool {
	return m.Severity() >= 0
}

// MaxMode returns the more severe of two modes.
func MaxMode(a, b HITLMode) HITLMode {
	if b.Severity() > a.Severity() {
		return b
	}
	return a
}

// Operator represents a comparison operator in a rule condition.
type Operator string

const (
	OperatorEqual        Operator = "=="
	OperatorNotEqual     Operator = "!="
	OperatorLessThan     Operator = "<"
	OperatorGreaterThan  Operator = ">"
	OperatorLessEqual    Operator = "<="
	OperatorGreaterEqual Operator = ">="
	OperatorContains     Operator = "contains"
	OperatorMatches      Operator = "matches" // Regex match
	OperatorStartsWith   Operator = "starts_with"
	OperatorEndsWith     Operator = "ends_with"
	OperatorIn           Operator = "in"
	OperatorNotIn        Operator = "not_in"
)

// Valid returns true if the operator is one of the known operators.
func (o Operator) Valid() bool {
	switch o {
	case OperatorEqual, OperatorNotEqual, OperatorLessThan, OperatorGreaterThan,
		OperatorLessEqual, OperatorGreaterEqual, OperatorContains, OperatorMatches,
		OperatorStartsWith, OperatorEndsWith, OperatorIn, OperatorNotIn:
		return true
	}
	return false
}

// Condition is a single predicate over an evaluation context field.
// All of a rule's conditions must match for the rule to apply.
type Condition struct {
	// Field is the context field to inspect (e.g. "intent", "risk",
	// "department", or any custom attribute key).
	Field string `yaml:"field" json:"field"`

	// Operator is the comparison operator.
	Operator Operator `yaml:"operator" json:"operator"`

	// Value is the expected value to compare against.
	Value interface{} `yaml:"value" json:"value"`
}

// Effect is a single decision effect a rule action may set. An action
// is a tagged set of optional effects; unset effects leave the merged
// decision untouched. Pointer fields distinguish "unset" from zero.
type Effect struct {
	// Mode raises the decision's HITL mode to at least this severity.
	Mode *HITLMode `yaml:"hitl_mode,omitempty" json:"hitl_mode,omitempty"`

	// ToolsAllowed, when false, revokes tool access. A true value can
	// never re-grant access already revoked by a higher-priority rule.
	ToolsAllowed *bool `yaml:"tools_allowed,omitempty" json:"tools_allowed,omitempty"`

	// ApprovalRequired, when true, forces the request through the HITL
	// approval workflow.
	ApprovalRequired *bool `yaml:"approval_required,omitempty" json:"approval_required,omitempty"`

	// LocalOnly, when true, restricts execution to local-only handling.
	LocalOnly *bool `yaml:"local_only,omitempty" json:"local_only,omitempty"`
}

// Empty returns true if the effect sets nothing.
func (e Effect) Empty() bool {
	return e.Mode == nil && e.ToolsAllowed == nil && e.ApprovalRequired == nil && e.LocalOnly == nil
}

// PolicyRule is a single governance rule inside a snapshot.
type PolicyRule struct {
	// ID uniquely identifies the rule within its snapshot.
	ID string `yaml:"id" json:"id"`

	// Tier is the rule's authority tier.
	Tier Tier `yaml:"tier" json:"tier"`

	// Description is an optional human-readable summary.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Conditions are ANDed predicates over the evaluation context.
	// A rule with no conditions matches every context.
	Conditions []Condition `yaml:"conditions,omitempty" json:"conditions,omitempty"`

	// Action is the partial decision effect applied when the rule matches.
	Action Effect `yaml:"action" json:"action"`

	// Priority is the rule's raw priority within its tier.
	Priority int `yaml:"priority" json:"priority"`

	// Immutable marks rules that must survive snapshot edits unchanged.
	Immutable bool `yaml:"immutable,omitempty" json:"immutable,omitempty"`
}

// EffectivePriority returns the rule's priority including its tier offset.
func (r *PolicyRule) EffectivePriority() int {
	return r.Priority + r.Tier.Offset()
}

func (r *PolicyRule) String() string {
	return fmt.Sprintf("%s (%s, priority=%d, effective=%d)", r.ID, r.Tier, r.Priority, r.EffectivePriority())
}
