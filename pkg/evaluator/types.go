package evaluator

import (
	"time"

	"mercator-hq/janus/pkg/rules"
)

// Context carries the request attributes a policy evaluation runs
// against. Intent and risk labels come from an external classifier and
// are consumed here as opaque strings.
type Context struct {
	// TenantID identifies the tenant the request belongs to.
	TenantID string `json:"tenant_id"`

	// AgentID identifies the agent producing the response.
	AgentID string `json:"agent_id,omitempty"`

	// Intent is the classified intent label.
	Intent string `json:"intent,omitempty"`

	// Risk is the classified risk label.
	Risk string `json:"risk,omitempty"`

	// Department is the requesting department, if known.
	Department string `json:"department,omitempty"`

	// Fields holds any additional context attributes rule conditions
	// may reference.
	Fields map[string]interface{} `json:"fields,omitempty"`
}

// Field resolves a condition field name against the context. Well-known
// fields resolve to the typed attributes; anything else is looked up in
// Fields. The second return reports whether the field exists.
func (c *Context) Field(name string) (interface{}, bool) {
	switch name {
	case "tenant_id":
		return c.TenantID, true
	case "agent_id":
		return c.AgentID, true
	case "intent":
		return c.Intent, true
	case "risk":
		return c.Risk, true
	case "department":
		return c.Department, true
	}
	if c.Fields == nil {
		return nil, false
	}
	v, ok := c.Fields[name]
	return v, ok
}

// Decision is the merged outcome of one policy evaluation.
type Decision struct {
	// Mode is the required human-oversight severity.
	Mode rules.HITLMode `json:"hitl_mode"`

	// ToolsAllowed reports whether the agent may invoke tools.
	ToolsAllowed bool `json:"tools_allowed"`

	// ApprovalRequired reports whether the response must pass the HITL
	// approval workflow before release.
	ApprovalRequired bool `json:"approval_required"`

	// LocalOnly restricts handling to local execution.
	LocalOnly bool `json:"local_only"`

	// TriggeredRuleIDs lists every rule that matched, in merge order
	// (descending effective priority), whether or not it changed the
	// outcome. Kept for provenance.
	TriggeredRuleIDs []string `json:"triggered_rule_ids"`

	// SnapshotVersion is the rule snapshot the decision was computed from.
	SnapshotVersion string `json:"snapshot_version,omitempty"`

	// EvaluationTime is how long the evaluation took.
	EvaluationTime time.Duration `json:"evaluation_time,omitempty"`
}

// DefaultDecision is the decision when no rule matches: inform-level
// oversight, tools allowed, no approval, no locality restriction.
func DefaultDecision() Decision {
	return Decision{
		Mode:         rules.ModeInform,
		ToolsAllowed: true,
	}
}

// Restricted reports whether any restriction beyond the default is set.
func (d *Decision) Restricted() bool {
	return d.Mode.Severity() > rules.ModeInform.Severity() ||
		!d.ToolsAllowed || d.ApprovalRequired || d.LocalOnly
}
