package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func gatherNames(t *testing.T, registry *prometheus.Registry) map[string]bool {
	t.Helper()
	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	return names
}

func TestCollectorRecords(t *testing.T) {
	collector := NewCollector(true, nil)

	collector.RecordEvaluation("EXECUTE", 3, 250*time.Microsecond)
	collector.RecordApprovalEvent("created", "EXECUTE")
	collector.RecordApprovalEvent("approved", "EXECUTE")
	collector.SetOpenApprovals(4)
	collector.RecordEscalation("L3")
	collector.RecordAuditAppend("decision_evaluated")
	collector.RecordAuditVerification(true)
	collector.RecordAuditVerification(false)
	collector.RecordTraceFinalized()

	names := gatherNames(t, collector.Registry())
	for _, want := range []string{
		"janus_evaluations_total",
		"janus_evaluation_duration_seconds",
		"janus_evaluation_matched_rules",
		"janus_approval_events_total",
		"janus_approvals_open",
		"janus_escalations_total",
		"janus_audit_appends_total",
		"janus_audit_verifications_total",
		"janus_traces_finalized_total",
	} {
		if !names[want] {
			t.Errorf("metric %s not registered", want)
		}
	}
}

func TestDisabledCollectorIsNoOp(t *testing.T) {
	collector := NewCollector(false, nil)

	collector.RecordEvaluation("EXECUTE", 3, time.Millisecond)
	collector.RecordApprovalEvent("created", "EXECUTE")
	collector.RecordTraceFinalized()

	families, err := collector.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() != nil && m.GetCounter().GetValue() != 0 {
				t.Errorf("disabled collector recorded %s", mf.GetName())
			}
		}
	}
}

func TestHandlerServesExposition(t *testing.T) {
	collector := NewCollector(true, nil)
	collector.RecordEvaluation("INFORM", 0, time.Microsecond)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	collector.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "janus_evaluations_total") {
		t.Fatal("exposition missing janus_evaluations_total")
	}
}
