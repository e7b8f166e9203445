// Package metrics provides Prometheus metrics collection for Janus.
//
// The collector covers all four subsystems under the "janus"
// namespace:
//
//   - Evaluation metrics: evaluation count by resulting mode, duration
//     histogram, matched-rule histogram
//   - Approval metrics: lifecycle transition counters, open-approvals
//     gauge, escalation counters by level
//   - Audit metrics: append counters by event type, verification
//     counters by result
//   - Trace metrics: finalization counter
//
// Usage:
//
//	collector := metrics.NewCollector(true, nil)
//	collector.RecordEvaluation("EXECUTE", 3, 250*time.Microsecond)
//	http.Handle("/metrics", collector.Handler())
package metrics
