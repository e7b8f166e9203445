// Package sweep runs the recurring maintenance passes over the
// approval queue: the SLA sweep, which escalates requests pending
// longer than their mode's breach threshold, and the expiration sweep,
// which closes requests past their deadline. Sweeps run on a cron
// schedule or on demand.
package sweep
