// Package rules provides the versioned policy rule store for the Janus
// governance engine.
//
// Rules are grouped by authority tier (constitutional > organization >
// department). A rule's effective priority is its own priority plus a
// fixed tier offset, so a higher tier always outranks a lower one no
// matter how the raw priorities are chosen. Department-tier priorities
// are validated against a hard ceiling at load time to keep that
// guarantee airtight.
//
// Snapshots are immutable: the Store swaps whole snapshots atomically
// (copy-on-write), so concurrent evaluations always see one consistent
// rule set. The Source interface abstracts persistence; FileSource
// reads a single tier-partitioned YAML document and Watcher hot-reloads
// it on change, keeping the last good snapshot when a reload fails.
package rules
