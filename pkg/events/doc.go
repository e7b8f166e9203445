// Package events decouples workflow notifications from workflow state.
// The registry publishes lifecycle events into a buffered channel; a
// background worker delivers them to subscribed consumers. Publishing
// never blocks, and delivery failure never reverses a transition.
package events
