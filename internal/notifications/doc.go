// Package notifications pushes offline queue alerts to ntfy.
//
// The run agent uses it to tell the operator when a queued action failed
// permanently and needs manual resolution, when a backlog finished syncing,
// and when the live backend goes away or comes back. With no topic configured
// NewService returns a notifier that does nothing.
package notifications
