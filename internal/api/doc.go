// Package api is the single entry point application code uses to talk to the
// portal.
//
// Client hides which backend is active and whether the device is online. Read
// operations go straight to the active backend. Mutating operations issued in
// live mode while the backend is unreachable are deferred to the offline queue
// and acknowledged with an offline envelope carrying the caller's optimistic
// data; they are replayed in order once connectivity returns and each replay
// result is published as a SyncEvent.
//
// # Ordering
//
// While the queue holds entries, new live mutations are queued behind them
// rather than sent directly, so the backend always sees mutations in the order
// they were issued.
//
// # Views
//
// QueueEntry and StatusSummary are transport-friendly renderings of queue
// state for the CLI. Timestamps use RFC3339.
package api
