// Package queue is the durable FIFO of mutating actions issued while the live
// backend was unreachable.
//
// The Queue keeps the full list in memory and mirrors it into a key-value
// Storage under a single key after every mutation: enqueue, in-flight mark,
// attempt bookkeeping and removal. A mutation that cannot be persisted leaves
// the in-memory list unchanged, so memory and disk never diverge.
//
// Drain replays entries strictly in enqueue order against an Executor, one at
// a time. Delivery is at-least-once: an entry that was in flight when the
// process died is pending again after Load and will be sent again, so the
// backend must tolerate a duplicate of the last in-flight action (the action
// ID travels with every replay for that purpose).
//
// Connectivity failures schedule a bounded exponential backoff; entries that
// exhaust their attempts, or that the backend rejects outright, become
// failed_permanent and block the head of the queue until an operator retries
// or removes them.
package queue
