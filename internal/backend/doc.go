// Package backend holds the interchangeable portal backends and the selector
// that routes each request to the active one.
//
// Both backends satisfy the same Backend contract over a small operation
// catalog. The live backend speaks JSON over HTTP to the portal service and
// classifies every failure as either unreachable (connectivity) or rejected
// (application). The demo backend serves seeded in-memory data and never
// needs the network. The Selector persists the active mode in the durable
// store so it survives restarts.
package backend
