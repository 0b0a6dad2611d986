// Package services defines shared utilities consumed by the backends, the
// offline queue, and the API façade.
//
// Key responsibilities:
//   - Context helpers that stamp action IDs, action types, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that tag failures with a
//     Kind (connectivity, application, storage, exhausted retry, queue full)
//     so callers branch on the class of failure rather than on error identity.
//   - Transport classification that decides whether a raw network error means
//     "backend unreachable".
//
// Use these helpers when wiring new backend calls so queueing and surfacing
// decisions stay uniform across the client.
package services
