// Package kvstore is the durable local key-value store backing portalsync.
//
// Values are opaque byte slices kept in a single SQLite table so that every
// write is atomic and survives process restarts. The offline queue serializes
// its whole list under one key and the backend selector persists the active
// mode under another. Writes retry briefly when SQLite reports the database is
// busy; every failure is tagged as a storage error so callers can surface it
// distinctly.
//
// Schema changes bump the version in schema.go; users delete the database to
// adopt the new schema.
package kvstore
