// Package config loads, normalizes, and validates portalsync configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PORTALSYNC_API_TOKEN. The Config type centralizes every knob the CLI and the
// sync agent need: where the durable store lives, which backend is used by
// default, how the offline queue retries, and how logs are written.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
