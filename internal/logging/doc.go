// Package logging assembles structured slog loggers and formatting helpers used
// across portalsync components.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so façade and queue code can
// automatically tag log lines with action IDs, backend modes, and correlation
// IDs. The package also provides a no-op logger for tests and wiring code that
// cannot fail.
package logging
