// Package logging assembles structured slog loggers and formatting helpers used
// across bpmsync services.
//
// It owns the configurable console/JSON handlers, routes file output through
// size-based rotation, and exposes attribute helpers so components tag log
// lines with the same keys (component, event_type, error_hint, impact). The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits data with the same shape and routing guarantees.
package logging
