// Package logging assembles structured slog loggers and formatting helpers
// used across shelf components.
//
// It centralizes level and output plumbing, standardizes field names, and
// exposes context-aware helpers so request handlers and tool invocations
// automatically tag log lines with correlation IDs and cache keys. The
// package also provides a no-op logger for tests and wiring code that
// cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits data with the same shape.
package logging
