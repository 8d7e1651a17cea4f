// Package logging assembles structured slog loggers and formatting helpers used
// across SAM.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so dispatcher and job code
// automatically tag log lines with session IDs, chat message IDs, and job
// IDs. The package also provides a no-op logger for tests and wiring code
// that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits records with the same keys.
package logging
