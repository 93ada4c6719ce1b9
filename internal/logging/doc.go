// Package logging assembles structured slog loggers and formatting helpers used
// across capgate.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so stage code can tag log lines
// with run IDs, stages, and track labels. A no-op logger is provided for tests
// and library callers that do not supply one.
package logging
