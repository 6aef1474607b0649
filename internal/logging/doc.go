// Package logging assembles structured slog loggers and formatting helpers used
// across shutter commands.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with the run ID, stage, and source path. Every command run gets a
// dated JSON log file under the configured log directory in addition to the
// console stream, and old files are pruned according to the retention window.
//
// The package also provides a no-op logger for tests and wiring code that
// cannot fail.
package logging
