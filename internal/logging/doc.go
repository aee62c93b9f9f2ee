// Package logging assembles structured slog loggers and formatting helpers used
// across bracketeer.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so scanner workers and the
// organizer tag their lines with the run id, directory, and stage. The package
// also provides a no-op logger for tests and wiring code that cannot fail.
package logging
