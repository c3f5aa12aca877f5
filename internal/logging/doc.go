// Package logging assembles structured slog loggers and formatting helpers used
// across flightstrip commands.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so inference code can tag log
// lines with survey blocks, pipeline stages, and run identifiers. The package
// also provides a no-op logger for tests and wiring code that cannot fail.
package logging
