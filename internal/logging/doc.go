// Package logging assembles structured slog loggers and formatting helpers used
// across slyce.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so processing code can tag log
// lines with run IDs, tile indexes, and stages. Per-run log files are produced
// by teeing the base logger into a JSON handler stamped with the run ID. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
package logging
