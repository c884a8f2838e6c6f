// Package logging assembles structured slog loggers for ffbuild.
//
// It owns the console and JSON handlers, mirrors every record into a
// lumberjack-rotated JSON log file, and exposes context helpers so pipeline
// code tags lines with the run ID, ABI, and build step automatically. A no-op
// logger is provided for tests and wiring code that cannot fail.
package logging
