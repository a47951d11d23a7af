// Package logging assembles structured slog loggers for blurry.
//
// It owns the console and JSON handlers, routes output to stderr and the
// append-only log file under the configured log directory, and exposes
// context helpers so batch code tags lines with batch IDs, queue entry IDs,
// and stages automatically. A no-op logger is provided for tests.
package logging
