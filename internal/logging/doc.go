// Package logging configures log/slog for the telegram-remote binaries.
//
// Handlers write text or JSON to stdout, or to a size-rotated file
// (lumberjack) when a log directory is configured. Components obtain
// tagged sub-loggers via ForComponent. Logging is strictly best-effort:
// nothing in this package returns an error to the caller.
package logging
