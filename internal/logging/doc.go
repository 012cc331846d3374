// Package logging assembles the structured slog loggers used by protectimg.
//
// It owns level and format parsing, picks a console or JSON handler, and
// exposes attribute helpers plus a no-op logger for tests and library callers
// that do not configure logging.
package logging
