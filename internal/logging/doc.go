// Package logging provides slog-based loggers with console and JSON handlers
// plus attribute helpers shared across the repository.
package logging
