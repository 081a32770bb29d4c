// Package logger configures the process-wide log/slog JSON logger. Its level
// is held in a shared LevelVar so a config reload can raise or lower it
// without rebuilding loggers, and request-scoped loggers travel in a
// context.Context.
package logger
