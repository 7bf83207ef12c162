// Package log defines the public logging interface used across stage0 packages.
package log

import (
	"context"
	"log/slog"
)

// Logger is the logging surface handed to the verifier, the staleness oracle
// and the configuration store. Implementations must tolerate being called
// with no attributes.
type Logger interface {
	// Debugf logs a formatted message at the DEBUG level.
	Debugf(format string, args ...interface{})
	// Infof logs a formatted message at the INFO level.
	Infof(format string, args ...interface{})
	// Warnf logs a formatted message at the WARN level.
	Warnf(format string, args ...interface{})
	// Errorf logs a formatted message at the ERROR level. When the last
	// argument is an error, implementations log it structurally.
	Errorf(format string, args ...interface{})

	// Log logs a message at the given level with key-value attributes.
	Log(level slog.Level, msg string, args ...interface{})
	// LogCtx is Log with a context, which may carry a span.
	LogCtx(ctx context.Context, level slog.Level, msg string, args ...interface{})

	// With returns a Logger that adds args to every entry.
	With(args ...interface{}) Logger
	// IsEnabled reports whether level would be emitted.
	IsEnabled(level slog.Level) bool
}
