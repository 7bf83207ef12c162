package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	stage0errors "github.com/gxo-labs/stage0/pkg/stage0/v1/errors"
	stage0log "github.com/gxo-labs/stage0/pkg/stage0/v1/log"
	"go.opentelemetry.io/otel/trace"
)

// Default log level if not specified or invalid.
const defaultLevel = slog.LevelInfo

// parseLogLevel converts common log level strings (case-insensitive) to slog.Level values.
func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return defaultLevel
	}
}

// defaultLogger implements stage0log.Logger on top of slog.
type defaultLogger struct {
	*slog.Logger
}

var _ stage0log.Logger = (*defaultLogger)(nil)

// NewLogger creates a Logger with the given level, output format ("text" or
// "json") and writer. A nil writer means os.Stderr.
func NewLogger(levelStr string, formatStr string, writer io.Writer) stage0log.Logger {
	level := parseLogLevel(levelStr)
	if writer == nil {
		writer = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevelAttribute,
	}

	var baseHandler slog.Handler
	switch strings.ToLower(formatStr) {
	case "json":
		baseHandler = slog.NewJSONHandler(writer, opts)
	default:
		baseHandler = slog.NewTextHandler(writer, opts)
	}

	return &defaultLogger{
		Logger: slog.New(NewOtelHandler(baseHandler)),
	}
}

// NewDefaultLogger returns a text logger on os.Stderr at the given level.
func NewDefaultLogger(levelStr string) stage0log.Logger {
	return NewLogger(levelStr, "text", os.Stderr)
}

// NewDiscardLogger returns a Logger that drops everything. Components use it
// when their caller passes a nil logger.
func NewDiscardLogger() stage0log.Logger {
	return NewLogger("error", "text", io.Discard)
}

// OrDiscard returns log, or a discarding logger when log is nil.
func OrDiscard(log stage0log.Logger) stage0log.Logger {
	if log == nil {
		return NewDiscardLogger()
	}
	return log
}

var levelStringMap = map[slog.Level]string{
	slog.LevelDebug: "DEBUG",
	slog.LevelInfo:  "INFO",
	slog.LevelWarn:  "WARN",
	slog.LevelError: "ERROR",
}

// replaceLevelAttribute renders the level attribute as an uppercase string.
func replaceLevelAttribute(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	level, ok := a.Value.Any().(slog.Level)
	if !ok {
		return a
	}
	levelStr, exists := levelStringMap[level]
	if !exists {
		levelStr = level.String()
	}
	a.Value = slog.StringValue(levelStr)
	return a
}

func (l *defaultLogger) Debugf(format string, args ...interface{}) {
	if l.Logger.Enabled(context.Background(), slog.LevelDebug) {
		l.Logger.Log(context.Background(), slog.LevelDebug, fmt.Sprintf(format, args...))
	}
}

func (l *defaultLogger) Infof(format string, args ...interface{}) {
	if l.Logger.Enabled(context.Background(), slog.LevelInfo) {
		l.Logger.Log(context.Background(), slog.LevelInfo, fmt.Sprintf(format, args...))
	}
}

func (l *defaultLogger) Warnf(format string, args ...interface{}) {
	if l.Logger.Enabled(context.Background(), slog.LevelWarn) {
		l.Logger.Log(context.Background(), slog.LevelWarn, fmt.Sprintf(format, args...))
	}
}

// Errorf logs at ERROR. If the last argument is an error, its details are
// attached as attributes; override and I/O errors get their fields split out.
func (l *defaultLogger) Errorf(format string, args ...interface{}) {
	if !l.Logger.Enabled(context.Background(), slog.LevelError) {
		return
	}
	msg := fmt.Sprintf(format, args...)
	l.Logger.Log(context.Background(), slog.LevelError, msg, errorAttrs(args)...)
}

// errorAttrs builds structured attributes for a trailing error argument.
func errorAttrs(args []interface{}) []any {
	if len(args) == 0 {
		return nil
	}
	err, ok := args[len(args)-1].(error)
	if !ok {
		return nil
	}

	var attrs []any
	var overrideErr *stage0errors.OverrideError
	var ioErr *stage0errors.IOError
	switch {
	case errors.As(err, &overrideErr):
		attrs = append(attrs,
			slog.String("error_type", "OverrideError"),
			slog.String("override", overrideErr.Arg),
			slog.String("reason", overrideErr.Reason),
		)
	case errors.As(err, &ioErr):
		attrs = append(attrs,
			slog.String("error_type", "IOError"),
			slog.String("op", ioErr.Op),
			slog.String("path", ioErr.Path),
		)
	}
	return append(attrs, slog.String("error", err.Error()))
}

func (l *defaultLogger) Log(level slog.Level, msg string, args ...interface{}) {
	l.Logger.Log(context.Background(), level, msg, args...)
}

func (l *defaultLogger) LogCtx(ctx context.Context, level slog.Level, msg string, args ...interface{}) {
	l.Logger.Log(ctx, level, msg, args...)
}

func (l *defaultLogger) With(args ...interface{}) stage0log.Logger {
	return &defaultLogger{Logger: l.Logger.With(args...)}
}

func (l *defaultLogger) IsEnabled(level slog.Level) bool {
	return l.Logger.Enabled(context.Background(), level)
}

// --- OtelHandler for Trace/Span ID Injection ---

// OtelHandler is a slog.Handler middleware that adds trace_id and span_id
// attributes when the logging context carries a valid span.
type OtelHandler struct {
	next slog.Handler
}

// NewOtelHandler creates a new OtelHandler wrapping the provided handler.
func NewOtelHandler(next slog.Handler) *OtelHandler {
	return &OtelHandler{next: next}
}

func (h *OtelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *OtelHandler) Handle(ctx context.Context, record slog.Record) error {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		record.AddAttrs(
			slog.String("trace_id", span.SpanContext().TraceID().String()),
			slog.String("span_id", span.SpanContext().SpanID().String()),
		)
	}
	return h.next.Handle(ctx, record)
}

func (h *OtelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return NewOtelHandler(h.next.WithAttrs(attrs))
}

func (h *OtelHandler) WithGroup(name string) slog.Handler {
	return NewOtelHandler(h.next.WithGroup(name))
}
