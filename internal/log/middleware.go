package log

import (
	"context"
	"log/slog"
	"net/http"
)

type contextKey struct{}

// NewContext returns ctx carrying logger, for FromContext to find.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the request-scoped logger, or a default one tagged
// "unknown" when none was installed.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(contextKey{}).(*Logger); ok {
		return logger
	}
	return wrap(slog.Default(), "unknown")
}

// StructuredLogger emits the fixed-shape events shared across packages.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogHTTPEnd logs one finished request: warn for 4xx, error for 5xx.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	switch {
	case statusCode >= 500:
		level = slog.LevelError
	case statusCode >= 400:
		level = slog.LevelWarn
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent()).
		WithHTTPResponse(statusCode, durationMs).
		WithClientIP(clientIP).
		WithComponent(ComponentHTTP)

	sl.logger.base.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogCommandApplied(ctx context.Context, name string, args map[string]string, revision uint64) {
	fields := NewFields().
		WithCommand(name, args).
		WithRevision(revision).
		WithOperation(OpApply).
		WithComponent(ComponentBoard)

	sl.logger.base.InfoContext(ctx, "Command applied", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogRollover(ctx context.Context, kids int, revision uint64) {
	fields := NewFields().
		WithRevision(revision).
		WithOperation(OpRollover).
		WithComponent(ComponentBoard)
	fields[FieldCount] = kids

	sl.logger.base.InfoContext(ctx, "Week rolled over", fields.ToSlice()...)
}

// LogError logs err with its component and operation. fields may be nil.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	fields = fields.WithError(err).WithOperation(operation).WithComponent(component)
	sl.logger.base.ErrorContext(ctx, msg, fields.ToSlice()...)
}
