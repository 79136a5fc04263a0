// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the application.
var GlobalLogger *Logger

func init() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	GlobalLogger = &Logger{Logger: slog.New(handler)}
}

// LogContextKey is a type for context keys used by the logging package.
type LogContextKey string

// Context keys for logging
const (
	CorrelationID LogContextKey = "correlation_id"
)

// WithCorrelationID returns a new context with the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationID, id)
}

// ExtractCorrelationID retrieves the correlation ID from the context.
func ExtractCorrelationID(ctx context.Context) string {
	if id := ctx.Value(CorrelationID); id != nil {
		return id.(string)
	}
	return ""
}

// StoreLogger provides structured logging for state-container operations.
type StoreLogger struct {
	component string
	logger    *Logger
}

// NewStoreLogger creates a StoreLogger for the given component name.
func NewStoreLogger(component string) *StoreLogger {
	return &StoreLogger{
		component: component,
		logger:    GlobalLogger,
	}
}

// LogDispatch logs a dispatched action.
func (l *StoreLogger) LogDispatch(ctx context.Context, actionType, scope string) {
	l.logger.DebugContext(ctx, "action dispatched",
		slog.String("component", l.component),
		slog.String("action", actionType),
		slog.String("scope", scope),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	)
}

// LogSnapshot logs a snapshot lifecycle event (load, save, discard).
func (l *StoreLogger) LogSnapshot(ctx context.Context, event string, fields map[string]interface{}) {
	attrs := []any{
		slog.String("component", l.component),
		slog.String("event", event),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	l.logger.InfoContext(ctx, "snapshot "+event, attrs...)
}

// LogError logs an operation failure without propagating it.
func (l *StoreLogger) LogError(ctx context.Context, op string, err error) {
	l.logger.ErrorContext(ctx, op+" failed",
		slog.String("component", l.component),
		slog.String("error", err.Error()),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	)
}
