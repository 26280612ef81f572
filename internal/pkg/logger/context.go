package logger

import (
	"context"

	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
	entryIDKey   contextKey = "entry_id"
)

// WithContext returns a logger carrying the request and entry ids found in ctx
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	fields := make([]zap.Field, 0, 2)
	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if entryID := GetEntryID(ctx); entryID != "" {
		fields = append(fields, zap.String("entry_id", entryID))
	}

	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

// FromContext extracts the logger stored in ctx, falling back to the global one
func FromContext(ctx context.Context) *Logger {
	if ctx == nil {
		return L()
	}
	if l, ok := ctx.Value(loggerKey).(*Logger); ok && l != nil {
		return l.WithContext(ctx)
	}
	return L().WithContext(ctx)
}

// ToContext stores logger in ctx
func ToContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// WithRequestID adds request ID to context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithEntryID tags ctx with the gallery entry being worked on
func WithEntryID(ctx context.Context, entryID string) context.Context {
	return context.WithValue(ctx, entryIDKey, entryID)
}

// GetRequestID extracts request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetEntryID extracts entry ID from context
func GetEntryID(ctx context.Context) string {
	if entryID, ok := ctx.Value(entryIDKey).(string); ok {
		return entryID
	}
	return ""
}
