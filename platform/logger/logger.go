// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// TaskIDKey is the context key for the outreach task being executed
	TaskIDKey contextKey = "task_id"
	// TraceIDKey is the context key for trace ID
	TraceIDKey contextKey = "trace_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with context values extracted.
// Supports request_id, task_id, and trace_id from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("request_id", requestID))}
	}

	if taskID, ok := ctx.Value(TaskIDKey).(string); ok && taskID != "" {
		newLogger = newLogger.WithTaskID(taskID)
	}

	if traceID, ok := ctx.Value(TraceIDKey).(string); ok && traceID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("trace_id", traceID))}
	}

	return newLogger
}

// WithTaskID returns a logger scoped to an outreach task.
func (l *Logger) WithTaskID(taskID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("task_id", taskID)),
	}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// DispatchOutcome logs the terminal outcome of a task invocation.
func (l *Logger) DispatchOutcome(taskID, agentType, status string, duration time.Duration) {
	l.Info("dispatch_outcome",
		slog.String("task_id", taskID),
		slog.String("agent_type", agentType),
		slog.String("status", status),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)
}

// ComplianceBlocked logs a blocked outreach attempt with its violations.
func (l *Logger) ComplianceBlocked(taskID, channel string, violations []string) {
	l.Warn("compliance_blocked",
		slog.String("task_id", taskID),
		slog.String("channel", channel),
		slog.Any("violations", violations),
	)
}

// ProviderError logs a failed dispatch to an external communication provider.
func (l *Logger) ProviderError(provider, channel string, err error) {
	l.Error("provider_error",
		slog.String("provider", provider),
		slog.String("channel", channel),
		slog.String("error", err.Error()),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
