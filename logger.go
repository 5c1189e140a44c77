package vmemgo

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with vmemgo-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithMark adds a mark field to the logger.
func (l *Logger) WithMark(mark string) *Logger {
	return &Logger{
		Logger: l.Logger.With("mark", mark),
	}
}

// WithStream adds a stream field to the logger.
func (l *Logger) WithStream(s Stream) *Logger {
	return &Logger{
		Logger: l.Logger.With("stream", s.String()),
	}
}

// WithHandle adds a handle field to the logger.
func (l *Logger) WithHandle(handle uint64) *Logger {
	return &Logger{
		Logger: l.Logger.With("handle", handle),
	}
}

// LogAlloc logs an allocation.
func (l *Logger) LogAlloc(ctx context.Context, handle uint64, size int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "allocation failed",
			"handle", handle,
			"size", size,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "allocation completed",
			"handle", handle,
			"size", size,
		)
	}
}

// LogScope logs the open or close of a scope. The mark and stream fields
// come from the scope's logger (WithMark, WithStream).
func (l *Logger) LogScope(ctx context.Context, event string, mode BackedMode) {
	l.DebugContext(ctx, event,
		"mode", mode.String(),
	)
}

// LogRelease logs a bulk release across marks.
func (l *Logger) LogRelease(ctx context.Context, mark string, released int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "release failed",
			"mark", mark,
			"released", released,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "release completed",
			"mark", mark,
			"released", released,
		)
	}
}

// LogMaterialize logs a bulk materialize across marks.
func (l *Logger) LogMaterialize(ctx context.Context, mark string, materialized int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "materialize failed",
			"mark", mark,
			"materialized", materialized,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "materialize completed",
			"mark", mark,
			"materialized", materialized,
		)
	}
}
