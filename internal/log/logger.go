// Package log provides structured logging tagged with operation and project context.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/repokeeper/repokeeper/internal/config"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Context keys for logging.
const (
	OperationIDKey ContextKey = "operation_id"
	ProjectKey     ContextKey = "project"
)

// Logger wraps slog.Logger with convenience methods.
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a Logger writing to stderr based on configuration.
func NewLogger(cfg config.AppConfig) *Logger {
	return NewLoggerWithWriter(os.Stderr, cfg.LogFormat(), cfg.LogLevel())
}

// NewLoggerWithWriter creates a Logger that writes to the specified writer.
func NewLoggerWithWriter(w io.Writer, format config.LogFormat, level string) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	switch format {
	case config.LogFormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = newTerminalHandler(w, opts)
	}

	return &Logger{logger: slog.New(handler)}
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Slog returns the underlying slog.Logger.
func (l *Logger) Slog() *slog.Logger {
	return l.logger
}

// With returns a new Logger with additional attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{logger: l.logger.With(args...)}
}

// WithContext returns a logger carrying the operation and project found in ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	attrs := Attrs(ctx)
	if len(attrs) == 0 {
		return l
	}
	return l.With(attrs...)
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, args ...any) {
	l.logger.Debug(msg, args...)
}

// WithOperationID adds an operation log ID to the context.
func WithOperationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, OperationIDKey, id)
}

// WithProject adds a project name to the context.
func WithProject(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ProjectKey, name)
}

// OperationID extracts the operation log ID from context.
func OperationID(ctx context.Context) string {
	id, _ := ctx.Value(OperationIDKey).(string)
	return id
}

// Project extracts the project name from context.
func Project(ctx context.Context) string {
	name, _ := ctx.Value(ProjectKey).(string)
	return name
}

// Attrs returns the context values as slog key/value pairs, for use with
// a plain *slog.Logger.
func Attrs(ctx context.Context) []any {
	attrs := make([]any, 0, 4)
	if id := OperationID(ctx); id != "" {
		attrs = append(attrs, string(OperationIDKey), id)
	}
	if name := Project(ctx); name != "" {
		attrs = append(attrs, string(ProjectKey), name)
	}
	return attrs
}

// defaultLogger is the package-level default logger.
var defaultLogger = NewLoggerWithWriter(os.Stderr, config.LogFormatPretty, config.DefaultLogLevel)

// Default returns the default logger.
func Default() *Logger {
	return defaultLogger
}

// Configure builds a logger from configuration and installs it as both the
// package default and the slog default.
func Configure(cfg config.AppConfig) *Logger {
	l := NewLogger(cfg)
	defaultLogger = l
	slog.SetDefault(l.logger)
	return l
}
