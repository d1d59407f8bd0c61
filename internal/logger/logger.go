// Package logger provides the structured logger shared by the CLI and the
// HTTP server.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the logging interface handed to commands and handlers.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
}

// Output formats accepted by NewWithFormat.
const (
	FormatText = "text"
	FormatJSON = "json"
)

type slogLogger struct {
	logger *slog.Logger
}

func (l *slogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *slogLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *slogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{logger: l.logger.With(args...)}
}

// NewWithFormat creates a text or JSON Logger writing records at level and above.
func NewWithFormat(w io.Writer, format string, level slog.Level) (Logger, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(format) {
	case "", FormatText:
		return &slogLogger{logger: slog.New(slog.NewTextHandler(w, opts))}, nil
	case FormatJSON:
		return &slogLogger{logger: slog.New(slog.NewJSONHandler(w, opts))}, nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want text or json)", format)
	}
}

// Discard creates a Logger that drops every record.
func Discard() Logger {
	return &slogLogger{logger: slog.New(slog.DiscardHandler)}
}

type loggerKey struct{}

// WithContext adds the logger to the context.
func WithContext(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext retrieves the Logger stored by WithContext, or an info-level
// text logger on stderr.
func FromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(loggerKey{}).(Logger); ok {
		return logger
	}
	return &slogLogger{logger: slog.New(slog.NewTextHandler(os.Stderr, nil))}
}

// ParseLevel converts a level name to slog.Level.
// Unknown names are an error so misconfigured runs fail early.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}
