// Package log provides the structured logger used across the witness and
// dispatch pipeline. It wraps log/slog with a handler that can write to
// stderr in development and to a rotating file in production, and adds the
// per-component child-logger convention used throughout this module.
package log

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps slog.Logger with the conventions used across this codebase:
// every subsystem obtains its own child logger via Module, tagged with a
// "component" attribute, so log lines can be filtered per pipeline stage
// (provider, witness, host-executor, dispatcher, hooks, ...).
type Logger struct {
	inner *slog.Logger
}

var defaultLogger = New(slog.LevelInfo, os.Stderr)

// Config controls how the default process logger is constructed.
type Config struct {
	// Level is the minimum level that will be emitted.
	Level slog.Level
	// JSON selects JSON output over logfmt-ish text output.
	JSON bool
	// FilePath, when non-empty, tees output to a rotating log file in
	// addition to stderr.
	FilePath string
}

// New creates a Logger writing JSON lines to w at the given level.
func New(level slog.Level, w io.Writer) *Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return &Logger{inner: slog.New(h)}
}

// NewWithHandler creates a Logger backed by the supplied slog.Handler. This
// is useful for testing or for writing to a custom destination.
func NewWithHandler(h slog.Handler) *Logger {
	return &Logger{inner: slog.New(h)}
}

// NewFromConfig builds the process-wide logger according to Config,
// wiring in lumberjack for rotation when a file path is configured.
func NewFromConfig(cfg Config) *Logger {
	var w io.Writer = os.Stderr
	if cfg.FilePath != "" {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		})
	}

	opts := &slog.HandlerOptions{Level: cfg.Level}
	var h slog.Handler
	if cfg.JSON {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return &Logger{inner: slog.New(h)}
}

// SetDefault replaces the package-level default logger.
func SetDefault(l *Logger) {
	if l != nil {
		defaultLogger = l
	}
}

// Default returns the current package-level default logger.
func Default() *Logger { return defaultLogger }

// Module returns a child logger tagged with the given component name. This
// is the primary way a pipeline stage (provider, witness, dispatcher, ...)
// obtains its own contextual logger.
func (l *Logger) Module(name string) *Logger {
	return &Logger{inner: l.inner.With("component", name)}
}

// With returns a child logger with additional key-value context.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{inner: l.inner.With(args...)}
}

func (l *Logger) Debug(msg string, args ...any) { l.inner.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.inner.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.inner.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.inner.Error(msg, args...) }

// Package-level convenience functions delegate to the default logger.

func Debug(msg string, args ...any) { defaultLogger.Debug(msg, args...) }
func Info(msg string, args ...any)  { defaultLogger.Info(msg, args...) }
func Warn(msg string, args ...any)  { defaultLogger.Warn(msg, args...) }
func Error(msg string, args ...any) { defaultLogger.Error(msg, args...) }
func Module(name string) *Logger    { return defaultLogger.Module(name) }
