package logging

import (
	"io"
	"log/slog"
	"os"
)

// LogLevel selects the minimum severity a logger emits. It keeps user facing
// configuration decoupled from the slog levels used internally.
type LogLevel int

const (
	// LogLevelDebug is the debug logging level.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is the informational logging level.
	LogLevelInfo
	// LogLevelWarn is the warning logging level.
	LogLevelWarn
	// LogLevelError is the error logging level.
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel maps a configuration string ("debug", "info", "warn", "error")
// to its LogLevel. Unknown strings report false and fall back to info.
func ParseLevel(s string) (LogLevel, bool) {
	switch s {
	case "debug":
		return LogLevelDebug, true
	case "info":
		return LogLevelInfo, true
	case "warn":
		return LogLevelWarn, true
	case "error":
		return LogLevelError, true
	default:
		return LogLevelInfo, false
	}
}

// Logger defines the minimal structured logging interface used across the
// framework. The variadic args are alternating key/value pairs, following the
// slog convention. Users can provide their own implementation or use one of
// the built-in adapters.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// slogLogger adapts *slog.Logger to the Logger interface.
type slogLogger struct {
	base *slog.Logger
}

// Debug logs a debug message.
func (s *slogLogger) Debug(msg string, args ...any) { s.base.Debug(msg, args...) }

// Info logs an informational message.
func (s *slogLogger) Info(msg string, args ...any) { s.base.Info(msg, args...) }

// Warn logs a warning message.
func (s *slogLogger) Warn(msg string, args ...any) { s.base.Warn(msg, args...) }

// Error logs an error message.
func (s *slogLogger) Error(msg string, args ...any) { s.base.Error(msg, args...) }

// NewSlogAdapter wraps an existing *slog.Logger.
func NewSlogAdapter(base *slog.Logger) Logger {
	return &slogLogger{base: base}
}

// NewSlogLogger builds a Logger writing to stdout at the given minimum level.
// Format is "json" or "text"; anything else defaults to JSON.
func NewSlogLogger(level LogLevel, format string, addSource bool) Logger {
	return NewSlogLoggerWithWriter(os.Stdout, level, format, addSource)
}

// NewSlogLoggerWithWriter is NewSlogLogger with an explicit destination.
func NewSlogLoggerWithWriter(w io.Writer, level LogLevel, format string, addSource bool) Logger {
	opts := &slog.HandlerOptions{Level: level.slogLevel(), AddSource: addSource}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return &slogLogger{base: slog.New(handler)}
}

// NoOpLogger discards all log messages. Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// Debug logs a debug message.
func (NoOpLogger) Debug(string, ...any) {}

// Info logs an informational message.
func (NoOpLogger) Info(string, ...any) {}

// Warn logs a warning message.
func (NoOpLogger) Warn(string, ...any) {}

// Error logs an error message.
func (NoOpLogger) Error(string, ...any) {}
