package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Level represents the severity level of a log message.
type Level int

// Log levels
const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a level name (case-insensitive). Empty input is an error
// so callers can distinguish "unset" from "debug".
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	}
	return InfoLevel, fmt.Errorf("log: unknown level %q", s)
}

func (l Level) slog() slog.Level {
	switch l {
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Field is a structured key/value pair attached to a log entry.
type Field = slog.Attr

// Str builds a string field.
func Str(key, value string) Field { return slog.String(key, value) }

// Int builds an int field.
func Int(key string, value int) Field { return slog.Int(key, value) }

// Uint64 builds a uint64 field.
func Uint64(key string, value uint64) Field { return slog.Uint64(key, value) }

// Dur builds a duration field.
func Dur(key string, value time.Duration) Field { return slog.Duration(key, value) }

// Err builds an error field; nil errors render as "<nil>".
func Err(err error) Field {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.String("error", err.Error())
}

// Any builds a field from an arbitrary value.
func Any(key string, value interface{}) Field { return slog.Any(key, value) }

// Logger is the logging interface flume components depend on.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// With returns a child logger that always carries the given fields.
	With(fields ...Field) Logger

	// WithComponent tags entries with a component name.
	WithComponent(component string) Logger

	SetLevel(level Level)
	GetLevel() Level
}

// Formatter selects the wire format of emitted entries.
type Formatter interface{ isFormatter() }

// TextFormatter emits human-readable key=value lines.
type TextFormatter struct{}

func (*TextFormatter) isFormatter() {}

// JSONFormatter emits one JSON object per entry.
type JSONFormatter struct{}

func (*JSONFormatter) isFormatter() {}

// Output is a destination for formatted entries.
type Output interface{ io.Writer }

// NewConsoleOutput returns an Output writing to stderr.
func NewConsoleOutput() Output { return os.Stderr }

// LoggerOption configures a logger under construction.
type LoggerOption func(*baseLogger)

// WithLevel sets the minimum log level.
func WithLevel(level Level) LoggerOption {
	return func(l *baseLogger) { l.level.Set(level.slog()) }
}

// WithFormatter sets the entry format.
func WithFormatter(f Formatter) LoggerOption {
	return func(l *baseLogger) { l.formatter = f }
}

// WithOutput sets the destination.
func WithOutput(out Output) LoggerOption {
	return func(l *baseLogger) { l.out = out }
}

type baseLogger struct {
	level     *slog.LevelVar
	formatter Formatter
	out       Output
	sl        *slog.Logger
}

// NewLogger creates a logger with the given options. Defaults: InfoLevel,
// text format, stderr.
func NewLogger(options ...LoggerOption) Logger {
	l := &baseLogger{
		level:     new(slog.LevelVar),
		formatter: &TextFormatter{},
		out:       os.Stderr,
	}
	l.level.Set(slog.LevelInfo)
	for _, option := range options {
		option(l)
	}

	opts := &slog.HandlerOptions{Level: l.level}
	var h slog.Handler
	if _, ok := l.formatter.(*JSONFormatter); ok {
		h = slog.NewJSONHandler(l.out, opts)
	} else {
		h = slog.NewTextHandler(l.out, opts)
	}
	l.sl = slog.New(h)
	return l
}

func (l *baseLogger) log(level Level, msg string, fields []Field) {
	l.sl.LogAttrs(context.Background(), level.slog(), msg, fields...)
}

func (l *baseLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields) }
func (l *baseLogger) Info(msg string, fields ...Field)  { l.log(InfoLevel, msg, fields) }
func (l *baseLogger) Warn(msg string, fields ...Field)  { l.log(WarnLevel, msg, fields) }
func (l *baseLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields) }

func (l *baseLogger) With(fields ...Field) Logger {
	args := make([]any, 0, len(fields))
	for _, f := range fields {
		args = append(args, f)
	}
	child := *l
	child.sl = l.sl.With(args...)
	return &child
}

func (l *baseLogger) WithComponent(component string) Logger {
	return l.With(Str("component", component))
}

func (l *baseLogger) SetLevel(level Level) { l.level.Set(level.slog()) }

func (l *baseLogger) GetLevel() Level {
	switch l.level.Level() {
	case slog.LevelDebug:
		return DebugLevel
	case slog.LevelWarn:
		return WarnLevel
	case slog.LevelError:
		return ErrorLevel
	default:
		return InfoLevel
	}
}
