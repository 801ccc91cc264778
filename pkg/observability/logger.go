package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
)

// LogLevel is the minimum severity a Logger emits
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	// OffLevel disables all output
	OffLevel
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l LogLevel) String() string {
	if l < DebugLevel || l >= OffLevel {
		return "OFF"
	}
	return levelNames[l]
}

func (l LogLevel) slog() slog.Level {
	switch l {
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	case OffLevel:
		return slog.LevelError + 4
	default:
		return slog.LevelInfo
	}
}

// ParseLogLevel converts a configuration value into a LogLevel.
// Unknown values fall back to InfoLevel.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error", "fatal":
		return ErrorLevel
	case "off", "none":
		return OffLevel
	default:
		return InfoLevel
	}
}

// LogFormat selects the slog handler
type LogFormat string

const (
	FormatJSON LogFormat = "json"
	FormatText LogFormat = "text"
)

// ParseLogFormat accepts "json" and "text"; anything else is an error
func ParseLogFormat(s string) (LogFormat, error) {
	switch f := LogFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatText:
		return f, nil
	default:
		return "", fmt.Errorf("invalid log format: %s (must be json or text)", s)
	}
}

// LoggerOption configures NewLogger
type LoggerOption func(*slog.HandlerOptions, *LogFormat)

// WithFormat switches the output encoding, JSON by default
func WithFormat(format LogFormat) LoggerOption {
	return func(_ *slog.HandlerOptions, f *LogFormat) { *f = format }
}

// WithSource adds the calling file and line to every record
func WithSource() LoggerOption {
	return func(o *slog.HandlerOptions, _ *LogFormat) { o.AddSource = true }
}

// Logger is the structured logger of the assembler, the API and the
// snapshot stores. It is immutable; the With methods return new loggers.
type Logger struct {
	logger *slog.Logger
	level  LogLevel
}

// NewLogger writes records at level or above to output (stderr when nil)
func NewLogger(level LogLevel, output io.Writer, opts ...LoggerOption) *Logger {
	if output == nil {
		output = os.Stderr
	}

	hopts := &slog.HandlerOptions{Level: level.slog()}
	format := FormatJSON
	for _, opt := range opts {
		opt(hopts, &format)
	}

	var handler slog.Handler
	if format == FormatText {
		handler = slog.NewTextHandler(output, hopts)
	} else {
		handler = slog.NewJSONHandler(output, hopts)
	}
	return &Logger{logger: slog.New(handler), level: level}
}

// Discard returns a logger that drops everything
func Discard() *Logger {
	return NewLogger(OffLevel, io.Discard)
}

func (l *Logger) with(args ...any) *Logger {
	return &Logger{logger: l.logger.With(args...), level: l.level}
}

// WithField adds one attribute to every record
func (l *Logger) WithField(key string, value any) *Logger {
	return l.with(key, value)
}

// WithFields adds attributes in key order
func (l *Logger) WithFields(fields map[string]any) *Logger {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, len(fields)*2)
	for _, k := range keys {
		args = append(args, k, fields[k])
	}
	return l.with(args...)
}

// WithError adds err as the "error" attribute; nil is a no-op
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.with("error", err.Error())
}

// Level returns the minimum level this logger emits
func (l *Logger) Level() LogLevel {
	return l.level
}

// Enabled reports whether messages at level would be emitted
func (l *Logger) Enabled(level LogLevel) bool {
	return l.logger.Enabled(context.Background(), level.slog())
}

func (l *Logger) log(level LogLevel, msg string) {
	l.logger.Log(context.Background(), level.slog(), msg)
}

func (l *Logger) logf(level LogLevel, format string, args []any) {
	if l.Enabled(level) {
		l.log(level, fmt.Sprintf(format, args...))
	}
}

func (l *Logger) Debug(msg string)                  { l.log(DebugLevel, msg) }
func (l *Logger) Debugf(format string, args ...any) { l.logf(DebugLevel, format, args) }
func (l *Logger) Info(msg string)                   { l.log(InfoLevel, msg) }
func (l *Logger) Infof(format string, args ...any)  { l.logf(InfoLevel, format, args) }
func (l *Logger) Warn(msg string)                   { l.log(WarnLevel, msg) }
func (l *Logger) Warnf(format string, args ...any)  { l.logf(WarnLevel, format, args) }
func (l *Logger) Error(msg string)                  { l.log(ErrorLevel, msg) }
func (l *Logger) Errorf(format string, args ...any) { l.logf(ErrorLevel, format, args) }

type ctxKey int

const (
	runIDKey ctxKey = iota
	loggerKey
)

// WithRunID tags ctx with the id of the assembly run
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// GetRunID returns the run id of ctx or ""
func GetRunID(ctx context.Context) string {
	runID, _ := ctx.Value(runIDKey).(string)
	return runID
}

// WithLogger stores logger in ctx
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// GetLogger returns the logger of ctx, or an info level stderr logger
func GetLogger(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerKey).(*Logger); ok {
		return logger
	}
	return NewLogger(InfoLevel, os.Stderr)
}

// FromContext returns the logger of ctx tagged with its run id, if any
func FromContext(ctx context.Context) *Logger {
	logger := GetLogger(ctx)
	if runID := GetRunID(ctx); runID != "" {
		logger = logger.WithField("run_id", runID)
	}
	return logger
}
