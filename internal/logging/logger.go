// Package logging provides the structured logger used across sitepack.
//
// The Logger interface takes a context, an optional error and alternating
// key/value fields. The default implementation writes through zerolog: JSON
// lines in production and a human-readable console format in development.
package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel represents different log levels
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a flag value to a LogLevel, defaulting to info.
func ParseLevel(s string) LogLevel {
	switch s {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger interface for structured logging
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...interface{})
	Info(ctx context.Context, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
	Error(ctx context.Context, err error, msg string, fields ...interface{})

	With(fields ...interface{}) Logger
	WithComponent(component string) Logger
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level     LogLevel
	Console   bool
	Output    io.Writer
	Component string
}

// DefaultConfig returns default logger configuration
func DefaultConfig() *LoggerConfig {
	return &LoggerConfig{
		Level:  LevelInfo,
		Output: os.Stderr,
	}
}

// SitepackLogger implements Logger on top of zerolog.
type SitepackLogger struct {
	logger zerolog.Logger
}

// NewLogger creates a new structured logger
func NewLogger(config *LoggerConfig) *SitepackLogger {
	if config == nil {
		config = DefaultConfig()
	}

	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	if config.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	ctx := zerolog.New(out).Level(config.Level.zerolog()).With().Timestamp()
	if config.Component != "" {
		ctx = ctx.Str("component", config.Component)
	}

	return &SitepackLogger{logger: ctx.Logger()}
}

// Setup returns the process logger: console output in development, JSON
// lines otherwise.
func Setup(level LogLevel, dev bool) *SitepackLogger {
	return NewLogger(&LoggerConfig{
		Level:   level,
		Console: dev,
		Output:  os.Stderr,
	})
}

// Debug logs a debug message
func (l *SitepackLogger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	l.emit(ctx, l.logger.Debug(), nil, msg, fields)
}

// Info logs an info message
func (l *SitepackLogger) Info(ctx context.Context, msg string, fields ...interface{}) {
	l.emit(ctx, l.logger.Info(), nil, msg, fields)
}

// Warn logs a warning message
func (l *SitepackLogger) Warn(ctx context.Context, err error, msg string, fields ...interface{}) {
	l.emit(ctx, l.logger.Warn(), err, msg, fields)
}

// Error logs an error message
func (l *SitepackLogger) Error(ctx context.Context, err error, msg string, fields ...interface{}) {
	l.emit(ctx, l.logger.Error(), err, msg, fields)
}

// With creates a new logger with additional fields
func (l *SitepackLogger) With(fields ...interface{}) Logger {
	return &SitepackLogger{logger: l.logger.With().Fields(pairs(fields)).Logger()}
}

// WithComponent creates a new logger with component context
func (l *SitepackLogger) WithComponent(component string) Logger {
	return &SitepackLogger{logger: l.logger.With().Str("component", component).Logger()}
}

func (l *SitepackLogger) emit(ctx context.Context, ev *zerolog.Event, err error, msg string, fields []interface{}) {
	if ev == nil {
		return
	}
	if err != nil {
		ev = ev.Err(err)
	}
	if passID, ok := PassIDFromContext(ctx); ok {
		ev = ev.Str("pass", passID)
	}
	ev.Fields(pairs(fields)).Msg(msg)
}

// pairs converts alternating key/value arguments into a field map, dropping
// a trailing key without a value and any non-string key.
func pairs(fields []interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok {
			m[key] = fields[i+1]
		}
	}
	return m
}

type passKey struct{}

// WithPassID tags ctx with the id of the build pass it belongs to.
func WithPassID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, passKey{}, id)
}

// PassIDFromContext returns the build pass id stored by WithPassID.
func PassIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(passKey{}).(string)
	return id, ok
}

// nopLogger discards everything.
type nopLogger struct{}

// Nop returns a Logger that discards all output.
func Nop() Logger { return nopLogger{} }

func (nopLogger) Debug(context.Context, string, ...interface{})        {}
func (nopLogger) Info(context.Context, string, ...interface{})         {}
func (nopLogger) Warn(context.Context, error, string, ...interface{})  {}
func (nopLogger) Error(context.Context, error, string, ...interface{}) {}
func (n nopLogger) With(...interface{}) Logger                         { return n }
func (n nopLogger) WithComponent(string) Logger                        { return n }

// PerfLogger tracks the duration of a single operation
type PerfLogger struct {
	Logger
	startTime time.Time
}

// StartOperation begins performance tracking
func StartOperation(l Logger, operation string) *PerfLogger {
	return &PerfLogger{
		Logger:    l.With("operation", operation),
		startTime: time.Now(),
	}
}

// End completes performance tracking and logs the duration
func (p *PerfLogger) End(ctx context.Context) time.Duration {
	duration := time.Since(p.startTime)
	p.Info(ctx, "Operation completed", "duration_ms", duration.Milliseconds())
	return duration
}

// EndWithError completes performance tracking and logs an error
func (p *PerfLogger) EndWithError(ctx context.Context, err error) time.Duration {
	duration := time.Since(p.startTime)
	p.Error(ctx, err, "Operation failed", "duration_ms", duration.Milliseconds())
	return duration
}
