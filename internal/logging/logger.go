// Package logging wraps zerolog with the component/trace-id/field
// conventions the rest of this codebase calls through: WithComponent,
// WithField(s), WithError, and leveled Debug/Info/Warn/Error/Fatal taking
// either key-value pairs or printf-style args.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Level mirrors zerolog's levels under the names this codebase uses.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	FATAL
)

func (l Level) zerolog() zerolog.Level {
	switch l {
	case DEBUG:
		return zerolog.DebugLevel
	case INFO:
		return zerolog.InfoLevel
	case WARN:
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	case FATAL:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// ParseLevel converts a string to a Level, defaulting to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

// Config configures a Logger.
type Config struct {
	Level       string
	Output      string // "stdout", "stderr", or a file path
	Component   string
	JSONFormat  bool // false renders zerolog's human-readable console writer
}

// Logger is a structured logger scoped to a component, trace ID, and a set
// of sticky fields, backed by zerolog.
type Logger struct {
	zl        zerolog.Logger
	component string
	traceID   string
}

var (
	defaultLogger *Logger
)

// New builds a Logger per cfg.
func New(cfg *Config) *Logger {
	var w io.Writer = os.Stdout
	switch {
	case cfg.Output == "stderr":
		w = os.Stderr
	case cfg.Output != "" && cfg.Output != "stdout":
		if f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644); err == nil {
			w = f
		}
	}
	if !cfg.JSONFormat {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	zl := zerolog.New(w).With().Timestamp().Logger().Level(ParseLevel(cfg.Level).zerolog())
	if cfg.Component != "" {
		zl = zl.With().Str("component", cfg.Component).Logger()
	}
	return &Logger{zl: zl, component: cfg.Component}
}

// Default returns the process-wide default logger, JSON to stdout at INFO.
func Default() *Logger {
	if defaultLogger == nil {
		defaultLogger = New(&Config{Level: "INFO", Output: "stdout", Component: "marketpulse", JSONFormat: true})
	}
	return defaultLogger
}

// SetDefault replaces the process-wide default logger.
func SetDefault(l *Logger) {
	defaultLogger = l
}

// WithComponent returns a copy of l scoped to the given component.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{zl: l.zl.With().Str("component", component).Logger(), component: component, traceID: l.traceID}
}

// WithTraceID returns a copy of l with a trace_id field.
func (l *Logger) WithTraceID(traceID string) *Logger {
	return &Logger{zl: l.zl.With().Str("trace_id", traceID).Logger(), component: l.component, traceID: traceID}
}

// WithField returns a copy of l with one additional sticky field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{zl: l.zl.With().Interface(key, value).Logger(), component: l.component, traceID: l.traceID}
}

// WithFields returns a copy of l with additional sticky fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	ctx := l.zl.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{zl: ctx.Logger(), component: l.component, traceID: l.traceID}
}

// WithError returns a copy of l with an error field.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return &Logger{zl: l.zl.With().Err(err).Logger(), component: l.component, traceID: l.traceID}
}

// WithDuration returns a copy of l with a duration field.
func (l *Logger) WithDuration(d time.Duration) *Logger {
	return &Logger{zl: l.zl.With().Dur("duration", d).Logger(), component: l.component, traceID: l.traceID}
}

// log dispatches args either as key-value pairs (even count, string keys)
// or as printf-style formatting arguments.
func (l *Logger) log(level Level, msg string, args ...interface{}) {
	ev := l.zl.WithLevel(level.zerolog())

	if len(args) == 0 {
		ev.Msg(msg)
		return
	}

	if len(args)%2 == 0 {
		if _, ok := args[0].(string); ok {
			for i := 0; i < len(args); i += 2 {
				key, ok := args[i].(string)
				if !ok {
					ev.Msgf(msg, args...)
					return
				}
				if err, isErr := args[i+1].(error); isErr {
					ev = ev.AnErr(key, err)
				} else {
					ev = ev.Interface(key, args[i+1])
				}
			}
			ev.Msg(msg)
			return
		}
	}
	ev.Msg(fmt.Sprintf(msg, args...))
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log(DEBUG, msg, args...) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log(INFO, msg, args...) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log(WARN, msg, args...) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log(ERROR, msg, args...) }

// Fatal logs at fatal level and exits the process, matching zerolog's own
// Fatal semantics.
func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.log(FATAL, msg, args...)
	os.Exit(1)
}

// Package-level convenience functions against the default logger.

func Debug(msg string, args ...interface{}) { Default().Debug(msg, args...) }
func Info(msg string, args ...interface{})  { Default().Info(msg, args...) }
func Warn(msg string, args ...interface{})  { Default().Warn(msg, args...) }
func Error(msg string, args ...interface{}) { Default().Error(msg, args...) }
func Fatal(msg string, args ...interface{}) { Default().Fatal(msg, args...) }

func WithComponent(component string) *Logger          { return Default().WithComponent(component) }
func WithTraceID(traceID string) *Logger              { return Default().WithTraceID(traceID) }
func WithField(key string, value interface{}) *Logger { return Default().WithField(key, value) }
func WithFields(fields map[string]interface{}) *Logger {
	return Default().WithFields(fields)
}
func WithError(err error) *Logger { return Default().WithError(err) }
