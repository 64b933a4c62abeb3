package reporting

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel is the minimum severity a logger emits.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogFormat selects between human-readable console output and JSON.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

// LoggerConfig configures a Logger.
type LoggerConfig struct {
	Level  LogLevel
	Format LogFormat
	Output io.Writer
}

// Logger is the engine's structured logger. The driver and its workers
// derive child loggers stamped with their identity (tournament number,
// core index) so one race's interleaved events can be grouped after the
// fact.
type Logger struct {
	zl zerolog.Logger
}

// NewLogger builds a Logger writing to cfg.Output (stdout when nil) at
// cfg.Level, as console text or JSON per cfg.Format.
func NewLogger(cfg LoggerConfig) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	var w io.Writer = out
	if cfg.Format == LogFormatText {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	zl := zerolog.New(w).With().Timestamp().Logger().Level(parseLevel(cfg.Level))
	return &Logger{zl: zl}
}

func parseLevel(l LogLevel) zerolog.Level {
	switch l {
	case LogLevelDebug:
		return zerolog.DebugLevel
	case LogLevelWarn:
		return zerolog.WarnLevel
	case LogLevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ForTournament returns a child logger stamped with the tournament number.
func (l *Logger) ForTournament(nr int) *Logger {
	return l.WithField("tourn_nr", nr)
}

// ForCore returns a child logger stamped with a worker's core index.
func (l *Logger) ForCore(core int) *Logger {
	return l.WithField("core", core)
}

// WithField returns a child logger carrying an extra key/value pair on
// every event.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{zl: l.zl.With().Interface(key, value).Logger()}
}

// Debug logs a debug event with alternating key/value fields.
func (l *Logger) Debug(msg string, fields ...interface{}) {
	emit(l.zl.Debug(), msg, fields)
}

// Info logs an info event.
func (l *Logger) Info(msg string, fields ...interface{}) {
	emit(l.zl.Info(), msg, fields)
}

// Warn logs a warning event.
func (l *Logger) Warn(msg string, fields ...interface{}) {
	emit(l.zl.Warn(), msg, fields)
}

// Error logs an error event.
func (l *Logger) Error(msg string, fields ...interface{}) {
	emit(l.zl.Error(), msg, fields)
}

// Fatal logs the event and exits non-zero; reserved for the cmd layer's
// unrecoverable configuration and resume errors.
func (l *Logger) Fatal(msg string, fields ...interface{}) {
	emit(l.zl.Fatal(), msg, fields)
}

// emit attaches alternating key/value fields to an event. A trailing key
// without a value, or a non-string key, is surfaced on the event itself
// rather than dropped silently.
func emit(ev *zerolog.Event, msg string, fields []interface{}) {
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			ev.Interface("bad_field_key", fields[i])
			continue
		}
		ev.Interface(key, fields[i+1])
	}
	if len(fields)%2 != 0 {
		ev.Interface("dangling_field", fields[len(fields)-1])
	}
	ev.Msg(msg)
}
