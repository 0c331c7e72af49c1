// Package logger provides structured logging for mapstore on top of zerolog.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog and exposes the message plus key/value pair style
// used by the service layer.
type Logger struct {
	zlog zerolog.Logger
}

// Config holds logger configuration.
type Config struct {
	Level  string // debug, info, warn, error
	Pretty bool   // human-readable console output
	Output io.Writer
}

// ParseLevel maps a level name to zerolog, defaulting to info.
func ParseLevel(name string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New creates a logger writing JSON lines (or console output when Pretty).
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	zlog := zerolog.New(out).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("service", "mapstore").
		Logger()
	return &Logger{zlog: zlog}
}

// Nop returns a logger that discards everything.
func Nop() *Logger { return &Logger{zlog: zerolog.Nop()} }

// Zerolog returns the underlying zerolog logger.
func (l *Logger) Zerolog() *zerolog.Logger { return &l.zlog }

// With returns a child logger carrying the key/value pairs on every entry.
func (l *Logger) With(kv ...any) *Logger {
	return &Logger{zlog: l.zlog.With().Fields(pairs(kv)).Logger()}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, kv ...any) { l.emit(l.zlog.Debug(), msg, kv) }

// Info logs at info level.
func (l *Logger) Info(msg string, kv ...any) { l.emit(l.zlog.Info(), msg, kv) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string, kv ...any) { l.emit(l.zlog.Warn(), msg, kv) }

// Error logs at error level.
func (l *Logger) Error(msg string, kv ...any) { l.emit(l.zlog.Error(), msg, kv) }

func (l *Logger) emit(e *zerolog.Event, msg string, kv []any) {
	if e == nil {
		return
	}
	e.Fields(pairs(kv)).Msg(msg)
}

// pairs turns a key/value list into zerolog fields. Errors are logged under
// "error"; a dangling key is kept with a nil value.
func pairs(kv []any) map[string]any {
	fields := make(map[string]any, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			if err, isErr := kv[i].(error); isErr {
				fields[zerolog.ErrorFieldName] = err.Error()
				i--
				continue
			}
			key = "arg"
		}
		var val any
		if i+1 < len(kv) {
			val = kv[i+1]
		}
		if err, isErr := val.(error); isErr {
			val = err.Error()
		}
		fields[key] = val
	}
	return fields
}
