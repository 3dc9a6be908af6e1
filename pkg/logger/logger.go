package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a thin zerolog wrapper taking typed fields.
type Logger struct {
	zl zerolog.Logger
}

type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json or console
	Output     string // stdout, stderr, or file path
	TimeFormat string
}

func New(cfg *Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	out, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}

	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339Nano
	}
	zerolog.TimeFieldFormat = timeFormat

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: timeFormat}
	}
	return NewWithWriter(out, level), nil
}

func openOutput(target string) (io.Writer, error) {
	switch target {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	f, err := os.OpenFile(target, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", target, err)
	}
	return f, nil
}

// NewWithWriter builds a logger writing JSON lines to w at level.
func NewWithWriter(w io.Writer, level zerolog.Level) *Logger {
	zl := zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		CallerWithSkipFrameCount(3).
		Logger()
	return &Logger{zl: zl}
}

// Nop returns a logger that discards everything.
func Nop() *Logger { return &Logger{zl: zerolog.Nop()} }

// With returns a child logger carrying key=value on every line.
func (l *Logger) With(key, value string) *Logger {
	return &Logger{zl: l.zl.With().Str(key, value).Logger()}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.emit(l.zl.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { l.emit(l.zl.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.emit(l.zl.Warn(), msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { l.emit(l.zl.Error(), msg, fields) }

func (l *Logger) emit(e *zerolog.Event, msg string, fields []Field) {
	if e == nil {
		return
	}
	for _, f := range fields {
		f(e)
	}
	e.Msg(msg)
}

// Field attaches one key to a log event.
type Field func(e *zerolog.Event)

func String(key, value string) Field {
	return func(e *zerolog.Event) { e.Str(key, value) }
}

func Int(key string, value int) Field {
	return func(e *zerolog.Event) { e.Int(key, value) }
}

func Int64(key string, value int64) Field {
	return func(e *zerolog.Event) { e.Int64(key, value) }
}

func Float64(key string, value float64) Field {
	return func(e *zerolog.Event) { e.Float64(key, value) }
}

func Bool(key string, value bool) Field {
	return func(e *zerolog.Event) { e.Bool(key, value) }
}

// Duration is logged in whole milliseconds.
func Duration(key string, value time.Duration) Field {
	return func(e *zerolog.Event) { e.Int64(key, value.Milliseconds()) }
}

func Any(key string, value interface{}) Field {
	return func(e *zerolog.Event) { e.Interface(key, value) }
}

func Error(err error) Field {
	return func(e *zerolog.Event) { e.Err(err) }
}
