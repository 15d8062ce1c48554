// Package logging wraps zerolog behind the narrow Logger/LogEvent/LogContext
// interfaces so the rest of the engine never imports zerolog directly,
// matching the teacher's pkg/utils/logger.go.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the contract every component logs through.
type Logger interface {
	Debug(msg string) LogEvent
	Info(msg string) LogEvent
	Warn(msg string) LogEvent
	Error(msg string, err error) LogEvent
	With() LogContext
}

// LogEvent accumulates structured fields before being emitted.
type LogEvent interface {
	Str(key, value string) LogEvent
	Int(key string, value int) LogEvent
	Int64(key string, value int64) LogEvent
	Dur(key string, value time.Duration) LogEvent
	Bool(key string, value bool) LogEvent
	Err(err error) LogEvent
	Send()
}

// LogContext builds a child Logger with fields attached to every event it
// emits.
type LogContext interface {
	Str(key, value string) LogContext
	Int(key string, value int) LogContext
	Logger() Logger
}

// ZerologLogger is the default, real Logger implementation.
type ZerologLogger struct {
	z zerolog.Logger
}

// NewConsoleLogger returns a human-readable, colorized logger for
// interactive CLI use.
func NewConsoleLogger(level string, w io.Writer) *ZerologLogger {
	if w == nil {
		w = os.Stderr
	}
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	z := zerolog.New(cw).With().Timestamp().Logger().Level(parseLevel(level))
	return &ZerologLogger{z: z}
}

// NewJSONLogger returns a structured JSON logger, for non-interactive /
// production use.
func NewJSONLogger(level string, w io.Writer) *ZerologLogger {
	if w == nil {
		w = os.Stderr
	}
	z := zerolog.New(w).With().Timestamp().Logger().Level(parseLevel(level))
	return &ZerologLogger{z: z}
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

func (l *ZerologLogger) Debug(msg string) LogEvent   { return &zerologEvent{e: l.z.Debug(), msg: msg} }
func (l *ZerologLogger) Info(msg string) LogEvent    { return &zerologEvent{e: l.z.Info(), msg: msg} }
func (l *ZerologLogger) Warn(msg string) LogEvent    { return &zerologEvent{e: l.z.Warn(), msg: msg} }
func (l *ZerologLogger) Error(msg string, err error) LogEvent {
	return &zerologEvent{e: l.z.Error().Err(err), msg: msg}
}
func (l *ZerologLogger) With() LogContext { return &zerologContext{ctx: l.z.With()} }

type zerologEvent struct {
	e   *zerolog.Event
	msg string
}

func (e *zerologEvent) Str(key, value string) LogEvent {
	e.e = e.e.Str(key, value)
	return e
}
func (e *zerologEvent) Int(key string, value int) LogEvent {
	e.e = e.e.Int(key, value)
	return e
}
func (e *zerologEvent) Int64(key string, value int64) LogEvent {
	e.e = e.e.Int64(key, value)
	return e
}
func (e *zerologEvent) Dur(key string, value time.Duration) LogEvent {
	e.e = e.e.Dur(key, value)
	return e
}
func (e *zerologEvent) Bool(key string, value bool) LogEvent {
	e.e = e.e.Bool(key, value)
	return e
}
func (e *zerologEvent) Err(err error) LogEvent {
	e.e = e.e.Err(err)
	return e
}
func (e *zerologEvent) Send() { e.e.Msg(e.msg) }

type zerologContext struct {
	ctx zerolog.Context
}

func (c *zerologContext) Str(key, value string) LogContext {
	c.ctx = c.ctx.Str(key, value)
	return c
}
func (c *zerologContext) Int(key string, value int) LogContext {
	c.ctx = c.ctx.Int(key, value)
	return c
}
func (c *zerologContext) Logger() Logger {
	return &ZerologLogger{z: c.ctx.Logger()}
}

// Nop returns a Logger that discards everything, for tests that don't care
// about log output.
func Nop() Logger {
	return &ZerologLogger{z: zerolog.Nop()}
}
