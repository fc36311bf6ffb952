// Package gologger bridges zerolog into the go-logger contracts used by the
// session.
package gologger

import (
	"context"
	"io"
	"maps"
	"os"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/rs/zerolog"
)

// Resolve uses deterministic precedence provider > logger > nop.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	return glog.Resolve(name, provider, logger)
}

// ZerologLogger implements glog.Logger and glog.FieldsLogger on top of a
// zerolog.Logger.
type ZerologLogger struct {
	base   zerolog.Logger
	ctx    context.Context
	fields map[string]any
}

func NewZerologLogger(base zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{base: base}
}

// NewConsoleLogger writes human readable lines to w at the named level.
// Unknown levels fall back to info.
func NewConsoleLogger(w io.Writer, level string) *ZerologLogger {
	if w == nil {
		w = os.Stderr
	}
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	base := zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		Level(parsed).
		With().
		Timestamp().
		Logger()
	return NewZerologLogger(base)
}

func (l *ZerologLogger) Trace(msg string, args ...any) { l.emit(zerolog.TraceLevel, msg, args) }
func (l *ZerologLogger) Debug(msg string, args ...any) { l.emit(zerolog.DebugLevel, msg, args) }
func (l *ZerologLogger) Info(msg string, args ...any)  { l.emit(zerolog.InfoLevel, msg, args) }
func (l *ZerologLogger) Warn(msg string, args ...any)  { l.emit(zerolog.WarnLevel, msg, args) }
func (l *ZerologLogger) Error(msg string, args ...any) { l.emit(zerolog.ErrorLevel, msg, args) }

// Fatal logs at fatal level without terminating the process.
func (l *ZerologLogger) Fatal(msg string, args ...any) { l.emit(zerolog.FatalLevel, msg, args) }

func (l *ZerologLogger) WithContext(ctx context.Context) glog.Logger {
	if l == nil {
		return glog.Nop()
	}
	next := l.clone()
	next.ctx = ctx
	return next
}

func (l *ZerologLogger) WithFields(fields map[string]any) glog.Logger {
	if l == nil {
		return glog.Nop()
	}
	next := l.clone()
	if len(fields) > 0 {
		if next.fields == nil {
			next.fields = make(map[string]any, len(fields))
		}
		maps.Copy(next.fields, fields)
	}
	return next
}

func (l *ZerologLogger) clone() *ZerologLogger {
	next := &ZerologLogger{base: l.base, ctx: l.ctx}
	if len(l.fields) > 0 {
		next.fields = maps.Clone(l.fields)
	}
	return next
}

func (l *ZerologLogger) emit(level zerolog.Level, msg string, args []any) {
	if l == nil {
		return
	}
	event := l.base.WithLevel(level)
	if event == nil {
		return
	}
	if l.ctx != nil {
		event = event.Ctx(l.ctx)
	}
	if len(l.fields) > 0 {
		event = event.Fields(l.fields)
	}
	for index := 0; index < len(args); {
		key, ok := args[index].(string)
		if !ok || index+1 >= len(args) {
			event = event.Interface("arg", args[index])
			index++
			continue
		}
		if _, exists := l.fields[key]; !exists {
			event = event.Interface(key, args[index+1])
		}
		index += 2
	}
	event.Msg(msg)
}

// ZerologProvider hands out named child loggers sharing one zerolog root.
type ZerologProvider struct {
	root *ZerologLogger
}

func NewZerologProvider(root *ZerologLogger) *ZerologProvider {
	return &ZerologProvider{root: root}
}

func (p *ZerologProvider) GetLogger(name string) glog.Logger {
	if p == nil || p.root == nil {
		return glog.Nop()
	}
	next := p.root.clone()
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		next.base = next.base.With().Str("logger", trimmed).Logger()
	}
	return next
}

var (
	_ glog.Logger         = (*ZerologLogger)(nil)
	_ glog.FieldsLogger   = (*ZerologLogger)(nil)
	_ glog.LoggerProvider = (*ZerologProvider)(nil)
)
