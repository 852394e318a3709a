// Package logger provides a context.Context aware structured logger. The
// logger that gets embedded in the context is usually a log15.Logger, which
// allows request and deployment scoped key/value pairs to be attached with
// With.
package logger

import (
	"context"
	"io"

	"github.com/inconshreveable/log15"
)

// Logger represents a structured, leveled logger.
type Logger interface {
	Debug(msg string, pairs ...interface{})
	Info(msg string, pairs ...interface{})
	Warn(msg string, pairs ...interface{})
	Error(msg string, pairs ...interface{})
	Crit(msg string, pairs ...interface{})
}

// New returns a log15.Logger that writes logfmt lines to w, dropping anything
// below the given level. At the debug level, the caller's file and line are
// included.
func New(w io.Writer, level string) (log15.Logger, error) {
	lvl, err := log15.LvlFromString(level)
	if err != nil {
		return nil, err
	}

	h := log15.LvlFilterHandler(lvl, log15.StreamHandler(w, log15.LogfmtFormat()))
	if lvl == log15.LvlDebug {
		h = log15.CallerFileHandler(h)
	}

	l := log15.New()
	l.SetHandler(log15.LazyHandler(h))
	return l, nil
}

// WithLogger returns a new context.Context with the Logger embedded.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the Logger embedded in the context, if any.
func FromContext(ctx context.Context) (Logger, bool) {
	l, ok := ctx.Value(loggerKey).(Logger)
	return l, ok
}

// With returns a context.Context whose logger includes the given key/value
// pairs on every line. If the embedded logger is not a log15.Logger, ctx is
// returned unchanged.
func With(ctx context.Context, pairs ...interface{}) context.Context {
	if l, ok := FromContext(ctx); ok {
		if l, ok := l.(log15.Logger); ok {
			return WithLogger(ctx, l.New(pairs...))
		}
	}
	return ctx
}

func Debug(ctx context.Context, msg string, pairs ...interface{}) {
	if l, ok := FromContext(ctx); ok {
		l.Debug(msg, pairs...)
	}
}

func Info(ctx context.Context, msg string, pairs ...interface{}) {
	if l, ok := FromContext(ctx); ok {
		l.Info(msg, pairs...)
	}
}

func Warn(ctx context.Context, msg string, pairs ...interface{}) {
	if l, ok := FromContext(ctx); ok {
		l.Warn(msg, pairs...)
	}
}

func Error(ctx context.Context, msg string, pairs ...interface{}) {
	if l, ok := FromContext(ctx); ok {
		l.Error(msg, pairs...)
	}
}

type key int

const (
	loggerKey key = iota
)
