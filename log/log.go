// Package log provides the structured logger every long-lived task in this
// repository uses. It wraps log/slog with a terminal
// handler built on the same dependency set a go-ethereum-family node uses
// for colorized, caller-annotated log lines: go-stack/stack for the caller
// frame, mattn/go-isatty + mattn/go-colorable for terminal detection, and
// fatih/color for level coloring.
package log

import (
	"log/slog"
	"os"
)

// Logger is a component-scoped structured logger.
type Logger struct {
	slog *slog.Logger
}

var levelVar = func() *slog.LevelVar {
	v := new(slog.LevelVar)
	v.Set(slog.LevelInfo)
	return v
}()

var root = &Logger{slog: slog.New(NewTerminalHandler(os.Stderr, levelVar))}

// SetLevel adjusts the minimum level logged by every Logger obtained from
// Root or New.
func SetLevel(level slog.Level) {
	levelVar.Set(level)
}

// Root returns the package-wide root logger.
func Root() *Logger {
	return root
}

// New returns a logger scoped to a named component, e.g. log.New("sync").
func New(component string) *Logger {
	return &Logger{slog: root.slog.With("component", component)}
}

// With returns a logger with additional structured fields attached, e.g.
// logger.With("peer", addr).Warn("dropped frame").
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...)}
}

func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.slog.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.slog.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }
