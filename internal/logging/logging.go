// Package logging is the shell's process-wide logger. It wraps log/slog so the
// same handler serves the printf-style helpers and components that take a
// *slog.Logger.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

var (
	disabled atomic.Bool
	level    = new(slog.LevelVar)
	logger   atomic.Pointer[slog.Logger]
)

func init() {
	logger.Store(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

// Setup replaces the handler. format is "text" or "json"; lvl is one of
// debug, info, warn, error (unknown values mean info).
func Setup(w io.Writer, format, lvl string) {
	level.Set(ParseLevel(lvl))
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	logger.Store(slog.New(h))
}

// ParseLevel maps a config string to a slog level.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLevel changes the level at runtime.
func SetLevel(lvl string) {
	level.Set(ParseLevel(lvl))
}

// Slog returns the underlying logger, or a discarding one while disabled.
func Slog() *slog.Logger {
	if disabled.Load() {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return logger.Load()
}

// Disable turns off all logging
func Disable() {
	disabled.Store(true)
}

// Enable turns logging back on
func Enable() {
	disabled.Store(false)
}

func log(l slog.Level, msg string) {
	if disabled.Load() {
		return
	}
	logger.Load().Log(context.Background(), l, msg)
}

// Info logs an info message
func Info(v ...any) { log(slog.LevelInfo, strings.TrimSuffix(fmt.Sprintln(v...), "\n")) }

// Infof logs a formatted info message
func Infof(format string, v ...any) { log(slog.LevelInfo, fmt.Sprintf(format, v...)) }

// Warn logs a warning message
func Warn(v ...any) { log(slog.LevelWarn, strings.TrimSuffix(fmt.Sprintln(v...), "\n")) }

// Warnf logs a formatted warning message
func Warnf(format string, v ...any) { log(slog.LevelWarn, fmt.Sprintf(format, v...)) }

// Error logs an error message
func Error(v ...any) { log(slog.LevelError, strings.TrimSuffix(fmt.Sprintln(v...), "\n")) }

// Errorf logs a formatted error message
func Errorf(format string, v ...any) { log(slog.LevelError, fmt.Sprintf(format, v...)) }

// Debug logs a debug message
func Debug(v ...any) { log(slog.LevelDebug, strings.TrimSuffix(fmt.Sprintln(v...), "\n")) }

// Debugf logs a formatted debug message
func Debugf(format string, v ...any) { log(slog.LevelDebug, fmt.Sprintf(format, v...)) }
