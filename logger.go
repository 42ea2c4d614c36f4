package tillsync

import (
	"fmt"
	"log"
	"strings"
)

// Logger provides structured logging hooks. Args are key/value pairs.
type Logger interface {
	// Debug logs a debug message.
	Debug(msg string, args ...any)
	// Info logs an informational message.
	Info(msg string, args ...any)
	// Warn logs a warning message.
	Warn(msg string, args ...any)
	// Error logs an error message.
	Error(msg string, args ...any)
}

// NopLogger is a no-op logger.
type NopLogger struct{}

// Debug implements Logger.
func (NopLogger) Debug(string, ...any) {}

// Info implements Logger.
func (NopLogger) Info(string, ...any) {}

// Warn implements Logger.
func (NopLogger) Warn(string, ...any) {}

// Error implements Logger.
func (NopLogger) Error(string, ...any) {}

// StdLogger writes key=value lines through a standard library logger.
type StdLogger struct {
	Logger  *log.Logger
	Verbose bool
}

// Debug implements Logger. It is silent unless Verbose is set.
func (l StdLogger) Debug(msg string, args ...any) {
	if !l.Verbose {
		return
	}
	l.print("DEBUG", msg, args)
}

// Info implements Logger.
func (l StdLogger) Info(msg string, args ...any) {
	l.print("INFO", msg, args)
}

// Warn implements Logger.
func (l StdLogger) Warn(msg string, args ...any) {
	l.print("WARN", msg, args)
}

// Error implements Logger.
func (l StdLogger) Error(msg string, args ...any) {
	l.print("ERROR", msg, args)
}

func (l StdLogger) print(level, msg string, args []any) {
	logger := l.Logger
	if logger == nil {
		logger = log.Default()
	}
	if len(args) == 0 {
		logger.Printf("%s %s", level, msg)

		return
	}
	logger.Printf("%s %s %s", level, msg, formatArgs(args))
}

func formatArgs(args []any) string {
	pairs := make([]string, 0, (len(args)+1)/2)
	for i := 0; i < len(args); i += 2 {
		key := args[i]
		val := any("<missing>")
		if i+1 < len(args) {
			val = args[i+1]
		}
		pairs = append(pairs, fmt.Sprintf("%v=%v", key, val))
	}

	return strings.Join(pairs, " ")
}
