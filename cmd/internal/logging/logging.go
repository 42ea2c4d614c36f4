// Package logging wires zap and Sentry into tillsync.
package logging

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/velmie/tillsync"
)

// New builds a production zap logger writing JSON to stderr at level.
func New(level, appName string) (*zap.SugaredLogger, error) {
	atomic, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("logging: level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = atomic
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: build: %w", err)
	}

	return logger.Sugar().With("appName", appName), nil
}

// Logger adapts a zap.SugaredLogger to tillsync.Logger.
type Logger struct {
	s *zap.SugaredLogger
}

var _ tillsync.Logger = Logger{}

// NewLogger wraps s.
func NewLogger(s *zap.SugaredLogger) Logger {
	return Logger{s: s}
}

// Debug implements tillsync.Logger.
func (l Logger) Debug(msg string, args ...any) {
	l.s.Debugw(msg, args...)
}

// Info implements tillsync.Logger.
func (l Logger) Info(msg string, args ...any) {
	l.s.Infow(msg, args...)
}

// Warn implements tillsync.Logger.
func (l Logger) Warn(msg string, args ...any) {
	l.s.Warnw(msg, args...)
}

// Error implements tillsync.Logger.
func (l Logger) Error(msg string, args ...any) {
	l.s.Errorw(msg, args...)
}
