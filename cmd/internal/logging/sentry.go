package logging

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/velmie/tillsync"
)

const sentryFlushTimeout = 2 * time.Second

// SentryOptions identifies the running binary in Sentry.
type SentryOptions struct {
	DSN         string
	Environment string
	Release     string
}

// InitSentry configures the global hub. It returns nil when no DSN is set.
func InitSentry(opts SentryOptions) (*sentry.Hub, error) {
	if opts.DSN == "" {
		return nil, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              opts.DSN,
		AttachStacktrace: true,
		Release:          opts.Release,
		Environment:      opts.Environment,
		SampleRate:       1,
	})
	if err != nil {
		return nil, fmt.Errorf("logging: sentry init: %w", err)
	}

	return sentry.CurrentHub(), nil
}

// FlushSentry waits for buffered events. A nil hub is a no-op.
func FlushSentry(hub *sentry.Hub) {
	if hub != nil {
		hub.Flush(sentryFlushTimeout)
	}
}

// WithSentry returns s reporting error-level entries to hub. A nil hub returns s unchanged.
func WithSentry(s *zap.SugaredLogger, hub *sentry.Hub) *zap.SugaredLogger {
	if hub == nil {
		return s
	}

	return s.WithOptions(zap.Hooks(func(entry zapcore.Entry) error {
		if entry.Level >= zapcore.ErrorLevel {
			hub.CaptureMessage(entry.Message)
		}
		return nil
	}))
}

// Reporter sends dead-lettered items to Sentry.
type Reporter struct {
	hub *sentry.Hub
}

// NewReporter returns a reporter capturing on hub. A nil hub disables it.
func NewReporter(hub *sentry.Hub) *Reporter {
	return &Reporter{hub: hub}
}

// HandleDead is a tillsync.FailureHandler for tillsync.WithDeadLetterHandler.
func (r *Reporter) HandleDead(_ context.Context, item tillsync.Item, err error) {
	if r == nil || r.hub == nil {
		return
	}

	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("target", string(item.Target))
		scope.SetTag("item_id", item.ID.String())
		scope.SetTag("attempts", strconv.Itoa(item.Attempts))
		r.hub.CaptureException(fmt.Errorf("dead-lettered %s item: %w", item.Target, err))
	})
}
