package tillsync

import (
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultQueueKey is the storage key of the pending list.
	DefaultQueueKey = "syncQueue:v2"

	deadKeySuffix      = ":dead"
	defaultSendTimeout = 30 * time.Second
	maxErrorLen        = 1024
)

// IDGenerator creates item identifiers.
type IDGenerator func() (uuid.UUID, error)

// OutboxConfig defines where and how the outbox persists items.
type OutboxConfig struct {
	Key       string
	DeadKey   string
	Clock     Clock
	Logger    Logger
	Generator IDGenerator
}

func (c OutboxConfig) withDefaults() OutboxConfig {
	if c.Key == "" {
		c.Key = DefaultQueueKey
	}
	if c.DeadKey == "" {
		c.DeadKey = c.Key + deadKeySuffix
	}
	if c.Clock == nil {
		c.Clock = SystemClock{}
	}
	if c.Logger == nil {
		c.Logger = NopLogger{}
	}
	if c.Generator == nil {
		c.Generator = uuid.NewV7
	}

	return c
}

// OutboxOption configures an Outbox.
type OutboxOption func(*OutboxConfig)

// WithKey sets the storage key of the pending list. The dead list defaults to key + ":dead".
func WithKey(key string) OutboxOption {
	return func(c *OutboxConfig) {
		c.Key = key
	}
}

// WithDeadKey sets the storage key of the dead list.
func WithDeadKey(key string) OutboxOption {
	return func(c *OutboxConfig) {
		c.DeadKey = key
	}
}

// WithOutboxClock sets the clock used for CreatedAt.
func WithOutboxClock(clock Clock) OutboxOption {
	return func(c *OutboxConfig) {
		c.Clock = clock
	}
}

// WithOutboxLogger sets the outbox logger.
func WithOutboxLogger(logger Logger) OutboxOption {
	return func(c *OutboxConfig) {
		c.Logger = logger
	}
}

// WithGenerator sets the item ID generator.
func WithGenerator(gen IDGenerator) OutboxOption {
	return func(c *OutboxConfig) {
		c.Generator = gen
	}
}

// EngineConfig defines how the Engine delivers items.
type EngineConfig struct {
	MaxAttempts       int
	SendTimeout       time.Duration
	SyncInterval      time.Duration
	Clock             Clock
	Logger            Logger
	Metrics           Metrics
	ErrorHandler      FailureHandler
	DeadLetterHandler FailureHandler
	FailureClassifier FailureClassifier
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.MaxAttempts < 0 {
		c.MaxAttempts = 0
	}
	if c.SendTimeout == 0 {
		c.SendTimeout = defaultSendTimeout
	}
	if c.Clock == nil {
		c.Clock = SystemClock{}
	}
	if c.Logger == nil {
		c.Logger = NopLogger{}
	}
	if c.Metrics == nil {
		c.Metrics = NopMetrics{}
	}
	if c.FailureClassifier == nil {
		c.FailureClassifier = defaultFailureClassifier
	}

	return c
}

// EngineOption configures Engine behavior.
type EngineOption func(*EngineConfig)

// WithMaxAttempts sets how many failed attempts an item may accumulate before it is dead-lettered.
// Zero (the default) retries forever.
func WithMaxAttempts(attempts int) EngineOption {
	return func(c *EngineConfig) {
		c.MaxAttempts = attempts
	}
}

// WithSendTimeout bounds a single delivery attempt. A negative value disables the bound.
func WithSendTimeout(timeout time.Duration) EngineOption {
	return func(c *EngineConfig) {
		c.SendTimeout = timeout
	}
}

// WithSyncInterval makes Run flush periodically in addition to connectivity transitions.
// Zero (the default) disables periodic flushing.
func WithSyncInterval(interval time.Duration) EngineOption {
	return func(c *EngineConfig) {
		c.SyncInterval = interval
	}
}

// WithClock sets the engine clock.
func WithClock(clock Clock) EngineOption {
	return func(c *EngineConfig) {
		c.Clock = clock
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger Logger) EngineOption {
	return func(c *EngineConfig) {
		c.Logger = logger
	}
}

// WithMetrics sets the engine metrics recorder.
func WithMetrics(metrics Metrics) EngineOption {
	return func(c *EngineConfig) {
		c.Metrics = metrics
	}
}

// WithErrorHandler registers a callback for delivery failures.
func WithErrorHandler(handler FailureHandler) EngineOption {
	return func(c *EngineConfig) {
		c.ErrorHandler = handler
	}
}

// WithDeadLetterHandler registers a callback for items moved to the dead list. The item
// passed carries the final attempt count and last error.
func WithDeadLetterHandler(handler FailureHandler) EngineOption {
	return func(c *EngineConfig) {
		c.DeadLetterHandler = handler
	}
}

// WithFailureClassifier sets the failure classifier for retry/dead-letter decisions.
func WithFailureClassifier(classifier FailureClassifier) EngineOption {
	return func(c *EngineConfig) {
		c.FailureClassifier = classifier
	}
}
