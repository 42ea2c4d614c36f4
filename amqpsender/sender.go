// Package amqpsender delivers tillsync items by publishing them to a RabbitMQ exchange.
//
// The routing key is the item target. A delivery counts as sent only once the
// broker confirms the message.
package amqpsender

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/velmie/tillsync"
)

const defaultTokenField = "token"

var (
	// ErrPublisherRequired is returned when a nil publisher is provided.
	ErrPublisherRequired = errors.New("tillsync amqpsender: publisher is required")
	// ErrNacked is returned when the broker negatively acknowledges a publish.
	ErrNacked = errors.New("tillsync amqpsender: publish not confirmed")
	// ErrUnroutable is returned when the broker returns a message no queue accepted.
	// It is retried, since the queue may be declared later.
	ErrUnroutable = errors.New("tillsync amqpsender: message unroutable")
)

// Publisher publishes one message and waits for the broker confirmation.
type Publisher interface {
	Publish(ctx context.Context, exchange, key string, msg amqp.Publishing) error
}

// Config defines sender behavior.
type Config struct {
	Exchange   string
	Token      string
	TokenField string
	AppID      string
}

// Option configures the sender.
type Option func(*Config)

// WithExchange sets the exchange. The default exchange ("") routes by queue name.
func WithExchange(name string) Option {
	return func(c *Config) {
		c.Exchange = name
	}
}

// WithToken sets the shared secret merged into every body.
func WithToken(token string) Option {
	return func(c *Config) {
		c.Token = token
	}
}

// WithTokenField renames the body field carrying the token.
func WithTokenField(field string) Option {
	return func(c *Config) {
		c.TokenField = field
	}
}

// WithAppID sets the AppId message property.
func WithAppID(id string) Option {
	return func(c *Config) {
		c.AppID = id
	}
}

// Sender implements tillsync.Sender on an AMQP publisher.
type Sender struct {
	publisher Publisher
	cfg       Config
}

var _ tillsync.Sender = (*Sender)(nil)

// New returns a sender on publisher.
func New(publisher Publisher, opts ...Option) (*Sender, error) {
	if publisher == nil {
		return nil, ErrPublisherRequired
	}

	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.TokenField == "" {
		cfg.TokenField = defaultTokenField
	}

	return &Sender{publisher: publisher, cfg: cfg}, nil
}

// Send implements tillsync.Sender.
func (s *Sender) Send(ctx context.Context, item tillsync.Item) error {
	body, err := tillsync.MergeField(item.Body, s.cfg.TokenField, s.cfg.Token)
	if err != nil {
		return err
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    item.ID.String(),
		Timestamp:    item.CreatedAt,
		Type:         string(item.Target),
		AppId:        s.cfg.AppID,
		Body:         body,
	}
	if err := s.publisher.Publish(ctx, s.cfg.Exchange, string(item.Target), msg); err != nil {
		return fmt.Errorf("tillsync amqpsender: publish %s: %w", item.Target, err)
	}

	return nil
}

// Classify dead-letters items whose body can never be published.
func Classify(_ context.Context, _ tillsync.Item, err error) tillsync.FailureAction {
	if errors.Is(err, tillsync.ErrBodyNotObject) {
		return tillsync.FailureDead
	}

	return tillsync.FailureRetry
}
