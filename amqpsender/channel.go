package amqpsender

import (
	"context"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

var errNotConfirmMode = errors.New("tillsync amqpsender: channel is not in confirm mode")

// session is one connection with a confirm-mode channel.
type session interface {
	publish(ctx context.Context, exchange, key string, msg amqp.Publishing) error
	closed() bool
	close() error
}

type dialFunc func(url string) (session, error)

// ChannelPublisher publishes mandatory messages on a confirm-mode channel. Publishes are
// serialized. A lost connection or channel is redialed on the next Publish.
type ChannelPublisher struct {
	url  string
	dial dialFunc

	mu       sync.Mutex
	sess     session
	shutdown bool
}

var _ Publisher = (*ChannelPublisher)(nil)

// Dial connects to url and opens a channel in confirm mode.
func Dial(url string) (*ChannelPublisher, error) {
	return newChannelPublisher(url, dialSession)
}

func newChannelPublisher(url string, dial dialFunc) (*ChannelPublisher, error) {
	sess, err := dial(url)
	if err != nil {
		return nil, err
	}

	return &ChannelPublisher{url: url, dial: dial, sess: sess}, nil
}

// Publish implements Publisher. It returns ErrUnroutable when the broker returns the
// message and ErrNacked when the broker rejects it.
func (p *ChannelPublisher) Publish(ctx context.Context, exchange, key string, msg amqp.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.shutdown {
		return amqp.ErrClosed
	}
	if p.sess != nil && p.sess.closed() {
		p.discard()
	}
	if p.sess == nil {
		sess, err := p.dial(p.url)
		if err != nil {
			return err
		}
		p.sess = sess
	}

	err := p.sess.publish(ctx, exchange, key, msg)
	if err != nil && p.sess.closed() {
		p.discard()
	}

	return err
}

func (p *ChannelPublisher) discard() {
	_ = p.sess.close()
	p.sess = nil
}

// Close closes the channel and the connection. Later publishes fail with amqp.ErrClosed.
func (p *ChannelPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.shutdown = true
	if p.sess == nil {
		return nil
	}
	err := p.sess.close()
	p.sess = nil

	return err
}

type channelSession struct {
	conn    *amqp.Connection
	ch      *amqp.Channel
	returns chan amqp.Return
	closes  chan *amqp.Error
}

func dialSession(url string) (session, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("tillsync amqpsender: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("tillsync amqpsender: open channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("tillsync amqpsender: enable confirms: %w", err)
	}

	return &channelSession{
		conn:    conn,
		ch:      ch,
		returns: ch.NotifyReturn(make(chan amqp.Return, 1)),
		closes:  ch.NotifyClose(make(chan *amqp.Error, 1)),
	}, nil
}

func (s *channelSession) publish(ctx context.Context, exchange, key string, msg amqp.Publishing) error {
	drainReturns(s.returns)

	confirm, err := s.ch.PublishWithDeferredConfirmWithContext(ctx, exchange, key, true, false, msg)
	if err != nil {
		return err
	}
	if confirm == nil {
		return errNotConfirmMode
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return err
	}
	// The broker sends basic.return before the ack of an unroutable message.
	if err := returned(s.returns, msg.MessageId); err != nil {
		return err
	}
	if !acked {
		return ErrNacked
	}

	return nil
}

func (s *channelSession) closed() bool {
	select {
	case <-s.closes:
		return true
	default:
	}

	return s.ch.IsClosed() || s.conn.IsClosed()
}

func (s *channelSession) close() error {
	if s.conn.IsClosed() {
		return nil
	}

	return errors.Join(s.ch.Close(), s.conn.Close())
}

func drainReturns(returns <-chan amqp.Return) {
	for {
		select {
		case _, ok := <-returns:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// returned reports ErrUnroutable if a buffered return belongs to the message messageID.
func returned(returns <-chan amqp.Return, messageID string) error {
	for {
		select {
		case ret, ok := <-returns:
			if !ok {
				return amqp.ErrClosed
			}
			if messageID != "" && ret.MessageId != messageID {
				continue
			}
			return fmt.Errorf("%w: %d %s", ErrUnroutable, ret.ReplyCode, ret.ReplyText)
		default:
			return nil
		}
	}
}
