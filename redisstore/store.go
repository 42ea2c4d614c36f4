// Package redisstore persists tillsync outboxes in Redis string keys.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/velmie/tillsync"
)

// ErrClientRequired is returned when a nil client is provided.
var ErrClientRequired = errors.New("tillsync redisstore: client is required")

// Client is the subset of redis.Cmdable used by Store.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// Store implements tillsync.KV with GET/SET.
type Store struct {
	client Client
	prefix string
}

var _ tillsync.KV = (*Store)(nil)

// Option configures the store.
type Option func(*Store)

// WithPrefix namespaces every key, e.g. "kiosk-7:".
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New returns a store on client.
func New(client Client, opts ...Option) (*Store, error) {
	if client == nil {
		return nil, ErrClientRequired
	}

	s := &Store{client: client}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Get implements tillsync.KV.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, tillsync.ErrKeyNotFound
		}

		return nil, fmt.Errorf("tillsync redisstore: get %q: %w", key, err)
	}

	return value, nil
}

// Put implements tillsync.KV. Keys never expire.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("tillsync redisstore: set %q: %w", key, err)
	}

	return nil
}
