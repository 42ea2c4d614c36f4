package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/velmie/tillsync"
)

// Executor allows writing within an existing transaction.
type Executor interface {
	// ExecContext executes a statement with the provided context.
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Store implements tillsync.KV on a MySQL key/value table.
type Store struct {
	db      *sql.DB
	cfg     Config
	queries queries
	table   string
}

var _ tillsync.KV = (*Store)(nil)

// NewStore constructs a MySQL store with validated configuration.
func NewStore(db *sql.DB, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, ErrDBRequired
	}

	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg = cfg.withDefaults()

	table, err := sanitizeTableName(cfg.Table)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:      db,
		cfg:     cfg,
		queries: newQueries(table),
		table:   table,
	}, nil
}

// MustNewStore constructs a MySQL store or panics on error.
func MustNewStore(db *sql.DB, opts ...Option) *Store {
	store, err := NewStore(db, opts...)
	if err != nil {
		panic(err)
	}

	return store
}

// Table returns the sanitized table name.
func (s *Store) Table() string {
	return s.table
}

// Get implements tillsync.KV.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	var value []byte
	err := s.db.QueryRowContext(ctx, s.queries.selectValue, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tillsync.ErrKeyNotFound
		}

		return nil, fmt.Errorf("tillsync mysql: select failed: %w", err)
	}

	return value, nil
}

// Put implements tillsync.KV.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	return s.PutTx(ctx, s.db, key, value)
}

// PutTx upserts key using the provided executor (transaction preferred).
func (s *Store) PutTx(ctx context.Context, exec Executor, key string, value []byte) error {
	if exec == nil {
		return ErrExecutorRequired
	}
	if err := validateKey(key); err != nil {
		return err
	}
	if value == nil {
		value = []byte{}
	}

	if _, err := exec.ExecContext(ctx, s.queries.upsert, key, value, s.cfg.Clock.Now()); err != nil {
		return fmt.Errorf("tillsync mysql: upsert failed: %w", err)
	}

	return nil
}

func validateKey(key string) error {
	if key == "" {
		return ErrKeyRequired
	}
	if len(key) > maxKeyLength {
		return fmt.Errorf("%w: %d bytes", ErrKeyTooLong, len(key))
	}

	return nil
}
