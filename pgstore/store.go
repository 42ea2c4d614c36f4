// Package pgstore persists tillsync outboxes in a Postgres key/value table through gorm.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/velmie/tillsync"
)

const defaultTable = "tillsync_kv"

var (
	// ErrDBRequired is returned when a nil *gorm.DB is provided.
	ErrDBRequired = errors.New("tillsync pgstore: db is required")
	// ErrDSNRequired is returned by Open when the DSN is empty.
	ErrDSNRequired = errors.New("tillsync pgstore: dsn is required")
	// ErrKeyRequired is returned when an empty key is used.
	ErrKeyRequired = errors.New("tillsync pgstore: key is required")
)

type kvModel struct {
	Key       string    `gorm:"column:k;primaryKey;size:191"`
	Value     []byte    `gorm:"column:v;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (kvModel) TableName() string {
	return defaultTable
}

// Store implements tillsync.KV on a gorm-managed table.
type Store struct {
	db    *gorm.DB
	table string
	clock tillsync.Clock
}

var _ tillsync.KV = (*Store)(nil)

// Option configures the store.
type Option func(*Store)

// WithTable overrides the table name.
func WithTable(name string) Option {
	return func(s *Store) {
		s.table = name
	}
}

// WithClock sets the time source for updated_at.
func WithClock(clock tillsync.Clock) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, ErrDSNRequired
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("tillsync pgstore: open: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("tillsync pgstore: resolve sql db handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("tillsync pgstore: ping: %w", err)
	}

	return db, nil
}

// New returns a store on db.
func New(db *gorm.DB, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, ErrDBRequired
	}

	s := &Store{db: db, table: defaultTable, clock: tillsync.SystemClock{}}
	for _, opt := range opts {
		opt(s)
	}
	if s.table == "" {
		s.table = defaultTable
	}
	if s.clock == nil {
		s.clock = tillsync.SystemClock{}
	}

	return s, nil
}

// AutoMigrate creates or updates the key/value table.
func (s *Store) AutoMigrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Table(s.table).AutoMigrate(&kvModel{}); err != nil {
		return fmt.Errorf("tillsync pgstore: migrate %s: %w", s.table, err)
	}

	return nil
}

// Get implements tillsync.KV.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrKeyRequired
	}

	var row kvModel
	err := s.db.WithContext(ctx).Table(s.table).Where("k = ?", key).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tillsync.ErrKeyNotFound
		}

		return nil, fmt.Errorf("tillsync pgstore: select %q: %w", key, err)
	}

	return row.Value, nil
}

// Put implements tillsync.KV.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	return s.PutTx(ctx, s.db, key, value)
}

// PutTx upserts key through tx, typically obtained from db.Transaction.
func (s *Store) PutTx(ctx context.Context, tx *gorm.DB, key string, value []byte) error {
	if tx == nil {
		return ErrDBRequired
	}
	if key == "" {
		return ErrKeyRequired
	}
	if value == nil {
		value = []byte{}
	}

	row := kvModel{Key: key, Value: value, UpdatedAt: s.clock.Now().UTC()}
	err := tx.WithContext(ctx).Table(s.table).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "k"}},
		DoUpdates: clause.AssignmentColumns([]string{"v", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("tillsync pgstore: upsert %q: %w", key, err)
	}

	return nil
}
