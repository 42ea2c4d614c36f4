package mysql

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeResult struct{}

func (fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (fakeResult) RowsAffected() (int64, error) { return 1, nil }

type fakeExecutor struct {
	query string
	args  []any
	err   error
}

func (f *fakeExecutor) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	f.query = query
	f.args = args
	if f.err != nil {
		return nil, f.err
	}
	return fakeResult{}, nil
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

func newTestStore(clock fixedClock) *Store {
	return &Store{
		cfg:     Config{Clock: clock}.withDefaults(),
		queries: newQueries("tillsync_kv"),
		table:   "tillsync_kv",
	}
}

func TestStorePutTxUpserts(t *testing.T) {
	now := time.Date(2024, 5, 10, 18, 30, 0, 0, time.UTC)
	store := newTestStore(fixedClock{now: now})
	exec := &fakeExecutor{}

	if err := store.PutTx(context.Background(), exec, "syncQueue:v2", []byte(`[]`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if !strings.Contains(exec.query, "ON DUPLICATE KEY UPDATE") {
		t.Fatalf("expected upsert query, got %q", exec.query)
	}
	if len(exec.args) != 3 {
		t.Fatalf("expected 3 args, got %d", len(exec.args))
	}
	if exec.args[0] != "syncQueue:v2" {
		t.Fatalf("unexpected key arg %v", exec.args[0])
	}
	if string(exec.args[1].([]byte)) != `[]` {
		t.Fatalf("unexpected value arg %v", exec.args[1])
	}
	if exec.args[2] != now {
		t.Fatalf("expected clock time as updated_at, got %v", exec.args[2])
	}
}

func TestStorePutTxNilValueStoresEmpty(t *testing.T) {
	store := newTestStore(fixedClock{})
	exec := &fakeExecutor{}

	if err := store.PutTx(context.Background(), exec, "k", nil); err != nil {
		t.Fatalf("put: %v", err)
	}
	value, ok := exec.args[1].([]byte)
	if !ok || value == nil {
		t.Fatalf("expected non-nil empty value, got %#v", exec.args[1])
	}
}

func TestStorePutTxValidation(t *testing.T) {
	store := newTestStore(fixedClock{})

	if err := store.PutTx(context.Background(), nil, "k", nil); !errors.Is(err, ErrExecutorRequired) {
		t.Fatalf("expected ErrExecutorRequired, got %v", err)
	}
	if err := store.PutTx(context.Background(), &fakeExecutor{}, "", nil); !errors.Is(err, ErrKeyRequired) {
		t.Fatalf("expected ErrKeyRequired, got %v", err)
	}
	long := strings.Repeat("k", maxKeyLength+1)
	if err := store.PutTx(context.Background(), &fakeExecutor{}, long, nil); !errors.Is(err, ErrKeyTooLong) {
		t.Fatalf("expected ErrKeyTooLong, got %v", err)
	}
}

func TestStorePutTxWrapsExecError(t *testing.T) {
	store := newTestStore(fixedClock{})
	boom := errors.New("boom")

	err := store.PutTx(context.Background(), &fakeExecutor{err: boom}, "k", []byte(`[]`))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped exec error, got %v", err)
	}
}

func TestNewStoreRequiresDB(t *testing.T) {
	if _, err := NewStore(nil); !errors.Is(err, ErrDBRequired) {
		t.Fatalf("expected ErrDBRequired, got %v", err)
	}
}

func TestNewStoreRejectsBadTable(t *testing.T) {
	db := &sql.DB{}
	if _, err := NewStore(db, WithTable("kv;drop")); !errors.Is(err, ErrInvalidTableName) {
		t.Fatalf("expected ErrInvalidTableName, got %v", err)
	}
}

func TestNewStoreDefaults(t *testing.T) {
	store, err := NewStore(&sql.DB{})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if store.Table() != defaultTable {
		t.Fatalf("expected default table %q, got %q", defaultTable, store.Table())
	}
}
