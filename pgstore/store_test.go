package pgstore

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"
)

func TestNewValidation(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrDBRequired) {
		t.Fatalf("expected ErrDBRequired, got %v", err)
	}
	if _, err := Open(context.Background(), ""); !errors.Is(err, ErrDSNRequired) {
		t.Fatalf("expected ErrDSNRequired, got %v", err)
	}
}

func TestNewDefaults(t *testing.T) {
	store, err := New(&gorm.DB{}, WithTable(""), WithClock(nil))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if store.table != defaultTable {
		t.Fatalf("expected default table, got %q", store.table)
	}
	if store.clock == nil {
		t.Fatalf("expected default clock")
	}
}

func TestKeyRequired(t *testing.T) {
	store, err := New(&gorm.DB{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := store.Get(context.Background(), ""); !errors.Is(err, ErrKeyRequired) {
		t.Fatalf("expected ErrKeyRequired, got %v", err)
	}
	if err := store.Put(context.Background(), "", nil); !errors.Is(err, ErrKeyRequired) {
		t.Fatalf("expected ErrKeyRequired, got %v", err)
	}
	if err := store.PutTx(context.Background(), nil, "k", nil); !errors.Is(err, ErrDBRequired) {
		t.Fatalf("expected ErrDBRequired, got %v", err)
	}
}
