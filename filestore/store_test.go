package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/velmie/tillsync"
)

func TestStoreGetMissing(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if _, err := store.Get(context.Background(), "syncQueue:v2"); !errors.Is(err, tillsync.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestStorePutGetOverwrite(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	if err := store.Put(ctx, "k", []byte(`[1]`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put(ctx, "k", []byte(`[1,2]`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `[1,2]` {
		t.Fatalf("unexpected value %s", got)
	}
}

func TestStoreFileLayout(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := store.Put(context.Background(), "syncQueue:v2", []byte(`[]`)); err != nil {
		t.Fatalf("put: %v", err)
	}

	path := filepath.Join(dir, "syncQueue%3Av2.json")
	if store.Path("syncQueue:v2") != path {
		t.Fatalf("unexpected path %s", store.Path("syncQueue:v2"))
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != filePerm {
		t.Fatalf("expected perm %o, got %o", filePerm, info.Mode().Perm())
	}
	if _, err := os.Stat(path + tmpSuffix); !os.IsNotExist(err) {
		t.Fatalf("expected temp file to be gone, got %v", err)
	}
}

func TestStoreKeysDoNotEscapeDir(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	path := store.Path("../../etc/passwd")
	if filepath.Dir(path) != dir {
		t.Fatalf("expected path inside %s, got %s", dir, path)
	}
}

func TestStoreValidation(t *testing.T) {
	if _, err := New(""); !errors.Is(err, ErrDirRequired) {
		t.Fatalf("expected ErrDirRequired, got %v", err)
	}
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := store.Put(context.Background(), "", nil); !errors.Is(err, ErrKeyRequired) {
		t.Fatalf("expected ErrKeyRequired, got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Get(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestOutboxSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := New(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	outbox := tillsync.NewOutbox(store)
	if _, err := outbox.Enqueue(ctx, tillsync.Entry{
		Target: tillsync.TargetControl,
		Body:   json.RawMessage(`{"date":"2024-05-10"}`),
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	reopened, err := New(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	items, err := tillsync.NewOutbox(reopened).DrainAll(ctx)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(items) != 1 || items[0].Target != tillsync.TargetControl {
		t.Fatalf("unexpected items %+v", items)
	}
}
