package tillsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Outbox is the durable ordered list of items waiting for delivery.
//
// All read-modify-write cycles are serialized within the process. Separate processes
// sharing one backend are not coordinated.
type Outbox struct {
	kv  KV
	cfg OutboxConfig
	mu  sync.Mutex
}

// NewOutbox constructs an Outbox over kv.
func NewOutbox(kv KV, opts ...OutboxOption) *Outbox {
	if kv == nil {
		panic("tillsync: nil KV")
	}

	var cfg OutboxConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Outbox{kv: kv, cfg: cfg.withDefaults()}
}

// Key returns the storage key of the pending list.
func (o *Outbox) Key() string {
	return o.cfg.Key
}

// Enqueue appends one entry and persists the list. The returned error reports
// that the entry was not durably queued.
func (o *Outbox) Enqueue(ctx context.Context, entry Entry) (Item, error) {
	items, err := o.EnqueueMany(ctx, []Entry{entry})
	if err != nil {
		return Item{}, err
	}

	return items[0], nil
}

// EnqueueMany appends entries in order. Every entry is validated before anything is written.
func (o *Outbox) EnqueueMany(ctx context.Context, entries []Entry) ([]Item, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	created := make([]Item, 0, len(entries))
	for i, entry := range entries {
		if err := entry.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		item, err := o.newItem(entry)
		if err != nil {
			return nil, err
		}
		created = append(created, item)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	items, err := o.load(ctx, o.cfg.Key)
	if err != nil {
		return nil, err
	}
	items = append(items, created...)
	if err := o.save(ctx, o.cfg.Key, items); err != nil {
		return nil, fmt.Errorf("tillsync: enqueue failed: %w", err)
	}
	o.cfg.Logger.Debug("tillsync enqueued", "count", len(created), "pending", len(items))

	return created, nil
}

// DrainAll returns the full pending list without removing anything.
func (o *Outbox) DrainAll(ctx context.Context) ([]Item, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.load(ctx, o.cfg.Key)
}

// ReplaceAll overwrites the pending list.
func (o *Outbox) ReplaceAll(ctx context.Context, items []Item) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.save(ctx, o.cfg.Key, items)
}

// Pending returns the number of pending items.
func (o *Outbox) Pending(ctx context.Context) (int, error) {
	items, err := o.DrainAll(ctx)
	if err != nil {
		return 0, err
	}

	return len(items), nil
}

// Dead returns the dead-lettered items.
func (o *Outbox) Dead(ctx context.Context) ([]Item, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.load(ctx, o.cfg.DeadKey)
}

// RequeueDead moves dead items back to the end of the pending list with their attempts reset.
// With no ids every dead item is moved. It returns the number of items moved.
func (o *Outbox) RequeueDead(ctx context.Context, ids ...uuid.UUID) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	dead, err := o.load(ctx, o.cfg.DeadKey)
	if err != nil {
		return 0, err
	}
	pending, err := o.load(ctx, o.cfg.Key)
	if err != nil {
		return 0, err
	}

	var (
		moved []Item
		left  []Item
	)
	for _, item := range dead {
		if len(ids) > 0 && !slices.Contains(ids, item.ID) {
			left = append(left, item)

			continue
		}
		item.Attempts = 0
		item.LastError = ""
		moved = append(moved, item)
	}
	if len(moved) == 0 {
		return 0, nil
	}

	// Pending first: a crash in between duplicates, it never drops.
	if err := o.save(ctx, o.cfg.Key, append(pending, moved...)); err != nil {
		return 0, fmt.Errorf("tillsync: requeue failed: %w", err)
	}
	if err := o.save(ctx, o.cfg.DeadKey, left); err != nil {
		return 0, fmt.Errorf("tillsync: requeue failed: %w", err)
	}
	o.cfg.Logger.Info("tillsync requeued dead items", "count", len(moved))

	return len(moved), nil
}

// PurgeDead drops every dead item and returns how many were removed.
func (o *Outbox) PurgeDead(ctx context.Context) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	dead, err := o.load(ctx, o.cfg.DeadKey)
	if err != nil {
		return 0, err
	}
	if len(dead) == 0 {
		return 0, nil
	}
	if err := o.save(ctx, o.cfg.DeadKey, nil); err != nil {
		return 0, fmt.Errorf("tillsync: purge failed: %w", err)
	}

	return len(dead), nil
}

// commit persists the outcome of a flush pass over the first snapshotLen items.
// Items appended after the snapshot are kept behind the survivors. It returns the
// resulting pending count.
func (o *Outbox) commit(ctx context.Context, snapshotLen int, kept, dead []Item) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(dead) > 0 {
		existing, err := o.load(ctx, o.cfg.DeadKey)
		if err != nil {
			return 0, err
		}
		if err := o.save(ctx, o.cfg.DeadKey, append(existing, dead...)); err != nil {
			return 0, fmt.Errorf("tillsync: dead-letter write failed: %w", err)
		}
	}

	current, err := o.load(ctx, o.cfg.Key)
	if err != nil {
		return 0, err
	}
	pending := make([]Item, 0, len(kept))
	pending = append(pending, kept...)
	switch {
	case len(current) > snapshotLen:
		pending = append(pending, current[snapshotLen:]...)
	case len(current) < snapshotLen:
		o.cfg.Logger.Warn("tillsync outbox shrank during flush", "snapshot", snapshotLen, "current", len(current))
	}

	if err := o.save(ctx, o.cfg.Key, pending); err != nil {
		return 0, fmt.Errorf("tillsync: pending write failed: %w", err)
	}

	return len(pending), nil
}

func (o *Outbox) newItem(entry Entry) (Item, error) {
	id, err := o.cfg.Generator()
	if err != nil {
		return Item{}, fmt.Errorf("tillsync: generate id failed: %w", err)
	}

	return Item{
		ID:        id,
		Target:    entry.Target,
		Body:      slices.Clone(entry.Body),
		CreatedAt: o.cfg.Clock.Now(),
	}, nil
}

func (o *Outbox) load(ctx context.Context, key string) ([]Item, error) {
	raw, err := o.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("tillsync: read %q failed: %w", key, err)
	}

	items, err := decodeItems(raw)
	if err != nil {
		o.cfg.Logger.Warn("tillsync discarding unreadable outbox snapshot", "key", key, "err", err)

		return nil, nil
	}

	return items, nil
}

func (o *Outbox) save(ctx context.Context, key string, items []Item) error {
	raw, err := encodeItems(items)
	if err != nil {
		return err
	}

	return o.kv.Put(ctx, key, raw)
}

func decodeItems(raw []byte) ([]Item, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var items []Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}

	return items, nil
}

func encodeItems(items []Item) ([]byte, error) {
	if items == nil {
		items = []Item{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("tillsync: encode outbox failed: %w", err)
	}

	return raw, nil
}
