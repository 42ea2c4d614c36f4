package tillsync

import (
	"context"
	"errors"
	"testing"
)

func TestRouterDispatchesByTarget(t *testing.T) {
	var got []Target
	record := func(target Target) Sender {
		return SenderFunc(func(context.Context, Item) error {
			got = append(got, target)
			return nil
		})
	}
	router := Router{
		TargetMain:    record(TargetMain),
		TargetControl: record(TargetControl),
	}

	for _, target := range []Target{TargetControl, TargetMain} {
		if err := router.Send(context.Background(), Item{Target: target}); err != nil {
			t.Fatalf("send %s: %v", target, err)
		}
	}
	if len(got) != 2 || got[0] != TargetControl || got[1] != TargetMain {
		t.Fatalf("unexpected dispatch order %v", got)
	}

	err := router.Send(context.Background(), Item{Target: TargetCommissions})
	if !errors.Is(err, ErrUnknownTarget) {
		t.Fatalf("expected unknown target, got %v", err)
	}
}

func TestMemoryKVCopiesValues(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	value := []byte("abc")
	if err := kv.Put(ctx, "k", value); err != nil {
		t.Fatalf("put: %v", err)
	}
	value[0] = 'x'

	got, err := kv.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "abc" {
		t.Fatalf("expected stored copy, got %q", got)
	}
	if _, err := kv.Get(ctx, "missing"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected key not found, got %v", err)
	}
}
