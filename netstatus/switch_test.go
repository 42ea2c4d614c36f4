package netstatus

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/velmie/tillsync"
)

func TestSwitchNotifiesChanges(t *testing.T) {
	sw := NewSwitch(tillsync.Status{})
	var log statusLog
	unsubscribe := sw.Subscribe(log.record)

	sw.SetOnline(false)
	sw.SetOnline(true)
	sw.SetOnline(true)
	unsubscribe()
	sw.SetOnline(false)

	got := log.snapshot()
	if len(got) != 2 {
		t.Fatalf("expected initial plus one change, got %+v", got)
	}
	if got[0].Online() || !got[1].Online() {
		t.Fatalf("unexpected statuses %+v", got)
	}

	status, err := sw.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Online() {
		t.Fatalf("expected offline")
	}
}

func TestSwitchDrivesAutoSync(t *testing.T) {
	ctx := context.Background()
	outbox := tillsync.NewOutbox(tillsync.NewMemoryKV())
	if _, err := outbox.Enqueue(ctx, tillsync.Entry{Target: tillsync.TargetMain, Body: json.RawMessage(`{"n":1}`)}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	sent := make(chan tillsync.Item, 1)
	sender := tillsync.SenderFunc(func(_ context.Context, item tillsync.Item) error {
		sent <- item
		return nil
	})
	sw := NewSwitch(tillsync.Status{})
	engine := tillsync.NewEngine(outbox, sender, sw)

	stop := engine.AutoSync(ctx, sw)
	defer stop()

	select {
	case <-sent:
		t.Fatalf("did not expect delivery while offline")
	case <-time.After(20 * time.Millisecond):
	}

	sw.SetOnline(true)
	select {
	case <-sent:
	case <-time.After(time.Second):
		t.Fatalf("expected delivery after reconnect")
	}
}
