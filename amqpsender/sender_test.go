package amqpsender

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/velmie/tillsync"
)

type publishCall struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakePublisher struct {
	calls []publishCall
	err   error
}

func (f *fakePublisher) Publish(_ context.Context, exchange, key string, msg amqp.Publishing) error {
	f.calls = append(f.calls, publishCall{exchange: exchange, key: key, msg: msg})
	return f.err
}

func TestSendPublishesToTargetRoutingKey(t *testing.T) {
	pub := &fakePublisher{}
	sender, err := New(pub, WithExchange("kiosk"), WithToken("s3cret"), WithAppID("till-7"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	id := uuid.MustParse("01900000-0000-7000-8000-000000000001")
	createdAt := time.Date(2024, 5, 10, 18, 30, 0, 0, time.UTC)
	item := tillsync.Item{
		ID:        id,
		Target:    tillsync.TargetCommissions,
		Body:      json.RawMessage(`{"total":"12.00"}`),
		CreatedAt: createdAt,
	}

	if err := sender.Send(context.Background(), item); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(pub.calls) != 1 {
		t.Fatalf("expected one publish, got %d", len(pub.calls))
	}
	call := pub.calls[0]
	if call.exchange != "kiosk" || call.key != "commissions" {
		t.Fatalf("unexpected route %s/%s", call.exchange, call.key)
	}
	if call.msg.DeliveryMode != amqp.Persistent {
		t.Fatalf("expected persistent delivery")
	}
	if call.msg.MessageId != id.String() || !call.msg.Timestamp.Equal(createdAt) || call.msg.AppId != "till-7" {
		t.Fatalf("unexpected properties %+v", call.msg)
	}
	var body map[string]string
	if err := json.Unmarshal(call.msg.Body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["token"] != "s3cret" || body["total"] != "12.00" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestSendWrapsPublishError(t *testing.T) {
	pub := &fakePublisher{err: ErrNacked}
	sender, err := New(pub)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	err = sender.Send(context.Background(), tillsync.Item{Target: tillsync.TargetMain, Body: json.RawMessage(`{}`)})
	if !errors.Is(err, ErrNacked) {
		t.Fatalf("expected ErrNacked, got %v", err)
	}
	if Classify(context.Background(), tillsync.Item{}, err) != tillsync.FailureRetry {
		t.Fatalf("expected nack to be retried")
	}
}

func TestSendRejectsNonObjectBody(t *testing.T) {
	pub := &fakePublisher{}
	sender, err := New(pub)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	err = sender.Send(context.Background(), tillsync.Item{Target: tillsync.TargetMain, Body: json.RawMessage(`[]`)})
	if !errors.Is(err, tillsync.ErrBodyNotObject) {
		t.Fatalf("expected ErrBodyNotObject, got %v", err)
	}
	if len(pub.calls) != 0 {
		t.Fatalf("expected no publish")
	}
	if Classify(context.Background(), tillsync.Item{}, err) != tillsync.FailureDead {
		t.Fatalf("expected invalid body to be dead-lettered")
	}
}

func TestNewRequiresPublisher(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrPublisherRequired) {
		t.Fatalf("expected ErrPublisherRequired, got %v", err)
	}
}
