//go:build integration

package amqpsender_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/velmie/tillsync"
	"github.com/velmie/tillsync/amqpsender"
)

func TestChannelPublisherIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test disabled in short mode")
	}

	ctx := context.Background()
	url := startRabbitMQContainer(t, ctx)

	pub, err := amqpsender.Dial(url)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pub.Close()
	})

	ch := openTopologyChannel(t, url)
	require.NoError(t, ch.ExchangeDeclare("kiosk", "direct", true, false, false, false, nil))
	queue, err := ch.QueueDeclare("main-ledger", true, false, false, false, nil)
	require.NoError(t, err)
	require.NoError(t, ch.QueueBind(queue.Name, string(tillsync.TargetMain), "kiosk", false, nil))

	sender, err := amqpsender.New(pub, amqpsender.WithExchange("kiosk"), amqpsender.WithToken("s3cret"))
	require.NoError(t, err)

	outbox := tillsync.NewOutbox(tillsync.NewMemoryKV())
	_, err = outbox.Enqueue(ctx, tillsync.Entry{Target: tillsync.TargetMain, Body: json.RawMessage(`{"n":1}`)})
	require.NoError(t, err)

	result, err := tillsync.NewEngine(outbox, sender, nil).Flush(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.Sent)

	msg, ok, err := ch.Get(queue.Name, true)
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"n":1,"token":"s3cret"}`, string(msg.Body))
}

func TestChannelPublisherUnroutableStaysQueued(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test disabled in short mode")
	}

	ctx := context.Background()
	url := startRabbitMQContainer(t, ctx)

	pub, err := amqpsender.Dial(url)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pub.Close()
	})

	// The default exchange routes by queue name and no "main" queue exists.
	sender, err := amqpsender.New(pub)
	require.NoError(t, err)

	outbox := tillsync.NewOutbox(tillsync.NewMemoryKV())
	_, err = outbox.Enqueue(ctx, tillsync.Entry{Target: tillsync.TargetMain, Body: json.RawMessage(`{"n":1}`)})
	require.NoError(t, err)

	var failure error
	engine := tillsync.NewEngine(outbox, sender, nil, tillsync.WithErrorHandler(func(_ context.Context, _ tillsync.Item, err error) {
		failure = err
	}))
	result, err := engine.Flush(ctx)
	require.NoError(t, err)
	require.Equal(t, tillsync.Result{Remaining: 1}, result)
	require.ErrorIs(t, failure, amqpsender.ErrUnroutable)

	ch := openTopologyChannel(t, url)
	_, err = ch.QueueDeclare(string(tillsync.TargetMain), true, false, false, false, nil)
	require.NoError(t, err)

	result, err = engine.Flush(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.Sent)
}

func openTopologyChannel(t *testing.T, url string) *amqp.Channel {
	t.Helper()
	conn, err := amqp.Dial(url)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
	})
	ch, err := conn.Channel()
	require.NoError(t, err)

	return ch
}

func startRabbitMQContainer(t *testing.T, ctx context.Context) string {
	t.Helper()
	port := nat.Port("5672/tcp")
	req := testcontainers.ContainerRequest{
		Image:        "rabbitmq:3.13-alpine",
		ExposedPorts: []string{string(port)},
		WaitingFor:   wait.ForLog("Server startup complete").WithStartupTimeout(2 * time.Minute),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("start rabbitmq container: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mappedPort, err := container.MappedPort(ctx, port)
	require.NoError(t, err)

	return fmt.Sprintf("amqp://guest:guest@%s:%s/", host, mappedPort.Port())
}
