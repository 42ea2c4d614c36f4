//go:build integration

package redisstore_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/velmie/tillsync"
	"github.com/velmie/tillsync/redisstore"
)

func TestOutboxOnRedisIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test disabled in short mode")
	}

	ctx := context.Background()
	client := startRedisContainer(t, ctx)

	store, err := redisstore.New(client, redisstore.WithPrefix("kiosk-1:"))
	require.NoError(t, err)

	outbox := tillsync.NewOutbox(store)
	_, err = outbox.Enqueue(ctx, tillsync.Entry{Target: tillsync.TargetMain, Body: json.RawMessage(`{"n":1}`)})
	require.NoError(t, err)

	raw, err := client.Get(ctx, "kiosk-1:"+tillsync.DefaultQueueKey).Bytes()
	require.NoError(t, err)
	var persisted []map[string]any
	require.NoError(t, json.Unmarshal(raw, &persisted))
	require.Len(t, persisted, 1)
	require.Equal(t, "main", persisted[0]["target"])

	engine := tillsync.NewEngine(outbox, tillsync.SenderFunc(func(context.Context, tillsync.Item) error {
		return nil
	}), nil)
	result, err := engine.Flush(ctx)
	require.NoError(t, err)
	require.Equal(t, tillsync.Result{Sent: 1}, result)

	pending, err := tillsync.NewOutbox(store).Pending(ctx)
	require.NoError(t, err)
	require.Zero(t, pending)
}

func startRedisContainer(t *testing.T, ctx context.Context) *redis.Client {
	t.Helper()
	port := nat.Port("6379/tcp")
	req := testcontainers.ContainerRequest{
		Image:        "redis:7.2-alpine",
		ExposedPorts: []string{string(port)},
		WaitingFor:   wait.ForListeningPort(port).WithStartupTimeout(time.Minute),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("start redis container: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mappedPort, err := container.MappedPort(ctx, port)
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, mappedPort.Port())})
	t.Cleanup(func() {
		_ = client.Close()
	})
	require.NoError(t, client.Ping(ctx).Err())

	return client
}
