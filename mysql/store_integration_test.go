//go:build integration

package mysql_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/velmie/tillsync"
	"github.com/velmie/tillsync/mysql"
)

func TestStoreGetPutIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test disabled in short mode")
	}

	ctx := context.Background()
	container, db := startMySQLContainer(t, ctx)
	t.Cleanup(func() {
		_ = db.Close()
		_ = container.Terminate(ctx)
	})
	require.NoError(t, mysql.EnsureSchema(ctx, db, "tillsync_kv"))

	store, err := mysql.NewStore(db)
	require.NoError(t, err)

	_, err = store.Get(ctx, "missing")
	require.ErrorIs(t, err, tillsync.ErrKeyNotFound)

	require.NoError(t, store.Put(ctx, "k", []byte(`[1]`)))
	require.NoError(t, store.Put(ctx, "k", []byte(`[1,2]`)))

	value, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.JSONEq(t, `[1,2]`, string(value))
}

func TestOutboxOnMySQLIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test disabled in short mode")
	}

	ctx := context.Background()
	container, db := startMySQLContainer(t, ctx)
	t.Cleanup(func() {
		_ = db.Close()
		_ = container.Terminate(ctx)
	})
	require.NoError(t, mysql.EnsureSchema(ctx, db, "tillsync_kv"))

	store, err := mysql.NewStore(db)
	require.NoError(t, err)

	outbox := tillsync.NewOutbox(store)
	for i := 0; i < 3; i++ {
		_, err := outbox.Enqueue(ctx, tillsync.Entry{
			Target: tillsync.TargetMain,
			Body:   json.RawMessage(fmt.Sprintf(`{"n":%d}`, i)),
		})
		require.NoError(t, err)
	}

	failing := tillsync.SenderFunc(func(_ context.Context, item tillsync.Item) error {
		if string(item.Body) == `{"n":1}` {
			return errors.New("rejected")
		}
		return nil
	})
	engine := tillsync.NewEngine(outbox, failing, nil)

	result, err := engine.Flush(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, result.Sent)
	require.Equal(t, 1, result.Remaining)

	reopened := tillsync.NewOutbox(store)
	items, err := reopened.DrainAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.JSONEq(t, `{"n":1}`, string(items[0].Body))
	require.Equal(t, 1, items[0].Attempts)
}

func TestStorePutTxRollbackIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test disabled in short mode")
	}

	ctx := context.Background()
	container, db := startMySQLContainer(t, ctx)
	t.Cleanup(func() {
		_ = db.Close()
		_ = container.Terminate(ctx)
	})
	require.NoError(t, mysql.EnsureSchema(ctx, db, "tillsync_kv"))

	store, err := mysql.NewStore(db)
	require.NoError(t, err)

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, store.PutTx(ctx, tx, "k", []byte(`[]`)))
	require.NoError(t, tx.Rollback())

	_, err = store.Get(ctx, "k")
	require.ErrorIs(t, err, tillsync.ErrKeyNotFound)
}

func startMySQLContainer(t *testing.T, ctx context.Context) (testcontainers.Container, *sql.DB) {
	t.Helper()
	port := nat.Port("3306/tcp")
	req := testcontainers.ContainerRequest{
		Image:        "mysql:8.0.36",
		ExposedPorts: []string{string(port)},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret",
			"MYSQL_DATABASE":      "tillsync",
		},
		WaitingFor: wait.ForSQL(port, "mysql", func(host string, port nat.Port) string {
			return fmt.Sprintf("root:secret@tcp(%s:%s)/tillsync?parseTime=true", host, port.Port())
		}).WithStartupTimeout(2 * time.Minute),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("start mysql container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("resolve host: %v", err)
	}
	mappedPort, err := container.MappedPort(ctx, port)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("resolve port: %v", err)
	}

	dsn := fmt.Sprintf("root:secret@tcp(%s:%s)/tillsync?parseTime=true", host, mappedPort.Port())
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("open db: %v", err)
	}
	return container, db
}
