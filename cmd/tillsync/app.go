package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/getsentry/sentry-go"
	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/velmie/tillsync"
	"github.com/velmie/tillsync/amqpsender"
	"github.com/velmie/tillsync/closing"
	"github.com/velmie/tillsync/cmd/internal/config"
	"github.com/velmie/tillsync/cmd/internal/logging"
	"github.com/velmie/tillsync/filestore"
	"github.com/velmie/tillsync/httpsender"
	"github.com/velmie/tillsync/mysql"
	"github.com/velmie/tillsync/netstatus"
	"github.com/velmie/tillsync/pgstore"
	"github.com/velmie/tillsync/redisstore"
)

type app struct {
	cfg     config.Config
	log     *zap.SugaredLogger
	hub     *sentry.Hub
	outbox  *tillsync.Outbox
	drafts  *closing.Drafts
	closers []func() error
}

func newApp(ctx context.Context, cfg config.Config, stderr io.Writer) (*app, error) {
	zl, err := logging.New(cfg.LogLevel, cfg.AppName)
	if err != nil {
		return nil, err
	}
	hub, err := logging.InitSentry(logging.SentryOptions{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
	})
	if err != nil {
		fmt.Fprintln(stderr, err)
	}

	a := &app{cfg: cfg, log: logging.WithSentry(zl, hub), hub: hub}
	kv, err := a.openStore(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.outbox = tillsync.NewOutbox(kv,
		tillsync.WithKey(cfg.QueueKey),
		tillsync.WithOutboxLogger(logging.NewLogger(a.log)),
	)
	a.drafts = closing.NewDrafts(kv)

	return a, nil
}

func (a *app) openStore(ctx context.Context) (tillsync.KV, error) {
	switch a.cfg.Store {
	case config.StoreFile:
		return filestore.New(a.cfg.DataDir)
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{Addr: a.cfg.RedisAddr})
		a.closers = append(a.closers, client.Close)
		return redisstore.New(client)
	case config.StoreMySQL:
		db, err := sql.Open("mysql", a.cfg.MySQLDSN)
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		store, err := mysql.NewStore(db)
		if err != nil {
			return nil, err
		}
		if err := mysql.EnsureSchema(ctx, db, store.Table()); err != nil {
			return nil, err
		}
		return store, nil
	case config.StorePostgres:
		db, err := pgstore.Open(ctx, a.cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			a.closers = append(a.closers, sqlDB.Close)
		}
		store, err := pgstore.New(db)
		if err != nil {
			return nil, err
		}
		if err := store.AutoMigrate(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidStore, a.cfg.Store)
	}
}

// sender routes each configured target to an HTTP or AMQP sender.
func (a *app) sender() (tillsync.Sender, error) {
	router := tillsync.Router{}
	httpEndpoints := make(map[tillsync.Target]string)
	var publisher *amqpsender.ChannelPublisher

	for target, endpoint := range a.cfg.Endpoints() {
		if !config.IsAMQP(endpoint) {
			httpEndpoints[target] = endpoint
			continue
		}
		if publisher == nil {
			p, err := amqpsender.Dial(endpoint)
			if err != nil {
				return nil, err
			}
			publisher = p
			a.closers = append(a.closers, p.Close)
		}
		s, err := amqpsender.New(publisher,
			amqpsender.WithExchange(a.cfg.AMQPExchange),
			amqpsender.WithToken(a.cfg.Token),
			amqpsender.WithAppID(a.cfg.AppName),
		)
		if err != nil {
			return nil, err
		}
		router[target] = s
	}

	if len(httpEndpoints) > 0 {
		s := httpsender.New(httpEndpoints,
			httpsender.WithToken(a.cfg.Token),
			httpsender.WithUserAgent(a.cfg.AppName),
		)
		for target := range httpEndpoints {
			router[target] = s
		}
	}

	return router, nil
}

// classify dead-letters what no retry can fix, but only when TILLSYNC_DEAD_ON_PERMANENT
// is set. A target without a configured endpoint is always retried.
func (a *app) classify(ctx context.Context, item tillsync.Item, err error) tillsync.FailureAction {
	if !a.cfg.DeadOnPermanent || errors.Is(err, tillsync.ErrUnknownTarget) {
		return tillsync.FailureRetry
	}
	if httpsender.Classify(ctx, item, err) == tillsync.FailureDead {
		return tillsync.FailureDead
	}

	return amqpsender.Classify(ctx, item, err)
}

func (a *app) engine(conn tillsync.Connectivity) (*tillsync.Engine, error) {
	sender, err := a.sender()
	if err != nil {
		return nil, err
	}
	reporter := logging.NewReporter(a.hub)

	return tillsync.NewEngine(a.outbox, sender, conn,
		tillsync.WithMaxAttempts(a.cfg.MaxAttempts),
		tillsync.WithSendTimeout(a.cfg.SendTimeout),
		tillsync.WithSyncInterval(a.cfg.SyncInterval),
		tillsync.WithLogger(logging.NewLogger(a.log)),
		tillsync.WithFailureClassifier(a.classify),
		tillsync.WithDeadLetterHandler(reporter.HandleDead),
	), nil
}

// monitor returns a connectivity monitor, or nil when there is nothing to probe.
func (a *app) monitor() (*netstatus.Monitor, error) {
	addr := a.cfg.ProbeTarget()
	if addr == "" {
		return nil, nil
	}

	opts := []netstatus.MonitorOption{
		netstatus.WithInterval(a.cfg.ProbeInterval),
		netstatus.WithLogger(logging.NewLogger(a.log)),
	}
	if a.cfg.ProbeURL != "" {
		opts = append(opts, netstatus.WithInternetProber(netstatus.HTTPProber{URL: a.cfg.ProbeURL}))
	}

	return netstatus.NewMonitor(netstatus.DialProber{Addr: addr}, opts...)
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	logging.FlushSentry(a.hub)
	_ = a.log.Sync()

	return errors.Join(errs...)
}
