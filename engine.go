package tillsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"
)

// Result summarizes one flush pass.
type Result struct {
	// Sent is the number of items delivered and dropped from the outbox.
	Sent int `json:"sent"`
	// Remaining is the number of items still pending after the pass.
	Remaining int `json:"remaining"`
	// Dead is the number of items moved to the dead list during the pass.
	Dead int `json:"dead"`
	// Offline is set when the pass was skipped because the network was unreachable.
	Offline bool `json:"offline"`
}

// Engine drains an Outbox to its remote endpoints.
//
// At most one flush pass runs at a time. Items are delivered one by one in enqueue order.
type Engine struct {
	outbox *Outbox
	sender Sender
	conn   Connectivity
	cfg    EngineConfig

	flushMu sync.Mutex
}

type flushOutcome struct {
	sent   int
	failed int
	kept   []Item
	dead   []Item
	err    error
}

// NewEngine constructs an Engine with defaults and optional settings.
// A nil Connectivity is treated as always online.
func NewEngine(outbox *Outbox, sender Sender, conn Connectivity, opts ...EngineOption) *Engine {
	if outbox == nil {
		panic("tillsync: nil Outbox")
	}
	if sender == nil {
		panic("tillsync: nil Sender")
	}
	if conn == nil {
		conn = AlwaysOnline{}
	}

	var cfg EngineConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Engine{
		outbox: outbox,
		sender: sender,
		conn:   conn,
		cfg:    cfg.withDefaults(),
	}
}

// Flush attempts delivery of every pending item. It returns ErrFlushInProgress when
// another pass is running. Per-item delivery failures are never returned; they show up
// in Result.Remaining and Result.Dead. If ctx is cancelled mid-pass, items not yet
// attempted stay queued, the pass is still committed and ctx.Err() is returned.
func (e *Engine) Flush(ctx context.Context) (Result, error) {
	if !e.flushMu.TryLock() {
		return Result{}, ErrFlushInProgress
	}
	defer e.flushMu.Unlock()

	return e.flush(ctx)
}

// Submit enqueues entry and makes a best-effort delivery attempt right away.
// Only the enqueue error is returned; the flush outcome is informational.
func (e *Engine) Submit(ctx context.Context, entry Entry) (Item, Result, error) {
	item, err := e.outbox.Enqueue(ctx, entry)
	if err != nil {
		return Item{}, Result{}, err
	}

	result, err := e.Flush(ctx)
	switch {
	case errors.Is(err, ErrFlushInProgress):
		e.cfg.Logger.Debug("tillsync submit: flush already running", "id", item.ID)
		if pending, pendingErr := e.outbox.Pending(ctx); pendingErr == nil {
			result.Remaining = pending
		}
	case err != nil:
		e.cfg.Logger.Warn("tillsync submit: flush failed", "id", item.ID, "err", err)
	}

	return item, result, nil
}

// AutoSync flushes every time n reports a transition to online. Flushes triggered this
// way run on a single goroutine, wait for any running manual flush and are coalesced.
// The returned stop function unsubscribes and waits for the worker to exit.
func (e *Engine) AutoSync(ctx context.Context, n Notifier) (stop func()) {
	return e.start(ctx, n, 0, false)
}

// Run keeps the outbox in sync until ctx is done: it flushes once at start, on connectivity
// transitions reported by n (which may be nil) and, if configured, every SyncInterval.
func (e *Engine) Run(ctx context.Context, n Notifier) error {
	stop := e.start(ctx, n, e.cfg.SyncInterval, true)
	<-ctx.Done()
	stop()

	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

func (e *Engine) start(ctx context.Context, n Notifier, interval time.Duration, initial bool) func() {
	ctx, cancel := context.WithCancel(ctx)
	trigger := make(chan struct{}, 1)
	kick := func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	}
	if initial {
		kick()
	}

	unsubscribe := func() {}
	if n != nil {
		var (
			mu     sync.Mutex
			online bool
		)
		unsubscribe = n.Subscribe(func(status Status) {
			now := status.Online()
			mu.Lock()
			was := online
			online = now
			mu.Unlock()

			if now && !was {
				e.cfg.Logger.Debug("tillsync connectivity restored")
				kick()
			}
		})
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		e.consume(ctx, trigger)
	}()

	if interval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					kick()
				}
			}
		}()
	}

	var once sync.Once

	return func() {
		once.Do(func() {
			unsubscribe()
			cancel()
			wg.Wait()
		})
	}
}

func (e *Engine) consume(ctx context.Context, trigger <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-trigger:
			e.triggeredFlush(ctx)
		}
	}
}

func (e *Engine) triggeredFlush(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			e.cfg.Logger.Error("tillsync auto-sync panic", "panic", rec)
		}
	}()

	e.flushMu.Lock()
	defer e.flushMu.Unlock()

	if ctx.Err() != nil {
		return
	}
	if _, err := e.flush(ctx); err != nil && !errors.Is(err, context.Canceled) {
		e.cfg.Logger.Error("tillsync auto-sync flush failed", "err", err)
	}
}

func (e *Engine) flush(ctx context.Context) (Result, error) {
	start := e.cfg.Clock.Now()
	defer func() {
		e.cfg.Metrics.ObserveFlushDuration(e.cfg.Clock.Now().Sub(start))
	}()

	if !e.online(ctx) {
		items, err := e.outbox.DrainAll(ctx)
		if err != nil {
			return Result{Offline: true}, err
		}
		e.cfg.Metrics.SetPending(len(items))
		e.cfg.Logger.Debug("tillsync flush skipped: offline", "pending", len(items))

		return Result{Offline: true, Remaining: len(items)}, nil
	}

	items, err := e.outbox.DrainAll(ctx)
	if err != nil {
		return Result{}, err
	}
	if len(items) == 0 {
		e.cfg.Metrics.SetPending(0)

		return Result{}, nil
	}

	outcome := e.deliver(ctx, items)

	remaining, err := e.outbox.commit(context.WithoutCancel(ctx), len(items), outcome.kept, outcome.dead)
	if err != nil {
		return Result{Sent: outcome.sent}, errors.Join(fmt.Errorf("tillsync: commit failed: %w", err), outcome.err)
	}

	e.cfg.Metrics.AddSent(outcome.sent)
	e.cfg.Metrics.AddFailed(outcome.failed)
	e.cfg.Metrics.AddDead(len(outcome.dead))
	e.cfg.Metrics.SetPending(remaining)

	result := Result{Sent: outcome.sent, Remaining: remaining, Dead: len(outcome.dead)}
	e.cfg.Logger.Info("tillsync flush done", "sent", result.Sent, "remaining", result.Remaining, "dead", result.Dead)

	return result, outcome.err
}

func (e *Engine) deliver(ctx context.Context, items []Item) flushOutcome {
	outcome := flushOutcome{kept: make([]Item, 0)}

	for i := range items {
		if err := ctx.Err(); err != nil {
			outcome.kept = append(outcome.kept, items[i:]...)
			outcome.err = err

			break
		}

		item := items[i]
		err := e.send(ctx, item)
		if err == nil {
			outcome.sent++

			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			outcome.kept = append(outcome.kept, items[i:]...)
			outcome.err = ctxErr

			break
		}
		e.recordFailure(ctx, item, err, &outcome)
	}

	return outcome
}

func (e *Engine) send(ctx context.Context, item Item) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrSenderPanic, rec)
		}
	}()

	sendCtx := ctx
	cancel := func() {}
	if e.cfg.SendTimeout > 0 {
		sendCtx, cancel = context.WithTimeout(ctx, e.cfg.SendTimeout)
	}
	defer cancel()

	return e.sender.Send(sendCtx, item)
}

func (e *Engine) recordFailure(ctx context.Context, item Item, err error, outcome *flushOutcome) {
	if e.cfg.ErrorHandler != nil {
		e.cfg.ErrorHandler(ctx, item, err)
	}

	outcome.failed++
	action := e.cfg.FailureClassifier(ctx, item, err)
	item.Attempts++
	item.LastError = truncateError(err.Error())

	if action == FailureDead || (e.cfg.MaxAttempts > 0 && item.Attempts >= e.cfg.MaxAttempts) {
		e.cfg.Logger.Warn("tillsync item dead-lettered",
			"id", item.ID, "target", item.Target, "attempts", item.Attempts, "err", err)
		outcome.dead = append(outcome.dead, item)
		if e.cfg.DeadLetterHandler != nil {
			e.cfg.DeadLetterHandler(ctx, item, err)
		}

		return
	}

	e.cfg.Logger.Warn("tillsync delivery failed",
		"id", item.ID, "target", item.Target, "attempts", item.Attempts, "err", err)
	outcome.kept = append(outcome.kept, item)
}

func (e *Engine) online(ctx context.Context) bool {
	status, err := e.conn.Status(ctx)
	if err != nil {
		e.cfg.Logger.Warn("tillsync connectivity check failed", "err", err)

		return false
	}

	return status.Online()
}

func truncateError(msg string) string {
	if len(msg) <= maxErrorLen {
		return msg
	}
	cut := maxErrorLen
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}

	return msg[:cut]
}
