package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/velmie/tillsync"
	"github.com/velmie/tillsync/closing"
)

type cmdIO struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

type command func(ctx context.Context, a *app, args []string, streams cmdIO) error

var commands = map[string]command{
	"enqueue": enqueueCmd,
	"close":   closeCmd,
	"flush":   flushCmd,
	"pending": pendingCmd,
	"dead":    deadCmd,
	"run":     runCmd,
}

type usageError struct {
	err error
}

func (e usageError) Error() string {
	return e.err.Error()
}

func (e usageError) Unwrap() error {
	return e.err
}

func usagef(format string, args ...any) error {
	return usageError{err: fmt.Errorf(format, args...)}
}

func isUsage(err error) bool {
	var ue usageError
	return errors.As(err, &ue) || errors.Is(err, flag.ErrHelp)
}

func newFlagSet(name string, streams cmdIO) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(streams.stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return usageError{err: err}
	}
	return nil
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type itemView struct {
	Item   tillsync.Item    `json:"item"`
	Result *tillsync.Result `json:"result,omitempty"`
}

func enqueueCmd(ctx context.Context, a *app, args []string, streams cmdIO) error {
	fs := newFlagSet("enqueue", streams)
	target := fs.String("target", "", "Target: main, control or commissions")
	file := fs.String("file", "", "JSON body file (stdin when empty)")
	send := fs.Bool("send", false, "Attempt delivery right after queueing")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	body, err := readInput(*file, streams.stdin)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	entry := tillsync.Entry{Target: tillsync.Target(*target), Body: body}
	if err := entry.Validate(); err != nil {
		return usageError{err: err}
	}

	return a.queue(ctx, entry, *send, streams.stdout)
}

func closeCmd(ctx context.Context, a *app, args []string, streams cmdIO) error {
	fs := newFlagSet("close", streams)
	file := fs.String("file", "", "Closing JSON file (stdin when empty)")
	load := fs.String("load", "", "Use the closing saved for this date (YYYY-MM-DD) instead of -file")
	save := fs.Bool("save", true, "Save the closing for its date so it can be reloaded")
	target := fs.String("target", string(tillsync.TargetMain), "Target receiving the closing")
	csvPath := fs.String("csv", "", "Also write the CSV report to this path")
	queue := fs.Bool("queue", true, "Queue the ledger entry")
	send := fs.Bool("send", false, "Attempt delivery right after queueing")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	c, err := a.readClosing(ctx, *load, *file, streams.stdin)
	if err != nil {
		return err
	}
	entry, err := c.Entry(tillsync.Target(*target))
	if err != nil {
		return usageError{err: err}
	}
	if *save && *load == "" {
		if err := a.drafts.Save(ctx, c); err != nil {
			return err
		}
	}

	if *csvPath != "" {
		f, err := os.Create(*csvPath)
		if err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		werr := c.WriteCSV(f)
		if err := errors.Join(werr, f.Close()); err != nil {
			return err
		}
	}
	if !*queue {
		return printJSON(streams.stdout, c)
	}

	return a.queue(ctx, entry, *send, streams.stdout)
}

func (a *app) readClosing(ctx context.Context, date, path string, stdin io.Reader) (closing.Closing, error) {
	if date != "" {
		c, err := a.drafts.Load(ctx, date)
		if errors.Is(err, closing.ErrDraftNotFound) || errors.Is(err, closing.ErrInvalidDate) {
			return closing.Closing{}, usageError{err: err}
		}
		return c, err
	}

	raw, err := readInput(path, stdin)
	if err != nil {
		return closing.Closing{}, fmt.Errorf("read closing: %w", err)
	}
	var c closing.Closing
	if err := json.Unmarshal(raw, &c); err != nil {
		return closing.Closing{}, usagef("decode closing: %v", err)
	}

	return c, nil
}

func (a *app) queue(ctx context.Context, entry tillsync.Entry, send bool, stdout io.Writer) error {
	if !send {
		item, err := a.outbox.Enqueue(ctx, entry)
		if err != nil {
			return err
		}
		return printJSON(stdout, itemView{Item: item})
	}

	engine, err := a.flushEngine()
	if err != nil {
		return err
	}
	item, result, err := engine.Submit(ctx, entry)
	if err != nil {
		return err
	}

	return printJSON(stdout, itemView{Item: item, Result: &result})
}

func (a *app) flushEngine() (*tillsync.Engine, error) {
	monitor, err := a.monitor()
	if err != nil {
		return nil, err
	}
	if monitor == nil {
		return a.engine(nil)
	}

	return a.engine(monitor)
}

func flushCmd(ctx context.Context, a *app, args []string, streams cmdIO) error {
	fs := newFlagSet("flush", streams)
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	engine, err := a.flushEngine()
	if err != nil {
		return err
	}
	result, err := engine.Flush(ctx)
	if err != nil {
		return err
	}

	return printJSON(streams.stdout, result)
}

func pendingCmd(ctx context.Context, a *app, args []string, streams cmdIO) error {
	fs := newFlagSet("pending", streams)
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	n, err := a.outbox.Pending(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(streams.stdout, n)

	return err
}

func deadCmd(ctx context.Context, a *app, args []string, streams cmdIO) error {
	if len(args) == 0 {
		return usagef("dead: expected list, requeue or purge")
	}

	switch args[0] {
	case "list":
		items, err := a.outbox.Dead(ctx)
		if err != nil {
			return err
		}
		if items == nil {
			items = []tillsync.Item{}
		}
		return printJSON(streams.stdout, items)
	case "requeue":
		ids := make([]uuid.UUID, 0, len(args)-1)
		for _, raw := range args[1:] {
			id, err := uuid.Parse(raw)
			if err != nil {
				return usagef("dead requeue: invalid id %q: %v", raw, err)
			}
			ids = append(ids, id)
		}
		n, err := a.outbox.RequeueDead(ctx, ids...)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(streams.stdout, n)
		return err
	case "purge":
		n, err := a.outbox.PurgeDead(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(streams.stdout, n)
		return err
	default:
		return usagef("dead: unknown action %q", args[0])
	}
}

func runCmd(ctx context.Context, a *app, args []string, streams cmdIO) error {
	fs := newFlagSet("run", streams)
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	monitor, err := a.monitor()
	if err != nil {
		return err
	}

	var conn tillsync.Connectivity
	var notifier tillsync.Notifier
	if monitor != nil {
		conn, notifier = monitor, monitor
	}
	engine, err := a.engine(conn)
	if err != nil {
		return err
	}

	a.log.Infow("tillsync started", "store", a.cfg.Store, "probe", a.cfg.ProbeTarget(), "interval", a.cfg.SyncInterval)

	done := make(chan error, 1)
	if monitor != nil {
		go func() {
			done <- monitor.Run(ctx)
		}()
	} else {
		close(done)
	}

	err = engine.Run(ctx, notifier)
	if merr := <-done; merr != nil {
		err = errors.Join(err, merr)
	}
	a.log.Infow("tillsync stopped")

	return err
}
