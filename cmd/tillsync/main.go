// Command tillsync queues kiosk records for delivery and keeps the queue in sync.
//
// Settings come from the environment (optionally a .env file in the working
// directory). Subcommands:
//
//	tillsync enqueue -target main [-file body.json] [-send]
//	tillsync close -file closing.json [-target main] [-csv report.csv] [-send]
//	tillsync close -load 2024-05-10 -queue=false -csv report.csv
//	tillsync flush
//	tillsync pending
//	tillsync dead list|requeue [id...]|purge
//	tillsync run
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v11"

	"github.com/velmie/tillsync/cmd/internal/config"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

const usage = `usage: tillsync <command> [flags]

commands:
  enqueue   queue a JSON body for a target
  close     save a daily closing and queue it for the main ledger
  flush     deliver pending items once
  pending   print the number of pending items
  dead      list, requeue or purge dead-lettered items
  run       keep the queue in sync until interrupted
`

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitFailure)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], env.ToMap(os.Environ()), os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, environ map[string]string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return exitUsage
	}

	cfg, err := config.Parse(environ)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	a, err := newApp(ctx, cfg, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailure
	}
	defer a.Close()

	streams := cmdIO{stdin: stdin, stdout: stdout, stderr: stderr}
	if err := cmd(ctx, a, args[1:], streams); err != nil {
		if isUsage(err) {
			fmt.Fprintln(stderr, err)
			return exitUsage
		}
		a.log.Errorw("command failed", "command", args[0], "err", err)
		fmt.Fprintln(stderr, err)
		return exitFailure
	}

	return exitOK
}
