// Command waitforpostgres blocks until the configured database accepts
// connections, then exits 0. It is the probing half of the entrypoint as a
// standalone binary, useful in CI and compose healthchecks.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	"habittracker/entrypoint/internal/config"
	"habittracker/entrypoint/internal/observability"
	"habittracker/entrypoint/internal/probe"
)

func main() {
	log := observability.NewLogger()

	target, err := config.LoadTarget()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	res, err := probe.WaitForDSN(context.Background(), target.DSN(), probe.Options{
		MaxAttempts:    cfg.Wait.MaxAttempts,
		AttemptTimeout: cfg.Wait.AttemptTimeout,
		RetryDelay:     cfg.Wait.RetryDelay,
	}, log)
	if err != nil {
		var exhausted *probe.ExhaustedError
		if errors.As(err, &exhausted) {
			fmt.Fprintln(os.Stderr, exhausted)
		} else {
			fmt.Fprintf(os.Stderr, "wait for postgres: %v\n", err)
		}
		os.Exit(1)
	}

	fmt.Printf("postgres ready after %d attempt(s)\n", res.Attempts)
}
