// Command entrypoint is the container entrypoint for the habit tracker
// services: it waits for PostgreSQL, fixes volume ownership, applies schema
// migrations, and execs the supplied command as the application user.
//
// Usage:
//
//	entrypoint <command> [args...]
//
// Exit codes: 2 for configuration errors, 1 for readiness exhaustion or any
// other startup failure. On success the entrypoint does not exit at all; the
// target command takes over the process.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"habittracker/entrypoint/internal/app"
	"habittracker/entrypoint/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: entrypoint <command> [args...]")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New()
	if err != nil {
		fail(err)
	}
	if err := a.Run(ctx, os.Args[1:]); err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)

	var missing *config.MissingFieldError
	var invalid *config.InvalidFieldError
	if errors.As(err, &missing) || errors.As(err, &invalid) {
		os.Exit(2)
	}
	os.Exit(1)
}
