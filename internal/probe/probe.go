// Package probe implements the database readiness check the entrypoint runs
// before anything else: connect, ping, disconnect, with a bounded retry
// budget. It never holds a connection open past the probe itself.
package probe

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultMaxAttempts    = 30
	DefaultAttemptTimeout = 2 * time.Second
	DefaultRetryDelay     = time.Second
)

// Pinger is the single database capability the prober needs. *sql.DB
// satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Options struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
	RetryDelay     time.Duration
}

// Result reports a successful probe. Attempts is 1-based: 1 means the target
// was ready on the first try.
type Result struct {
	Attempts int
}

// ExhaustedError is returned once the retry budget is spent. It carries the
// last connection error observed.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("database not ready after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

type Waiter struct {
	pinger Pinger
	opts   Options
	log    *slog.Logger
	sleep  func(time.Duration)
}

func NewWaiter(pinger Pinger, opts Options, log *slog.Logger) *Waiter {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = DefaultAttemptTimeout
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if log == nil {
		log = slog.Default()
	}
	return &Waiter{
		pinger: pinger,
		opts:   opts,
		log:    log,
		sleep:  time.Sleep,
	}
}

// Wait pings the target until it answers or the budget runs out. Every
// connection error is treated as "not ready yet" and retried after a constant
// delay; only context cancellation cuts the wait short.
func (w *Waiter) Wait(ctx context.Context) (Result, error) {
	policy := backoff.WithMaxRetries(
		backoff.NewConstantBackOff(w.opts.RetryDelay),
		uint64(w.opts.MaxAttempts-1),
	)

	var last error
	for attempt := 1; ; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, w.opts.AttemptTimeout)
		err := w.pinger.PingContext(attemptCtx)
		cancel()

		if err == nil {
			w.log.Info("database ready", "attempt", attempt)
			return Result{Attempts: attempt}, nil
		}
		last = err
		w.log.Info("database not ready",
			"attempt", attempt,
			"max_attempts", w.opts.MaxAttempts,
			"error", err,
		)

		delay := policy.NextBackOff()
		if delay == backoff.Stop {
			return Result{}, &ExhaustedError{Attempts: attempt, Last: last}
		}
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		w.sleep(delay)
	}
}

// WaitForDSN opens a connection handle for the DSN, probes it, and closes
// the handle on every exit path. The postgres driver must be registered by
// the caller's import set.
func WaitForDSN(ctx context.Context, dsn string, opts Options, log *slog.Logger) (Result, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return Result{}, fmt.Errorf("open postgres: %w", err)
	}
	defer db.Close()

	return NewWaiter(db, opts, log).Wait(ctx)
}
