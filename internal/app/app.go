// Package app sequences the container startup: wait for the database, fix
// volume ownership, bring the schema up to date, then hand the process over
// to the real workload. Every step blocks the next one; any failure stops
// the whole sequence.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/lib/pq"
	"habittracker/entrypoint/internal/config"
	"habittracker/entrypoint/internal/launcher"
	"habittracker/entrypoint/internal/migrate"
	"habittracker/entrypoint/internal/observability"
	"habittracker/entrypoint/internal/ownership"
	"habittracker/entrypoint/internal/probe"
)

type App struct {
	cfg    config.Config
	target config.Target
	log    *slog.Logger
}

func New() (*App, error) {
	log := observability.NewLogger()

	target, err := config.LoadTarget()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	return &App{cfg: cfg, target: target, log: log}, nil
}

// Run executes the startup sequence and execs argv. It only returns on
// failure: on success the process image has been replaced.
func (a *App) Run(ctx context.Context, argv []string) error {
	res, err := probe.WaitForDSN(ctx, a.target.DSN(), probe.Options{
		MaxAttempts:    a.cfg.Wait.MaxAttempts,
		AttemptTimeout: a.cfg.Wait.AttemptTimeout,
		RetryDelay:     a.cfg.Wait.RetryDelay,
	}, a.log)
	if err != nil {
		return err
	}
	a.log.Info("database reachable", "attempts", res.Attempts)

	if os.Getuid() == 0 {
		fixer, err := ownership.NewFixer(a.cfg.AppUser, a.cfg.AppGroup, a.log)
		if err != nil {
			return err
		}
		if err := fixer.FixPaths(a.cfg.Ownership.Paths); err != nil {
			return err
		}
	} else {
		a.log.Info("not running as root, leaving volume ownership alone")
	}

	if a.cfg.Migrate.Enabled {
		if err := a.runMigrations(ctx); err != nil {
			return err
		}
	} else {
		a.log.Info("migrations disabled, skipping")
	}

	return launcher.New(a.cfg.AppUser, a.cfg.AppGroup, a.log).Exec(argv)
}

// runMigrations keeps the database handle scoped to this step: it must be
// closed before the exec hands the process over.
func (a *App) runMigrations(ctx context.Context) error {
	if len(a.cfg.Migrate.Command) > 0 {
		runner, err := migrate.NewCommandRunner(a.cfg.Migrate.Command, a.log)
		if err != nil {
			return err
		}
		return runner.Run(ctx)
	}

	db, err := sql.Open("postgres", a.target.DSN())
	if err != nil {
		return fmt.Errorf("open postgres for migrations: %w", err)
	}
	defer db.Close()

	runner, err := migrate.NewSQLRunner(ctx, a.cfg.Migrate.Dir, db, a.log)
	if err != nil {
		return err
	}
	return runner.Run(ctx)
}
