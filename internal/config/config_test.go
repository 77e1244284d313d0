package config

import (
	"errors"
	"testing"
	"time"
)

func clearEntrypointEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"WAIT_MAX_ATTEMPTS", "WAIT_ATTEMPT_TIMEOUT_SEC", "WAIT_RETRY_DELAY_SEC",
		"CHOWN_PATHS", "RUN_MIGRATIONS", "MIGRATIONS_DIR", "MIGRATE_COMMAND",
		"APP_USER", "APP_GROUP",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEntrypointEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Wait.MaxAttempts != 30 {
		t.Fatalf("expected default max attempts 30, got %d", cfg.Wait.MaxAttempts)
	}
	if cfg.Wait.AttemptTimeout != 2*time.Second {
		t.Fatalf("expected default attempt timeout 2s, got %v", cfg.Wait.AttemptTimeout)
	}
	if cfg.Wait.RetryDelay != time.Second {
		t.Fatalf("expected default retry delay 1s, got %v", cfg.Wait.RetryDelay)
	}
	if len(cfg.Ownership.Paths) != 1 || cfg.Ownership.Paths[0] != "/app/data" {
		t.Fatalf("expected default chown paths [/app/data], got %v", cfg.Ownership.Paths)
	}
	if !cfg.Migrate.Enabled {
		t.Fatalf("expected migrations enabled by default")
	}
	if cfg.Migrate.Dir != "./migrations" {
		t.Fatalf("expected default migrations dir ./migrations, got %q", cfg.Migrate.Dir)
	}
	if len(cfg.Migrate.Command) != 0 {
		t.Fatalf("expected no migrate command by default, got %v", cfg.Migrate.Command)
	}
	if cfg.AppUser != "app" {
		t.Fatalf("expected default app user app, got %q", cfg.AppUser)
	}
	if cfg.AppGroup != "app" {
		t.Fatalf("expected app group to default to app user, got %q", cfg.AppGroup)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEntrypointEnv(t)
	t.Setenv("WAIT_MAX_ATTEMPTS", "5")
	t.Setenv("WAIT_ATTEMPT_TIMEOUT_SEC", "7")
	t.Setenv("WAIT_RETRY_DELAY_SEC", "3")
	t.Setenv("CHOWN_PATHS", "/data, /var/log/app ,")
	t.Setenv("RUN_MIGRATIONS", "false")
	t.Setenv("MIGRATE_COMMAND", "alembic upgrade head")
	t.Setenv("APP_USER", "habit")
	t.Setenv("APP_GROUP", "tracker")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Wait.MaxAttempts != 5 {
		t.Fatalf("expected max attempts 5, got %d", cfg.Wait.MaxAttempts)
	}
	if cfg.Wait.AttemptTimeout != 7*time.Second {
		t.Fatalf("expected attempt timeout 7s, got %v", cfg.Wait.AttemptTimeout)
	}
	if cfg.Wait.RetryDelay != 3*time.Second {
		t.Fatalf("expected retry delay 3s, got %v", cfg.Wait.RetryDelay)
	}
	if len(cfg.Ownership.Paths) != 2 || cfg.Ownership.Paths[0] != "/data" || cfg.Ownership.Paths[1] != "/var/log/app" {
		t.Fatalf("expected chown paths [/data /var/log/app], got %v", cfg.Ownership.Paths)
	}
	if cfg.Migrate.Enabled {
		t.Fatalf("expected migrations disabled")
	}
	if len(cfg.Migrate.Command) != 3 || cfg.Migrate.Command[0] != "alembic" {
		t.Fatalf("expected migrate command [alembic upgrade head], got %v", cfg.Migrate.Command)
	}
	if cfg.AppUser != "habit" || cfg.AppGroup != "tracker" {
		t.Fatalf("expected app user habit group tracker, got %q/%q", cfg.AppUser, cfg.AppGroup)
	}
}

func TestLoadRejectsNonPositiveWaitSettings(t *testing.T) {
	clearEntrypointEnv(t)
	t.Setenv("WAIT_MAX_ATTEMPTS", "-1")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for negative WAIT_MAX_ATTEMPTS")
	}
}

func clearTargetEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATABASE_URL", "DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "DB_PASSWORD", "DB_SSLMODE",
	} {
		t.Setenv(key, "")
	}
}

func setCompleteTargetEnv(t *testing.T) {
	t.Helper()
	clearTargetEnv(t)
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_NAME", "habit_tracker_db")
	t.Setenv("DB_USER", "habit_tracker_user")
	t.Setenv("DB_PASSWORD", "secret")
}

func TestLoadTarget(t *testing.T) {
	setCompleteTargetEnv(t)

	target, err := LoadTarget()
	if err != nil {
		t.Fatalf("LoadTarget() returned error: %v", err)
	}
	if target.Host != "db" || target.Port != 5432 {
		t.Fatalf("expected db:5432, got %s:%d", target.Host, target.Port)
	}
	if target.Database != "habit_tracker_db" {
		t.Fatalf("expected database habit_tracker_db, got %q", target.Database)
	}
	if target.User != "habit_tracker_user" || target.Password != "secret" {
		t.Fatalf("unexpected credentials %q/%q", target.User, target.Password)
	}
	if target.SSLMode != "disable" {
		t.Fatalf("expected default sslmode disable, got %q", target.SSLMode)
	}
}

func TestLoadTargetMissingFields(t *testing.T) {
	for _, key := range []string{"DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "DB_PASSWORD"} {
		t.Run(key, func(t *testing.T) {
			setCompleteTargetEnv(t)
			t.Setenv(key, "")

			_, err := LoadTarget()
			var missing *MissingFieldError
			if !errors.As(err, &missing) {
				t.Fatalf("expected MissingFieldError, got %v", err)
			}
			if missing.Key != key {
				t.Fatalf("expected missing key %s, got %s", key, missing.Key)
			}
		})
	}
}

func TestLoadTargetInvalidPort(t *testing.T) {
	setCompleteTargetEnv(t)
	t.Setenv("DB_PORT", "not-a-port")

	_, err := LoadTarget()
	var invalid *InvalidFieldError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidFieldError, got %v", err)
	}
	if invalid.Key != "DB_PORT" {
		t.Fatalf("expected invalid key DB_PORT, got %s", invalid.Key)
	}
}

func TestLoadTargetDatabaseURLWins(t *testing.T) {
	clearTargetEnv(t)
	t.Setenv("DATABASE_URL", "postgres://u:p@elsewhere:5433/other")

	target, err := LoadTarget()
	if err != nil {
		t.Fatalf("LoadTarget() returned error: %v", err)
	}
	if target.URL != "postgres://u:p@elsewhere:5433/other" {
		t.Fatalf("expected pre-composed URL to be kept, got %q", target.URL)
	}
	if target.DSN() != target.URL {
		t.Fatalf("expected DSN to return the pre-composed URL, got %q", target.DSN())
	}
}

func TestTargetDSNEscapesPassword(t *testing.T) {
	target := Target{
		Host:     "db",
		Port:     5432,
		Database: "habit_tracker_db",
		User:     "habit_tracker_user",
		Password: "p@ss/word",
		SSLMode:  "disable",
	}

	want := "postgres://habit_tracker_user:p%40ss%2Fword@db:5432/habit_tracker_db?sslmode=disable"
	if got := target.DSN(); got != want {
		t.Fatalf("DSN() = %q, want %q", got, want)
	}
}
