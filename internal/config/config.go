package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Wait      WaitConfig
	Ownership OwnershipConfig
	Migrate   MigrateConfig
	AppUser   string
	AppGroup  string
}

type WaitConfig struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
	RetryDelay     time.Duration
}

type OwnershipConfig struct {
	Paths []string
}

type MigrateConfig struct {
	Enabled bool
	Dir     string
	// Command, when set, is run instead of the built-in SQL runner.
	Command []string
}

func Load() (Config, error) {
	cfg := Config{
		Wait: WaitConfig{
			MaxAttempts:    getEnvInt("WAIT_MAX_ATTEMPTS", 30),
			AttemptTimeout: time.Duration(getEnvInt("WAIT_ATTEMPT_TIMEOUT_SEC", 2)) * time.Second,
			RetryDelay:     time.Duration(getEnvInt("WAIT_RETRY_DELAY_SEC", 1)) * time.Second,
		},
		Ownership: OwnershipConfig{
			Paths: splitPaths(getEnv("CHOWN_PATHS", "/app/data")),
		},
		Migrate: MigrateConfig{
			Enabled: getEnvBool("RUN_MIGRATIONS", true),
			Dir:     getEnv("MIGRATIONS_DIR", "./migrations"),
			Command: strings.Fields(getEnv("MIGRATE_COMMAND", "")),
		},
		AppUser: getEnv("APP_USER", "app"),
	}
	cfg.AppGroup = getEnv("APP_GROUP", cfg.AppUser)

	if cfg.Wait.MaxAttempts <= 0 {
		return Config{}, fmt.Errorf("WAIT_MAX_ATTEMPTS must be > 0")
	}
	if cfg.Wait.AttemptTimeout <= 0 {
		return Config{}, fmt.Errorf("WAIT_ATTEMPT_TIMEOUT_SEC must be > 0")
	}
	if cfg.Wait.RetryDelay <= 0 {
		return Config{}, fmt.Errorf("WAIT_RETRY_DELAY_SEC must be > 0")
	}
	if cfg.AppUser == "" {
		return Config{}, fmt.Errorf("APP_USER must not be empty")
	}
	if cfg.Migrate.Enabled && len(cfg.Migrate.Command) == 0 && cfg.Migrate.Dir == "" {
		return Config{}, fmt.Errorf("MIGRATIONS_DIR must not be empty when RUN_MIGRATIONS is enabled")
	}

	return cfg, nil
}

func splitPaths(raw string) []string {
	out := make([]string, 0)
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	return val
}

func getEnvInt(key string, fallback int) int {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return b
}
