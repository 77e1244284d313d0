package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
)

// Target identifies the database endpoint the entrypoint waits for and
// migrates. It is read once from the environment and never mutated.
type Target struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	// URL is a pre-composed connection string (DATABASE_URL). When set it
	// takes precedence over the discrete fields.
	URL string
}

// MissingFieldError reports a required environment variable that is not set.
type MissingFieldError struct {
	Key string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("required environment variable %s is not set", e.Key)
}

// InvalidFieldError reports an environment variable whose value cannot be used.
type InvalidFieldError struct {
	Key   string
	Value string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("invalid value %q for environment variable %s", e.Value, e.Key)
}

// LoadTarget assembles the connection target from the environment in a single
// validation step: either every required field is present, or the first
// missing field is reported by name. There are deliberately no defaults for
// the discrete fields, so a half-configured environment cannot slip through.
func LoadTarget() (Target, error) {
	if raw := os.Getenv("DATABASE_URL"); raw != "" {
		if _, err := url.Parse(raw); err != nil {
			return Target{}, &InvalidFieldError{Key: "DATABASE_URL", Value: raw}
		}
		return Target{URL: raw}, nil
	}

	t := Target{
		Host:     os.Getenv("DB_HOST"),
		Database: os.Getenv("DB_NAME"),
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	if t.Host == "" {
		return Target{}, &MissingFieldError{Key: "DB_HOST"}
	}
	rawPort := os.Getenv("DB_PORT")
	if rawPort == "" {
		return Target{}, &MissingFieldError{Key: "DB_PORT"}
	}
	port, err := strconv.Atoi(rawPort)
	if err != nil || port <= 0 || port > 65535 {
		return Target{}, &InvalidFieldError{Key: "DB_PORT", Value: rawPort}
	}
	t.Port = port
	if t.Database == "" {
		return Target{}, &MissingFieldError{Key: "DB_NAME"}
	}
	if t.User == "" {
		return Target{}, &MissingFieldError{Key: "DB_USER"}
	}
	if t.Password == "" {
		return Target{}, &MissingFieldError{Key: "DB_PASSWORD"}
	}

	return t, nil
}

// DSN returns the connection string for the target. The pre-composed URL wins
// when present; otherwise the discrete fields are composed with proper
// escaping of credentials.
func (t Target) DSN() string {
	if t.URL != "" {
		return t.URL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(t.User, t.Password),
		Host:   net.JoinHostPort(t.Host, strconv.Itoa(t.Port)),
		Path:   "/" + t.Database,
	}
	if t.SSLMode != "" {
		q := url.Values{}
		q.Set("sslmode", t.SSLMode)
		u.RawQuery = q.Encode()
	}
	return u.String()
}
