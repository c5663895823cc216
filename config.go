package pglink

import (
	"fmt"
	"strconv"
	"strings"
)

// Environment variables read by ResolveConfig. Either the single
// connection-string variable or the discrete set is used; the
// connection string wins when both are present.
const (
	EnvDatabaseURL = "PGLINK_DATABASE_URL"
	EnvHost        = "PGLINK_HOST"
	EnvPort        = "PGLINK_PORT"
	EnvUser        = "PGLINK_USER"
	EnvPassword    = "PGLINK_PASSWORD"
	EnvDatabase    = "PGLINK_DATABASE"
)

// DefaultPort is used when PGLINK_PORT is unset or unparseable.
const DefaultPort = 5432

// ConnConfig is the resolved database configuration. It is immutable
// once a connection has been opened from it; the ConnManager never
// replaces it while a handle is held.
type ConnConfig struct {
	// URL is a pre-assembled connection string. When set, the
	// discrete fields below are ignored.
	URL string

	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// ResolveConfig reads the database configuration from the environment.
// getenv is injected so tests never touch the process environment.
// Returns nil when no usable configuration is present; that is not an
// error here; the failure is surfaced lazily, on the first tool call
// that needs a connection.
func ResolveConfig(getenv func(string) string) *ConnConfig {
	if url := getenv(EnvDatabaseURL); url != "" {
		return &ConnConfig{URL: url}
	}

	host := getenv(EnvHost)
	user := getenv(EnvUser)
	password := getenv(EnvPassword)
	database := getenv(EnvDatabase)
	if host == "" || user == "" || password == "" || database == "" {
		return nil
	}

	port := DefaultPort
	if p := getenv(EnvPort); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			port = n
		}
	}

	return &ConnConfig{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		Database: database,
	}
}

// ConnString returns the pgx connection string for this configuration.
func (c *ConnConfig) ConnString() string {
	if c.URL != "" {
		return c.URL
	}
	parts := []string{
		fmt.Sprintf("host=%s", c.Host),
		fmt.Sprintf("port=%d", c.Port),
		fmt.Sprintf("user=%s", c.User),
		fmt.Sprintf("password=%s", c.Password),
		fmt.Sprintf("dbname=%s", c.Database),
	}
	return strings.Join(parts, " ")
}
