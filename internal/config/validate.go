package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Validate checks that all required fields are set and values are valid.
func (c *ClientConfig) Validate() error {
	if err := validateURL("api.base_url", c.API.BaseURL, "http", "https"); err != nil {
		return err
	}
	if c.API.Timeout < 0 {
		return errors.New("api.timeout must be >= 0")
	}
	if c.API.RateLimit < 0 {
		return errors.New("api.rate_limit must be >= 0")
	}

	if err := validateURL("realtime.url", c.Realtime.URL, "http", "https", "ws", "wss"); err != nil {
		return err
	}
	if c.Realtime.ReconnectAttempts < 0 {
		return errors.New("realtime.reconnect_attempts must be >= 0")
	}
	if c.Realtime.ReconnectDelay < 0 {
		return errors.New("realtime.reconnect_delay must be >= 0")
	}

	if c.Session.Key == "" {
		return errors.New("session.key is required")
	}
	switch c.Session.Driver {
	case "memory":
	case "file":
		if c.Session.File.Path == "" {
			return errors.New("session.file.path is required")
		}
		if c.Session.File.HashKey == "" {
			return errors.New("session.file.hash_key is required")
		}
	case "sqlite":
		if c.Session.SQLite.Path == "" {
			return errors.New("session.sqlite.path is required")
		}
	case "postgres":
		if err := c.Session.Postgres.validate("session.postgres"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("session.driver %q is not one of memory, file, sqlite, postgres", c.Session.Driver)
	}

	if c.Format.Timezone != "" {
		if _, err := time.LoadLocation(c.Format.Timezone); err != nil {
			return fmt.Errorf("format.timezone: %w", err)
		}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q is not one of text, json", c.Log.Format)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

func validateURL(field, raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", field, raw)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("%s has unsupported scheme %q", field, u.Scheme)
}
