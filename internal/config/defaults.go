package config

import (
	"os"
	"path/filepath"
	"time"
)

// Default values for optional configuration fields.
const (
	DefaultBaseURL           = "https://acto-0gf5.onrender.com"
	DefaultAPITimeout        = 10 * time.Second
	DefaultLoginPath         = "/auth"
	DefaultConnectTimeout    = 20 * time.Second
	DefaultWriteTimeout      = 5 * time.Second
	DefaultReconnectAttempts = 5
	DefaultReconnectDelay    = 1 * time.Second
	DefaultSessionDriver     = "sqlite"
	DefaultSessionKey        = "acto_token"
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 4
	DefaultMinConns          = 0
	DefaultLocale            = "ru"
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
	DefaultMetricsPath       = "/metrics"
)

func (c *ClientConfig) applyDefaults() {
	// API defaults
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.LoginPath == "" {
		c.API.LoginPath = DefaultLoginPath
	}

	// Realtime defaults
	if c.Realtime.URL == "" {
		c.Realtime.URL = c.API.BaseURL
	}
	if c.Realtime.ConnectTimeout == 0 {
		c.Realtime.ConnectTimeout = DefaultConnectTimeout
	}
	if c.Realtime.WriteTimeout == 0 {
		c.Realtime.WriteTimeout = DefaultWriteTimeout
	}
	if c.Realtime.ReconnectAttempts == 0 {
		c.Realtime.ReconnectAttempts = DefaultReconnectAttempts
	}
	if c.Realtime.ReconnectDelay == 0 {
		c.Realtime.ReconnectDelay = DefaultReconnectDelay
	}

	// Session defaults
	if c.Session.Driver == "" {
		c.Session.Driver = DefaultSessionDriver
	}
	if c.Session.Key == "" {
		c.Session.Key = DefaultSessionKey
	}
	if c.Session.File.Path == "" {
		c.Session.File.Path = filepath.Join(stateDir(), "cookies")
	}
	if c.Session.SQLite.Path == "" {
		c.Session.SQLite.Path = filepath.Join(stateDir(), "session.db")
	}
	applyDBDefaults(&c.Session.Postgres)

	// Format defaults
	if c.Format.Locale == "" {
		c.Format.Locale = DefaultLocale
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}

	// Metrics defaults
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}

// stateDir is where local session state lives (~/.config/actochat).
func stateDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".actochat"
	}
	return filepath.Join(dir, "actochat")
}
