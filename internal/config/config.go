package config

import "time"

// ClientConfig is the root configuration for an actochat client.
type ClientConfig struct {
	API      APIConfig      `yaml:"api"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Session  SessionConfig  `yaml:"session"`
	Format   FormatConfig   `yaml:"format"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// APIConfig holds backend REST settings.
type APIConfig struct {
	BaseURL   string        `yaml:"base_url" env:"ACTO_API_BASE_URL"`
	Timeout   time.Duration `yaml:"timeout" env:"ACTO_API_TIMEOUT"`
	LoginPath string        `yaml:"login_path" env:"ACTO_API_LOGIN_PATH"`
	RateLimit float64       `yaml:"rate_limit" env:"ACTO_API_RATE_LIMIT"` // requests per second, 0 = unlimited
}

// RealtimeConfig holds Socket.IO connection settings.
type RealtimeConfig struct {
	URL               string        `yaml:"url" env:"ACTO_REALTIME_URL"` // defaults to api.base_url
	ConnectTimeout    time.Duration `yaml:"connect_timeout" env:"ACTO_REALTIME_CONNECT_TIMEOUT"`
	WriteTimeout      time.Duration `yaml:"write_timeout" env:"ACTO_REALTIME_WRITE_TIMEOUT"`
	ReconnectAttempts int           `yaml:"reconnect_attempts" env:"ACTO_REALTIME_RECONNECT_ATTEMPTS"`
	ReconnectDelay    time.Duration `yaml:"reconnect_delay" env:"ACTO_REALTIME_RECONNECT_DELAY"`
}

// SessionConfig selects where the bearer credential is persisted.
type SessionConfig struct {
	Driver   string          `yaml:"driver" env:"ACTO_SESSION_DRIVER"` // memory, file, sqlite, postgres
	Key      string          `yaml:"key" env:"ACTO_SESSION_KEY"`
	File     FileStoreConfig `yaml:"file"`
	SQLite   SQLiteConfig    `yaml:"sqlite"`
	Postgres DBConfig        `yaml:"postgres"`
}

// FileStoreConfig configures the signed cookie file.
type FileStoreConfig struct {
	Path     string `yaml:"path" env:"ACTO_SESSION_FILE"`
	HashKey  string `yaml:"hash_key" env:"ACTO_SESSION_HASH_KEY"`   // base64, required
	BlockKey string `yaml:"block_key" env:"ACTO_SESSION_BLOCK_KEY"` // base64, optional (16, 24 or 32 bytes)
}

// SQLiteConfig configures the local SQLite credential database.
type SQLiteConfig struct {
	Path string `yaml:"path" env:"ACTO_SESSION_SQLITE_PATH"`
}

// DBConfig holds a single PostgreSQL connection.
type DBConfig struct {
	Host     string `yaml:"host" env:"ACTO_PG_HOST"`
	Port     int    `yaml:"port" env:"ACTO_PG_PORT"`
	Name     string `yaml:"name" env:"ACTO_PG_NAME"`
	User     string `yaml:"user" env:"ACTO_PG_USER"`
	Password string `yaml:"password" env:"ACTO_PG_PASSWORD"`
	SSLMode  string `yaml:"ssl_mode" env:"ACTO_PG_SSL_MODE"`
	MaxConns int    `yaml:"max_conns" env:"ACTO_PG_MAX_CONNS"`
	MinConns int    `yaml:"min_conns" env:"ACTO_PG_MIN_CONNS"`
}

// FormatConfig holds presentation settings.
type FormatConfig struct {
	Locale   string `yaml:"locale" env:"ACTO_LOCALE"`
	Timezone string `yaml:"timezone" env:"ACTO_TIMEZONE"`
}

// LogConfig holds slog handler settings.
type LogConfig struct {
	Level  string `yaml:"level" env:"ACTO_LOG_LEVEL"`   // debug, info, warn, error
	Format string `yaml:"format" env:"ACTO_LOG_FORMAT"` // text, json
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Addr string `yaml:"addr" env:"ACTO_METRICS_ADDR"` // empty disables the endpoint
	Path string `yaml:"path" env:"ACTO_METRICS_PATH"`
}
