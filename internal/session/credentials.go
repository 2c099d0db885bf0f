package session

import (
	"context"
	"fmt"
	"log/slog"
)

// Credentials reads and writes the bearer token in a Store.
type Credentials struct {
	store  Store
	key    string
	logger *slog.Logger
}

// NewCredentials binds a Store to the token key. An empty key means TokenKey.
func NewCredentials(store Store, key string, logger *slog.Logger) *Credentials {
	if key == "" {
		key = TokenKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Credentials{store: store, key: key, logger: logger}
}

// Token returns the stored token, or "" when none is stored.
// A store failure is logged and treated as "no credential" so callers can still
// issue unauthenticated requests.
func (c *Credentials) Token(ctx context.Context) string {
	if c == nil || c.store == nil {
		return ""
	}
	token, ok, err := c.store.Get(ctx, c.key)
	if err != nil {
		c.logger.Warn("failed to read credential", "key", c.key, "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	return token
}

// Save stores a token.
func (c *Credentials) Save(ctx context.Context, token string) error {
	if err := c.store.Set(ctx, c.key, token); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

// Clear erases the stored token.
func (c *Credentials) Clear(ctx context.Context) error {
	if err := c.store.Delete(ctx, c.key); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}

// Key returns the storage key the credential lives under.
func (c *Credentials) Key() string {
	return c.key
}
