package session

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/rickgao/acto-client/internal/config"
)

// Open creates the Store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.SessionConfig) (Store, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemoryStore(), nil
	case "file":
		hashKey, err := decodeKey("session.file.hash_key", cfg.File.HashKey)
		if err != nil {
			return nil, err
		}
		blockKey, err := decodeKey("session.file.block_key", cfg.File.BlockKey)
		if err != nil {
			return nil, err
		}
		return NewFileStore(cfg.File.Path, hashKey, blockKey)
	case "sqlite":
		return OpenSQLite(ctx, cfg.SQLite.Path)
	case "postgres":
		return OpenPostgres(ctx, cfg.Postgres)
	default:
		return nil, fmt.Errorf("unknown session driver %q", cfg.Driver)
	}
}

func decodeKey(field, encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return key, nil
}
