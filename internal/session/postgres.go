package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rickgao/acto-client/internal/config"
	"github.com/rickgao/acto-client/internal/database"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS acto_credentials (
	name       TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// pgxQuerier is the subset of *pgxpool.Pool the store uses.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists values in a shared PostgreSQL table.
type PostgresStore struct {
	db    pgxQuerier
	close func()
}

// OpenPostgres connects to PostgreSQL and ensures the credentials table exists.
func OpenPostgres(ctx context.Context, cfg config.DBConfig) (*PostgresStore, error) {
	pool, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store, err := newPostgresStore(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgresStore wraps an existing pool. The caller keeps ownership of the pool.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	store, err := newPostgresStore(ctx, pool)
	if err != nil {
		return nil, err
	}
	store.close = nil
	return store, nil
}

func newPostgresStore(ctx context.Context, db pgxQuerier) (*PostgresStore, error) {
	if _, err := db.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("create credentials table: %w", err)
	}
	s := &PostgresStore{db: db}
	if pool, ok := db.(*pgxpool.Pool); ok {
		s.close = pool.Close
	}
	return s, nil
}

func (s *PostgresStore) Get(ctx context.Context, name string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(ctx, `SELECT value FROM acto_credentials WHERE name = $1`, name).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select credential: %w", err)
	}
	return value, true, nil
}

func (s *PostgresStore) Set(ctx context.Context, name, value string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO acto_credentials (name, value, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		name, value,
	)
	if err != nil {
		return fmt.Errorf("upsert credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, name string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM acto_credentials WHERE name = $1`, name); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}
