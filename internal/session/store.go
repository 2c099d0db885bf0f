package session

import (
	"context"
	"errors"
	"sync"
)

// TokenKey is the storage key of the bearer credential.
const TokenKey = "acto_token"

// Errors
var (
	ErrClosed   = errors.New("session store closed")
	ErrNotJWT   = errors.New("credential is not a JWT")
	ErrBadValue = errors.New("stored value failed verification")
)

// Store is a key/value credential store.
type Store interface {
	// Get returns the value stored under name. ok is false when nothing is stored.
	Get(ctx context.Context, name string) (value string, ok bool, err error)

	// Set stores value under name, replacing any existing value.
	Set(ctx context.Context, name, value string) error

	// Delete removes name. Deleting a missing name is not an error.
	Delete(ctx context.Context, name string) error

	// Close releases resources held by the store.
	Close() error
}

// MemoryStore keeps values in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, name string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return "", false, ErrClosed
	}
	v, ok := m.values[name]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.values[name] = value
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.values, name)
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
