package session

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gorilla/securecookie"
)

// FileStore persists values as signed cookies in a single file, one
// "name=value" line per cookie. Values are authenticated with hashKey and,
// when blockKey is set, encrypted with AES.
type FileStore struct {
	path  string
	codec *securecookie.SecureCookie

	mu     sync.Mutex
	closed bool
}

// NewFileStore creates a store backed by the cookie file at path.
// The file and its directory are created on first write.
func NewFileStore(path string, hashKey, blockKey []byte) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("cookie file path is required")
	}
	if len(hashKey) == 0 {
		return nil, errors.New("cookie hash key is required")
	}
	switch len(blockKey) {
	case 0, 16, 24, 32:
	default:
		return nil, fmt.Errorf("cookie block key must be 16, 24 or 32 bytes, got %d", len(blockKey))
	}
	if len(blockKey) == 0 {
		blockKey = nil
	}

	codec := securecookie.New(hashKey, blockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	// The backend owns credential expiry; the jar never ages values out.
	codec.MaxAge(0)

	return &FileStore{path: path, codec: codec}, nil
}

func (f *FileStore) Get(ctx context.Context, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return "", false, ErrClosed
	}

	jar, err := f.read()
	if err != nil {
		return "", false, err
	}
	encoded, ok := jar[name]
	if !ok {
		return "", false, nil
	}

	var value string
	if err := f.codec.Decode(name, encoded, &value); err != nil {
		return "", false, fmt.Errorf("%w: %s: %v", ErrBadValue, name, err)
	}
	return value, true, nil
}

func (f *FileStore) Set(ctx context.Context, name, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" || strings.ContainsAny(name, "=\n") {
		return fmt.Errorf("invalid cookie name %q", name)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}

	encoded, err := f.codec.Encode(name, value)
	if err != nil {
		return fmt.Errorf("encode cookie: %w", err)
	}

	jar, err := f.read()
	if err != nil {
		return err
	}
	jar[name] = encoded
	return f.write(jar)
}

func (f *FileStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}

	jar, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := jar[name]; !ok {
		return nil
	}
	delete(jar, name)
	return f.write(jar)
}

func (f *FileStore) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// read loads the jar. A missing file is an empty jar.
func (f *FileStore) read() (map[string]string, error) {
	jar := make(map[string]string)

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return jar, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cookie file: %w", err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 4096), 64*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		jar[name] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan cookie file: %w", err)
	}
	return jar, nil
}

// write replaces the file atomically.
func (f *FileStore) write(jar map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create cookie dir: %w", err)
	}

	names := make([]string, 0, len(jar))
	for name := range jar {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	buf.WriteString("# actochat cookie jar\n")
	for _, name := range names {
		buf.WriteString(name)
		buf.WriteByte('=')
		buf.WriteString(jar[name])
		buf.WriteByte('\n')
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".cookies-*")
	if err != nil {
		return fmt.Errorf("create temp cookie file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write cookie file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod cookie file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cookie file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace cookie file: %w", err)
	}
	return nil
}
