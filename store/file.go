package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const fileExt = ".json"

// FileAdapter stores each key as one JSON file in a directory. Writes go
// through a temp file and rename, so a crash never leaves a half-written
// value behind. Keys are path-escaped into file names, letting arbitrary
// conversation IDs share one flat directory.
type FileAdapter struct {
	dir    string
	mu     sync.RWMutex
	logger zerolog.Logger
}

// FileOption configures a FileAdapter.
type FileOption func(*FileAdapter)

// WithLogger sets the logger used for non-fatal housekeeping failures,
// like a temp file that could not be removed.
func WithLogger(logger zerolog.Logger) FileOption {
	return func(f *FileAdapter) {
		f.logger = logger
	}
}

// NewFileAdapter creates the directory if needed and returns an adapter
// over it.
func NewFileAdapter(dir string, opts ...FileOption) (*FileAdapter, error) {
	if dir == "" {
		return nil, errors.New("store: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: creating %s: %w", dir, err)
	}
	f := &FileAdapter{dir: dir, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Dir returns the directory backing the adapter.
func (f *FileAdapter) Dir() string {
	return f.dir
}

func (f *FileAdapter) path(key string) string {
	return filepath.Join(f.dir, url.PathEscape(key)+fileExt)
}

// Get retrieves the value stored under key.
func (f *FileAdapter) Get(_ context.Context, key string) (json.RawMessage, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	raw, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("store: reading %q: %w", key, err)
	}
	return raw, true, nil
}

// Set stores value under key, atomically replacing any existing file.
func (f *FileAdapter) Set(_ context.Context, key string, value json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.write(key, value)
}

// write performs the temp-and-rename dance. Callers hold the lock.
func (f *FileAdapter) write(key string, value json.RawMessage) error {
	tmp, err := os.CreateTemp(f.dir, ".write-*")
	if err != nil {
		return fmt.Errorf("store: writing %q: %w", key, err)
	}

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		f.discard(tmp.Name())
		return fmt.Errorf("store: writing %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		f.discard(tmp.Name())
		return fmt.Errorf("store: writing %q: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), f.path(key)); err != nil {
		f.discard(tmp.Name())
		return fmt.Errorf("store: writing %q: %w", key, err)
	}
	return nil
}

func (f *FileAdapter) discard(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		f.logger.Warn().Err(err).Str("path", path).Msg("removing temp file")
	}
}

// Delete removes a key. Deleting a missing key is not an error.
func (f *FileAdapter) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("store: deleting %q: %w", key, err)
	}
	return nil
}

// Has reports whether the key exists.
func (f *FileAdapter) Has(_ context.Context, key string) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if _, err := os.Stat(f.path(key)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("store: checking %q: %w", key, err)
	}
	return true, nil
}

// Keys returns all stored keys.
func (f *FileAdapter) Keys(_ context.Context) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.keys()
}

func (f *FileAdapter) keys() ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("store: listing %s: %w", f.dir, err)
	}

	var keys []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, fileExt) || strings.HasPrefix(name, ".") {
			continue
		}
		key, err := url.PathUnescape(strings.TrimSuffix(name, fileExt))
		if err != nil {
			f.logger.Warn().Str("file", name).Msg("skipping unparseable store file")
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// Len returns the number of stored keys.
func (f *FileAdapter) Len(ctx context.Context) (int, error) {
	keys, err := f.Keys(ctx)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Clear removes all stored values.
func (f *FileAdapter) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clear()
}

func (f *FileAdapter) clear() error {
	keys, err := f.keys()
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := os.Remove(f.path(key)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("store: deleting %q: %w", key, err)
		}
	}
	return nil
}

// Load retrieves every key and value.
func (f *FileAdapter) Load(_ context.Context) (map[string]json.RawMessage, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	keys, err := f.keys()
	if err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage, len(keys))
	for _, key := range keys {
		raw, err := os.ReadFile(f.path(key))
		if err != nil {
			return nil, fmt.Errorf("store: reading %q: %w", key, err)
		}
		out[key] = raw
	}
	return out, nil
}

// Save replaces the entire contents with the given map.
func (f *FileAdapter) Save(_ context.Context, data map[string]json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.clear(); err != nil {
		return err
	}
	for key, value := range data {
		if err := f.write(key, value); err != nil {
			return err
		}
	}
	return nil
}
