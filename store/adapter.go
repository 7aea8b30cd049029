package store

import (
	"context"
	"encoding/json"
)

// Adapter is the persistence contract conversations are stored through.
// Values are opaque JSON; implementations must be safe for concurrent
// use and must not alias stored bytes with callers.
type Adapter interface {
	// Get retrieves a value by key. A missing key returns nil, false, nil.
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)

	// Set stores a value under key, replacing any existing value.
	Set(ctx context.Context, key string, value json.RawMessage) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Has reports whether the key exists.
	Has(ctx context.Context, key string) (bool, error)

	// Keys returns all stored keys in no particular order.
	Keys(ctx context.Context) ([]string, error)

	// Len returns the number of stored keys.
	Len(ctx context.Context) (int, error)

	// Clear removes all data.
	Clear(ctx context.Context) error

	// Load retrieves every key and value.
	Load(ctx context.Context) (map[string]json.RawMessage, error)

	// Save replaces the entire contents with the given map.
	Save(ctx context.Context, data map[string]json.RawMessage) error
}
