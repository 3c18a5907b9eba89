package kvstore

import (
	"context"
	"errors"
)

var (
	// ErrKeyNotFound is returned by Get when the key has no value.
	ErrKeyNotFound = errors.New("key not found")
)

// Store is a minimal persistent key-value store: string keys mapped to
// JSON-serialized byte values.
type Store interface {
	// Get returns the value stored under key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// RemoveAll deletes every given key, continuing past missing keys.
	RemoveAll(ctx context.Context, keys ...string) error

	// Close releases underlying resources.
	Close() error
}
