// Package store provides a key-value cache abstraction with in-memory and
// Redis backends. It caches upstream model lists and keeps request counters.
package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("store: key not found")

// Store is the interface for the key-value cache.
type Store interface {
	// Set stores a key-value pair. A ttl of 0 means no expiry.
	Set(key string, value []byte, ttl time.Duration) error
	// Get retrieves a value by its key. Returns ErrNotFound for missing keys.
	Get(key string) ([]byte, error)
	// Delete removes a value by its key. Deleting a missing key is not an error.
	Delete(key string) error
	// Exists checks if a key exists.
	Exists(key string) (bool, error)
	// IncrBy atomically increments a counter and returns the new value.
	IncrBy(key string, delta int64) (int64, error)
	// Clear removes all data owned by this process.
	Clear() error
	// Close releases resources held by the store.
	Close() error
}
