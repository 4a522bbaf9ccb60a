package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Get when no live value exists for the key.
	ErrNotFound = errors.New("key not found")
	// ErrBackend wraps storage backend failures.
	ErrBackend = errors.New("store backend unavailable")
)

// Store is durable key-value persistence with a per-key time-to-live.
// Writes are last-write-wins: the backend offers no compare-and-swap or
// locking primitive, so two near-simultaneous writers race and the later
// write is the one subsequent reads observe. Higher layers must tolerate
// that. The backend guarantees at least the requested retention, not more.
type Store interface {
	// Set upserts the value under key with the given retention.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns the most recently written value visible to this call,
	// or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
