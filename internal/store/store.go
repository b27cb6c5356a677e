package store

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned by Get when a key is absent, whether it
// never existed or its TTL elapsed. The two cases are indistinguishable
// on purpose.
var ErrKeyNotFound = errors.New("store: key not found")

// Store is the narrow contract over the external key-value collaborator.
// Implementations must be safe for concurrent use on independent keys;
// no cross-key transactions and no compare-and-swap are offered.
type Store interface {
	// Get returns the value stored under key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Put stores value under key. A ttl of zero means no expiry.
	Put(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// ListKeys returns all keys with the given prefix.
	ListKeys(ctx context.Context, prefix string) ([]string, error)

	// Increment adds one to the integer counter under key and returns
	// the new value. The window TTL is applied only when the counter is
	// created; later increments preserve the original expiry.
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}
