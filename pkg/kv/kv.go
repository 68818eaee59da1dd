package kv

import "context"

// Store defines the interface for a key-value store.
// Implementations of this interface can be swapped out,
// allowing for different storage backends (e.g., remote Redis, in-memory).
type Store interface {
	// Get retrieves the value associated with the given key.
	// Returns the value and true if the key exists, or empty string and false
	// if not. A missing key is not an error.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores a key-value pair, overwriting any previous value.
	// Returns an error if the operation fails.
	Set(ctx context.Context, key, value string) error
}
