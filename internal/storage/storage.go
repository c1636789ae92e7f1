package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key holds no value
var ErrNotFound = errors.New("storage: key not found")

// Keys of the persisted session state
const (
	KeyTokens     = "tokens"
	KeyOAuthState = "oauth_state"
)

// KeyValue is the durable keyed persistence the session core depends on.
// Implementations must be safe for concurrent use.
type KeyValue interface {
	// Get returns the stored value or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting a missing key succeeds.
	Delete(ctx context.Context, key string) error
}

// Backend is a KeyValue with a lifecycle, as built by New
type Backend interface {
	KeyValue
	Name() string
	Health(ctx context.Context) error
	Close() error
}
