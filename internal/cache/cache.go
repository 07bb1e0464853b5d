package cache

import (
    "context"
    "errors"
    "fmt"
    "time"
)

// ErrUnavailable marks a failure of the backing store itself (connection
// lost, timeout). A cache miss is never reported with it.
var ErrUnavailable = errors.New("cache store unavailable")

// Store is a key/value store with per-entry expiry.
type Store interface {
    // Get returns ok=false on a miss.
    Get(ctx context.Context, key string) (value []byte, ok bool, err error)
    // Set replaces the value under key as a whole.
    Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
    Close() error
}

func unavailable(op, key string, err error) error {
    return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, op, key, err)
}
