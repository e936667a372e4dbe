package interfaces

import (
	"context"
	"time"
)

// CacheStorage is a byte-oriented key/value store with per-entry expiry.
type CacheStorage interface {
	// Get returns (value, true, nil) on a live hit and (nil, false, nil) on a miss or
	// an expired entry.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	PurgeExpired(ctx context.Context) (int, error)
}
