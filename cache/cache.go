// Package cache memoizes idempotent read results for a bounded time.
package cache

import (
	"context"
	"time"
)

// ResultCache stores opaque values by key. A miss is (nil, false, nil).
type ResultCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
