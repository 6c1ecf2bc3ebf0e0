// Package cache defines the small key/value cache used by the pipeline
// for snapshot storage, last-good metric retention and alert idempotency
// keys. Redis backs it in production; a memory implementation backs
// tests and redis-less deployments.
package cache

import (
	"context"
	"strings"
	"time"
)

// Cache is a byte-value cache with TTLs. Add is an atomic set-if-absent
// and is the only cross-invocation coordination primitive the pipeline
// relies on (the alert idempotency gate).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration)
	Add(ctx context.Context, key string, value []byte, ttl time.Duration) bool
	Delete(ctx context.Context, key string)
}

const namespace = "marketsync"

// Key builds a namespaced cache key from parts. All pipeline keys go
// through this builder; no component hardcodes key literals.
func Key(parts ...string) string {
	return namespace + ":" + strings.Join(parts, ":")
}
