package cache

import (
	"context"
	"time"
)

// TTL sentinels, mirroring redis semantics.
const (
	NoExpiration time.Duration = -1
	KeyMissing   time.Duration = -2
)

// Store is a namespaced key/value cache with per-entry TTL.
// Values are JSON encoded; Get decodes into dest.
type Store interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	// Set stores value; ttl <= 0 means the store's default TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	Increment(ctx context.Context, key string, amount int64) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
	// WithPrefix returns a view onto the same backend under another namespace.
	WithPrefix(prefix string) Store
	Ping(ctx context.Context) error
}

func makeKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + ":" + key
}
