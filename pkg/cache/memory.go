package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps entries in process. Namespaced views share one go-cache instance.
type MemoryStore struct {
	c          *gocache.Cache
	mu         *sync.Mutex
	prefix     string
	defaultTTL time.Duration
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(prefix string, defaultTTL time.Duration) *MemoryStore {
	return &MemoryStore{
		// purge expired items every 10 minutes
		c:          gocache.New(defaultTTL, 10*time.Minute),
		mu:         &sync.Mutex{},
		prefix:     prefix,
		defaultTTL: defaultTTL,
	}
}

func (s *MemoryStore) WithPrefix(prefix string) Store {
	return &MemoryStore{c: s.c, mu: s.mu, prefix: prefix, defaultTTL: s.defaultTTL}
}

func (s *MemoryStore) key(k string) string {
	return makeKey(s.prefix, k)
}

func (s *MemoryStore) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	item, found := s.c.Get(s.key(key))
	if !found {
		return false, nil
	}

	var raw []byte
	switch v := item.(type) {
	case []byte:
		raw = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return false, fmt.Errorf("encode cached %s: %w", key, err)
		}
		raw = b
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	s.c.Set(s.key(key), data, ttl)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) (bool, error) {
	k := s.key(key)
	_, found := s.c.Get(k)
	s.c.Delete(k)
	return found, nil
}

func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	_, found := s.c.Get(s.key(key))
	return found, nil
}

func (s *MemoryStore) Increment(ctx context.Context, key string, amount int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := s.key(key)
	item, expiresAt, found := s.c.GetWithExpiration(k)
	if !found {
		s.c.Set(k, amount, gocache.NoExpiration)
		return amount, nil
	}

	current, err := toInt64(item)
	if err != nil {
		return 0, fmt.Errorf("increment %s: %w", key, err)
	}
	next := current + amount
	s.c.Set(k, next, remaining(expiresAt))
	return next, nil
}

func (s *MemoryStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := s.key(key)
	item, found := s.c.Get(k)
	if !found {
		return false, nil
	}
	s.c.Set(k, item, ttl)
	return true, nil
}

func (s *MemoryStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	_, expiresAt, found := s.c.GetWithExpiration(s.key(key))
	if !found {
		return KeyMissing, nil
	}
	if expiresAt.IsZero() {
		return NoExpiration, nil
	}
	return time.Until(expiresAt), nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func remaining(expiresAt time.Time) time.Duration {
	if expiresAt.IsZero() {
		return gocache.NoExpiration
	}
	d := time.Until(expiresAt)
	if d <= 0 {
		// about to expire anyway; keep a minimal window instead of the default TTL
		return time.Millisecond
	}
	return d
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case []byte:
		var parsed int64
		if err := json.Unmarshal(n, &parsed); err != nil {
			return 0, fmt.Errorf("value is not an integer")
		}
		return parsed, nil
	}
	return 0, fmt.Errorf("value is not an integer")
}
