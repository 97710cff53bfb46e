package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")

	// ErrUnavailable indicates the cache backend could not be reached
	ErrUnavailable = errors.New("cache unavailable")
)

// Manager handles caching operations with Redis backend.
type Manager struct {
	redis *redis.Client
}

// NewManager creates a new cache manager with Redis backend.
func NewManager(redisClient *redis.Client) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Manager{
		redis: redisClient,
	}
}

// Get loads the entry stored under key and decodes its value into dest
// (dest may be nil). Returns ErrCacheMiss if the key doesn't exist or the
// entry is expired, and ErrUnavailable if Redis fails.
func (m *Manager) Get(ctx context.Context, key Key, dest any) (*Entry, error) {
	cacheKey := key.String()

	data, err := m.redis.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: redis get: %w", ErrUnavailable, err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if entry.IsExpired() {
		_ = m.Delete(ctx, key)
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	if dest != nil {
		if err := entry.Decode(dest); err != nil {
			CacheErrors.WithLabelValues("get").Inc()
			return nil, fmt.Errorf("%w: decode value: %v", ErrInvalidEntry, err)
		}
	}

	CacheHits.Inc()
	return &entry, nil
}

// Set stores value under key for ttl and returns the written entry.
// A non-positive ttl stores nothing.
func (m *Manager) Set(ctx context.Context, key Key, value any, ttl time.Duration) (*Entry, error) {
	entry, err := NewEntry(value, ttl)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return nil, fmt.Errorf("marshal cache value: %w", err)
	}
	if ttl <= 0 {
		return entry, nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return nil, fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return nil, fmt.Errorf("%w: redis set: %w", ErrUnavailable, err)
	}

	CacheSize.Set(float64(len(data)))

	return entry, nil
}

// Delete removes a cache entry.
func (m *Manager) Delete(ctx context.Context, key Key) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("%w: redis del: %w", ErrUnavailable, err)
	}
	return nil
}

// Exists reports whether key is present.
func (m *Manager) Exists(ctx context.Context, key Key) (bool, error) {
	n, err := m.redis.Exists(ctx, key.String()).Result()
	if err != nil {
		CacheErrors.WithLabelValues("exists").Inc()
		return false, fmt.Errorf("%w: redis exists: %w", ErrUnavailable, err)
	}
	return n > 0, nil
}

// DeleteStore removes every key of store and returns how many were deleted.
func (m *Manager) DeleteStore(ctx context.Context, store string) (int, error) {
	var deleted int
	iter := m.redis.Scan(ctx, 0, StorePattern(store), 100).Iterator()
	for iter.Next(ctx) {
		if err := m.redis.Del(ctx, iter.Val()).Err(); err != nil {
			CacheErrors.WithLabelValues("delete").Inc()
			return deleted, fmt.Errorf("%w: redis del: %w", ErrUnavailable, err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		CacheErrors.WithLabelValues("scan").Inc()
		return deleted, fmt.Errorf("%w: redis scan: %w", ErrUnavailable, err)
	}
	return deleted, nil
}

// Ping checks the Redis connection.
func (m *Manager) Ping(ctx context.Context) error {
	if err := m.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}
