package querycache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	pkgredis "github.com/gyoansoft/gyoan-backend/pkg/redis"
)

// redisStore is the slice of the Redis client this cache needs.
type redisStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	CacheKey(namespace string, parts ...string) string
	CacheVersionKey(namespace string) string
}

// Redis caches entries under a versioned namespace. Every key embeds a
// generation number, so bumping the generation with one INCR makes every
// previously written key unreachable. Set writes into the generation its
// caller observed at read time; if an eviction ran in between, the entry
// lands under a dead key and ages out via TTL instead of reappearing.
type Redis struct {
	store     redisStore
	namespace string
	ttl       time.Duration
}

// NewRedis builds a Redis-backed cache for the given namespace.
func NewRedis(store *pkgredis.Client, namespace string, ttl time.Duration) (*Redis, error) {
	if store == nil {
		return nil, errors.New("redis client is required")
	}
	if namespace == "" {
		return nil, errors.New("cache namespace is required")
	}
	return &Redis{store: store, namespace: namespace, ttl: ttl}, nil
}

// Get returns the cached value for key in the current generation, along with
// the generation it observed.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, uint64, error) {
	gen, err := r.generation(ctx)
	if err != nil {
		return nil, false, 0, err
	}
	value, err := r.store.Get(ctx, r.key(gen, key))
	if err != nil {
		if errors.Is(err, pkgredis.Nil) {
			return nil, false, gen, nil
		}
		return nil, false, gen, fmt.Errorf("cache get: %w", err)
	}
	return []byte(value), true, gen, nil
}

// Set stores value under key in the given generation with the configured TTL.
func (r *Redis) Set(ctx context.Context, key string, value []byte, gen uint64) error {
	if err := r.store.Set(ctx, r.key(gen, key), string(value), r.ttl); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// EvictAll advances the generation counter. Old entries age out via TTL.
func (r *Redis) EvictAll(ctx context.Context) error {
	if _, err := r.store.Incr(ctx, r.store.CacheVersionKey(r.namespace)); err != nil {
		return fmt.Errorf("cache evict: %w", err)
	}
	return nil
}

func (r *Redis) generation(ctx context.Context) (uint64, error) {
	version, err := r.store.Get(ctx, r.store.CacheVersionKey(r.namespace))
	if err != nil {
		if errors.Is(err, pkgredis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("cache version: %w", err)
	}
	gen, err := strconv.ParseUint(version, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("cache version: %w", err)
	}
	return gen, nil
}

func (r *Redis) key(gen uint64, key string) string {
	return r.store.CacheKey(r.namespace, "v"+strconv.FormatUint(gen, 10), key)
}
