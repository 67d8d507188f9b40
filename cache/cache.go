// Package cache keeps short-lived site state, such as basket contents, in
// process memory or in a Redis compatible server.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrUnsupportedDSN is returned when no backend understands a cache DSN.
var ErrUnsupportedDSN = errors.New("unsupported cache dsn")

// RawCache stores opaque values under string keys. Backends treat a non
// positive ttl as their default lifetime.
type RawCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Flush(ctx context.Context) error
	Close() error
}

// Counter is implemented by backends that keep atomic integer counters
// with their own expiry. Counters share the key space of the cache.
type Counter interface {
	// Increment adds delta to the counter under key, starting from zero,
	// and returns the new value.
	Increment(ctx context.Context, key string, delta int64) (int64, error)
	// Expire sets the lifetime of an existing key. A non positive ttl
	// removes the expiry.
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// ErrNotCounter is returned when a counter is stored under a key holding
// another value.
var ErrNotCounter = errors.New("cached value is not a counter")

// JSON stores values of V encoded as JSON under "<namespace>:<id>" keys
// of a raw cache it does not own.
type JSON[V any] struct {
	raw       RawCache
	namespace string
}

func NewJSON[V any](raw RawCache, namespace string) *JSON[V] {
	return &JSON[V]{raw: raw, namespace: namespace}
}

// Key is the raw key the value of id lives under.
func (c *JSON[V]) Key(id string) string {
	return c.namespace + ":" + id
}

func (c *JSON[V]) Get(ctx context.Context, id string) (V, bool, error) {
	var value V
	data, found, err := c.raw.Get(ctx, c.Key(id))
	if err != nil || !found {
		return value, false, err
	}
	if err = json.Unmarshal(data, &value); err != nil {
		var zero V
		return zero, false, fmt.Errorf("decode cached %q: %w", c.Key(id), err)
	}
	return value, true, nil
}

func (c *JSON[V]) Set(ctx context.Context, id string, value V, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", c.Key(id), err)
	}
	return c.raw.Set(ctx, c.Key(id), data, ttl)
}

func (c *JSON[V]) Delete(ctx context.Context, id string) error {
	return c.raw.Delete(ctx, c.Key(id))
}
