// Package valkey stores basket state in a Valkey server through the official client.
package valkey

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/renovo-atelier/atelier/cache"
)

const connectionTimeout = 5 * time.Second

// Cache keeps entries in Valkey. Entries written without a ttl live for the
// configured max age.
type Cache struct {
	client valkey.Client
	maxAge time.Duration
}

// New connects to the server named by a valkey:// or redis:// DSN.
func New(opts ...cache.Option) (cache.RawCache, error) {
	cacheOpts := cache.NewOptions(opts...)

	dsn := cacheOpts.DSN
	if dsn.IsValkey() {
		dsn = dsn.WithScheme(cache.RedisScheme)
	}
	clientOpts, err := valkey.ParseURL(dsn.String())
	if err != nil {
		return nil, fmt.Errorf("parse valkey dsn: %w", err)
	}
	client, err := valkey.NewClient(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect valkey %s: %w", cacheOpts.Name, err)
	}

	vc := &Cache{client: client, maxAge: cacheOpts.MaxAge}
	if err = vc.CheckHealth(); err != nil {
		client.Close()
		return nil, err
	}
	return vc, nil
}

// wholeSeconds rounds ttl up to the one second granularity of EX.
func wholeSeconds(ttl time.Duration) int64 {
	return max(int64((ttl+time.Second-1)/time.Second), 1)
}

func (vc *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := vc.client.Do(ctx, vc.client.B().Get().Key(key).Build()).AsBytes()
	if valkey.IsValkeyNil(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (vc *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = vc.maxAge
	}
	set := vc.client.B().Set().Key(key).Value(valkey.BinaryString(value))
	if ttl <= 0 {
		return vc.client.Do(ctx, set.Build()).Error()
	}
	return vc.client.Do(ctx, set.ExSeconds(wholeSeconds(ttl)).Build()).Error()
}

func (vc *Cache) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	return vc.client.Do(ctx, vc.client.B().Incrby().Key(key).Increment(delta).Build()).AsInt64()
}

func (vc *Cache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if ttl <= 0 {
		return vc.client.Do(ctx, vc.client.B().Persist().Key(key).Build()).Error()
	}
	return vc.client.Do(ctx, vc.client.B().Expire().Key(key).Seconds(wholeSeconds(ttl)).Build()).Error()
}

func (vc *Cache) Delete(ctx context.Context, key string) error {
	return vc.client.Do(ctx, vc.client.B().Del().Key(key).Build()).Error()
}

func (vc *Cache) Exists(ctx context.Context, key string) (bool, error) {
	count, err := vc.client.Do(ctx, vc.client.B().Exists().Key(key).Build()).AsInt64()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Flush empties the selected database.
func (vc *Cache) Flush(ctx context.Context) error {
	return vc.client.Do(ctx, vc.client.B().Flushdb().Build()).Error()
}

func (vc *Cache) Close() error {
	vc.client.Close()
	return nil
}

// CheckHealth pings the server.
func (vc *Cache) CheckHealth() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()
	return vc.client.Do(ctx, vc.client.B().Ping().Build()).Error()
}
