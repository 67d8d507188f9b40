package atelier

import (
	"context"
	"fmt"

	"github.com/renovo-atelier/atelier/cache"
	"github.com/renovo-atelier/atelier/cache/redis"
	"github.com/renovo-atelier/atelier/cache/valkey"
)

// WithCacheManager adds a cache manager to the service.
func WithCacheManager() Option {
	return func(_ context.Context, s *Service) {
		if s.cacheManager == nil {
			s.cacheManager = cache.NewManager()

			s.AddCleanupMethod(func(ctx context.Context) {
				if s.cacheManager != nil {
					if err := s.cacheManager.Close(); err != nil {
						s.Log(ctx).WithError(err).Warn("closing caches failed")
					}
				}
			})
		}
	}
}

// WithCache adds a raw cache with the given name to the service. Backends
// that can report their health are added to the health checks.
func WithCache(name string, rawCache cache.RawCache) Option {
	return func(ctx context.Context, s *Service) {
		if s.cacheManager == nil {
			WithCacheManager()(ctx, s)
		}

		s.cacheManager.AddCache(name, rawCache)
		if checker, ok := rawCache.(Checker); ok {
			s.AddHealthCheck(checker)
		}
	}
}

// WithInMemoryCache adds an in-memory cache with the given name.
func WithInMemoryCache(name string) Option {
	return WithCache(name, cache.NewInMemoryCache())
}

// WithCacheFromDSN opens the backend a connection string names: mem://,
// redis:// or valkey://. A backend that cannot be opened is logged and
// replaced by an in-memory cache so the site keeps serving.
func WithCacheFromDSN(name string, dsn cache.DSN) Option {
	return func(ctx context.Context, s *Service) {
		rawCache, err := OpenCache(name, dsn)
		if err != nil {
			s.Log(ctx).WithError(err).WithField("cache", name).Error("could not open cache, falling back to memory")
			rawCache = cache.NewInMemoryCache()
		}
		WithCache(name, rawCache)(ctx, s)
	}
}

// OpenCache opens the backend of dsn.
func OpenCache(name string, dsn cache.DSN) (cache.RawCache, error) {
	opts := []cache.Option{cache.WithName(name), cache.WithDSN(dsn)}
	switch {
	case dsn.IsMem():
		return cache.NewInMemoryCache(), nil
	case dsn.IsRedis():
		return redis.New(opts...)
	case dsn.IsValkey():
		return valkey.New(opts...)
	default:
		return nil, fmt.Errorf("%w: %q", cache.ErrUnsupportedDSN, dsn)
	}
}

// CacheManager returns the service's cache manager.
func (s *Service) CacheManager() cache.Manager {
	return s.cacheManager
}

// GetRawCache is a convenience method to get a raw cache by name from the service.
func (s *Service) GetRawCache(name string) (cache.RawCache, bool) {
	if s.cacheManager == nil {
		return nil, false
	}
	return s.cacheManager.GetRawCache(name)
}
