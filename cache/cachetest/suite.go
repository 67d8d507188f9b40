package cachetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/renovo-atelier/atelier/cache"
)

// RawCacheSuite checks the behaviour every cache backend must share.
// Backend packages embed it and set NewCache.
type RawCacheSuite struct {
	suite.Suite

	// NewCache returns an empty cache for one test. The suite closes it.
	NewCache func() cache.RawCache
}

func (s *RawCacheSuite) fresh() cache.RawCache {
	s.Require().NotNil(s.NewCache, "NewCache must be set")
	raw := s.NewCache()
	s.Require().NoError(raw.Flush(context.Background()))
	s.T().Cleanup(func() { _ = raw.Close() })
	return raw
}

func (s *RawCacheSuite) TestBasicOperations() {
	ctx := context.Background()
	raw := s.fresh()

	tests := []struct {
		testName string
		key      string
		value    []byte
		ttl      time.Duration
	}{
		{"Simple value", "basket:key1", []byte("value1"), 0},
		{"With TTL", "basket:key2", []byte("value2"), time.Hour},
		{"Empty value", "basket:key3", []byte{}, 0},
		{"Large value", "basket:key4", make([]byte, 1024), 0},
	}

	for _, tt := range tests {
		s.Run(tt.testName, func() {
			s.Require().NoError(raw.Set(ctx, tt.key, tt.value, tt.ttl))

			value, found, err := raw.Get(ctx, tt.key)
			s.Require().NoError(err)
			s.True(found)
			s.Equal(len(tt.value), len(value))

			exists, err := raw.Exists(ctx, tt.key)
			s.Require().NoError(err)
			s.True(exists)

			s.Require().NoError(raw.Delete(ctx, tt.key))

			_, found, err = raw.Get(ctx, tt.key)
			s.Require().NoError(err)
			s.False(found)
		})
	}
}

func (s *RawCacheSuite) TestTTLExpiration() {
	ctx := context.Background()
	raw := s.fresh()

	ttl := time.Second
	s.Require().NoError(raw.Set(ctx, "basket:expiring", []byte("value"), ttl))

	_, found, err := raw.Get(ctx, "basket:expiring")
	s.Require().NoError(err)
	s.True(found)

	s.Eventually(func() bool {
		_, stillThere, getErr := raw.Get(ctx, "basket:expiring")
		return getErr == nil && !stillThere
	}, 5*time.Second, 100*time.Millisecond)
}

func (s *RawCacheSuite) TestOverwriteRefreshesValue() {
	ctx := context.Background()
	raw := s.fresh()

	s.Require().NoError(raw.Set(ctx, "basket:overwrite", []byte("one"), time.Minute))
	s.Require().NoError(raw.Set(ctx, "basket:overwrite", []byte("two"), time.Minute))

	value, found, err := raw.Get(ctx, "basket:overwrite")
	s.Require().NoError(err)
	s.True(found)
	s.Equal([]byte("two"), value)
}

func (s *RawCacheSuite) TestConcurrentAccess() {
	ctx := context.Background()
	raw := s.fresh()

	const goroutines = 20
	const iterations = 10

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := range goroutines {
		go func(id int) {
			defer wg.Done()
			for j := range iterations {
				key := fmt.Sprintf("concurrent:key:%d:%d", id, j)
				_ = raw.Set(ctx, key, []byte(fmt.Sprintf("value-%d-%d", id, j)), time.Hour)
			}
		}(i)
	}
	wg.Wait()

	for i := range goroutines {
		for j := range iterations {
			key := fmt.Sprintf("concurrent:key:%d:%d", i, j)
			_, found, err := raw.Get(ctx, key)
			s.Require().NoError(err)
			s.True(found, "Key %s should exist", key)
		}
	}
}

func (s *RawCacheSuite) TestFlush() {
	ctx := context.Background()
	raw := s.fresh()

	for i := range 5 {
		_ = raw.Set(ctx, fmt.Sprintf("flush:key:%d", i), []byte("value"), 0)
	}

	exists, _ := raw.Exists(ctx, "flush:key:0")
	s.True(exists)

	s.Require().NoError(raw.Flush(ctx))

	exists, _ = raw.Exists(ctx, "flush:key:0")
	s.False(exists)
}

func (s *RawCacheSuite) TestEdgeCases() {
	ctx := context.Background()
	raw := s.fresh()

	_, found, err := raw.Get(ctx, "edge:nonexistent")
	s.Require().NoError(err)
	s.False(found)

	s.Require().NoError(raw.Delete(ctx, "edge:nonexistent"))

	exists, err := raw.Exists(ctx, "edge:nonexistent")
	s.Require().NoError(err)
	s.False(exists)

	s.Require().NoError(raw.Set(ctx, "edge:nil-key", nil, 0))
	value, found, err := raw.Get(ctx, "edge:nil-key")
	s.Require().NoError(err)
	s.True(found)
	s.Empty(value)
}

func (s *RawCacheSuite) counter() (cache.RawCache, cache.Counter) {
	raw := s.fresh()
	counter, ok := raw.(cache.Counter)
	if !ok {
		s.T().Skip("backend keeps no counters")
	}
	return raw, counter
}

func (s *RawCacheSuite) TestIncrement() {
	ctx := context.Background()
	raw, counter := s.counter()

	tests := []struct {
		testName string
		delta    int64
		want     int64
	}{
		{"Increment by 1", 1, 1},
		{"Increment by 5", 5, 6},
		{"Decrement by 1", -1, 5},
	}

	for _, tt := range tests {
		s.Run(tt.testName, func() {
			got, err := counter.Increment(ctx, "counter:hits", tt.delta)
			s.Require().NoError(err)
			s.Equal(tt.want, got)
		})
	}

	value, found, err := raw.Get(ctx, "counter:hits")
	s.Require().NoError(err)
	s.True(found)
	s.Equal("5", string(value))

	s.Require().NoError(raw.Set(ctx, "counter:text", []byte("not a number"), time.Minute))
	_, err = counter.Increment(ctx, "counter:text", 1)
	s.Error(err)
}

func (s *RawCacheSuite) TestConcurrentIncrement() {
	ctx := context.Background()
	_, counter := s.counter()

	const goroutines = 20
	const iterations = 10

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for range goroutines {
		go func() {
			defer wg.Done()
			for range iterations {
				_, _ = counter.Increment(ctx, "counter:concurrent", 1)
			}
		}()
	}
	wg.Wait()

	got, err := counter.Increment(ctx, "counter:concurrent", 0)
	s.Require().NoError(err)
	s.Equal(int64(goroutines*iterations), got)
}

func (s *RawCacheSuite) TestExpireEndsCounter() {
	ctx := context.Background()
	raw, counter := s.counter()

	s.Require().NoError(counter.Expire(ctx, "counter:missing", time.Second))
	exists, err := raw.Exists(ctx, "counter:missing")
	s.Require().NoError(err)
	s.False(exists)

	_, err = counter.Increment(ctx, "counter:window", 3)
	s.Require().NoError(err)
	s.Require().NoError(counter.Expire(ctx, "counter:window", time.Second))

	s.Eventually(func() bool {
		found, existsErr := raw.Exists(ctx, "counter:window")
		return existsErr == nil && !found
	}, 5*time.Second, 100*time.Millisecond)

	got, err := counter.Increment(ctx, "counter:window", 1)
	s.Require().NoError(err)
	s.Equal(int64(1), got)
}
