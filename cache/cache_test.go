package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/renovo-atelier/atelier/cache"
	"github.com/renovo-atelier/atelier/cache/cachetest"
)

func TestInMemoryCacheSuite(t *testing.T) {
	suite.Run(t, &cachetest.RawCacheSuite{NewCache: cache.NewInMemoryCache})
}

type CacheTestSuite struct {
	suite.Suite
}

func TestCacheTestSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

type item struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func (s *CacheTestSuite) TestJSONCache() {
	ctx := context.Background()
	raw := cache.NewInMemoryCache()
	defer raw.Close()

	baskets := cache.NewJSON[[]item](raw, "basket")
	s.Equal("basket:session-1", baskets.Key("session-1"))

	items := []item{{ID: "Repair", Title: "Repair"}}
	s.Require().NoError(baskets.Set(ctx, "session-1", items, time.Hour))

	cached, found, err := baskets.Get(ctx, "session-1")
	s.Require().NoError(err)
	s.True(found)
	s.Equal(items, cached)

	stored, found, err := raw.Get(ctx, "basket:session-1")
	s.Require().NoError(err)
	s.True(found)
	s.JSONEq(`[{"id":"Repair","title":"Repair"}]`, string(stored))

	s.Require().NoError(baskets.Delete(ctx, "session-1"))
	_, found, err = baskets.Get(ctx, "session-1")
	s.Require().NoError(err)
	s.False(found)
}

func (s *CacheTestSuite) TestJSONCacheRejectsCorruptData() {
	ctx := context.Background()
	raw := cache.NewInMemoryCache()
	defer raw.Close()

	s.Require().NoError(raw.Set(ctx, "basket:session-2", []byte("{not json"), 0))

	_, found, err := cache.NewJSON[[]item](raw, "basket").Get(ctx, "session-2")
	s.Require().Error(err)
	s.False(found)
}

type closeRecorder struct {
	cache.RawCache
	closed int
	err    error
}

func (c *closeRecorder) Close() error {
	c.closed++
	return c.err
}

func (s *CacheTestSuite) TestManager() {
	ctx := context.Background()
	manager := cache.NewManager()

	first := &closeRecorder{RawCache: cache.NewInMemoryCache()}
	manager.AddCache("basket", first)
	manager.AddCache("pages", cache.NewInMemoryCache())
	s.Equal([]string{"basket", "pages"}, manager.Names())

	basket, ok := manager.GetRawCache("basket")
	s.Require().True(ok)
	s.Require().NoError(basket.Set(ctx, "key", []byte("value"), 0))

	failing := &closeRecorder{RawCache: cache.NewInMemoryCache(), err: errors.New("connection reset")}
	manager.AddCache("basket", failing)
	s.Equal(1, first.closed)

	s.Require().NoError(manager.RemoveCache("pages"))
	_, ok = manager.GetRawCache("pages")
	s.False(ok)
	s.Require().NoError(manager.RemoveCache("pages"))

	err := manager.Close()
	s.Require().Error(err)
	s.Contains(err.Error(), `close cache "basket"`)
	s.Equal(1, failing.closed)
	s.Empty(manager.Names())
}

func (s *CacheTestSuite) TestDSN() {
	testCases := []struct {
		dsn    cache.DSN
		mem    bool
		redis  bool
		valkey bool
	}{
		{dsn: "mem://basket", mem: true},
		{dsn: "redis://localhost:6379/0", redis: true},
		{dsn: "valkey://localhost:6379", valkey: true},
		{dsn: "postgres://localhost"},
	}

	for _, tc := range testCases {
		s.Run(tc.dsn.String(), func() {
			s.Equal(tc.mem, tc.dsn.IsMem())
			s.Equal(tc.redis, tc.dsn.IsRedis())
			s.Equal(tc.valkey, tc.dsn.IsValkey())
		})
	}

	s.Equal(cache.DSN("redis://localhost:6379"), cache.DSN("valkey://localhost:6379").WithScheme(cache.RedisScheme))
	s.Equal(cache.DSN("not a url"), cache.DSN("not a url").WithScheme(cache.RedisScheme))
}
