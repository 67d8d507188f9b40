package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

const defaultSweepInterval = 5 * time.Minute

type memEntry struct {
	value   []byte
	expires time.Time
}

func (e memEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

// InMemoryCache keeps entries in process memory. Expired entries are
// invisible at once and swept periodically.
type InMemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memEntry
	now     func() time.Time

	stop      chan struct{}
	closeOnce sync.Once
}

func NewInMemoryCache() RawCache {
	return newInMemoryCache(defaultSweepInterval, time.Now)
}

func newInMemoryCache(sweepEvery time.Duration, now func() time.Time) *InMemoryCache {
	c := &InMemoryCache{
		entries: map[string]memEntry{},
		now:     now,
		stop:    make(chan struct{}),
	}
	go c.sweepLoop(sweepEvery)
	return c
}

func (c *InMemoryCache) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stop:
			return
		}
	}
}

func (c *InMemoryCache) sweep() {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
		}
	}
}

func (c *InMemoryCache) lookup(key string) (memEntry, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || e.expired(c.now()) {
		return memEntry{}, false
	}
	return e, true
}

// Get returns a copy of the value under key.
func (c *InMemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := c.lookup(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte{}, e.value...), true, nil
}

// Set stores a copy of value. A non positive ttl never expires.
func (c *InMemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := memEntry{value: append([]byte{}, value...)}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return nil
}

// Increment keeps counters as decimal text, the way Redis does, so they
// read back through Get.
func (c *InMemoryCache) Increment(_ context.Context, key string, delta int64) (int64, error) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || e.expired(now) {
		e = memEntry{}
	}
	var current int64
	if len(e.value) > 0 {
		n, err := strconv.ParseInt(string(e.value), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrNotCounter, key)
		}
		current = n
	}
	current += delta
	e.value = strconv.AppendInt(nil, current, 10)
	c.entries[key] = e
	return current, nil
}

// Expire sets the lifetime of key. A missing key is left alone.
func (c *InMemoryCache) Expire(_ context.Context, key string, ttl time.Duration) error {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || e.expired(now) {
		return nil
	}
	e.expires = time.Time{}
	if ttl > 0 {
		e.expires = now.Add(ttl)
	}
	c.entries[key] = e
	return nil
}

func (c *InMemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

func (c *InMemoryCache) Exists(_ context.Context, key string) (bool, error) {
	_, ok := c.lookup(key)
	return ok, nil
}

func (c *InMemoryCache) Flush(_ context.Context) error {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
	return nil
}

// Close stops the sweeper. Entries stay readable.
func (c *InMemoryCache) Close() error {
	c.closeOnce.Do(func() { close(c.stop) })
	return nil
}
