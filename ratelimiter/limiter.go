// Package ratelimiter throttles basket mutations per client address, with
// in-process token buckets or fixed windows counted in a shared cache.
package ratelimiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultRequestsPerSecond = 5
	defaultBurstSize         = 10
	defaultCleanupInterval   = 5 * time.Minute
	defaultEntryTTL          = 10 * time.Minute
	defaultMaxEntries        = 100000

	unknownKey = "unknown"
)

// Limiter decides whether a keyed request may proceed.
type Limiter interface {
	Enabled() bool
	// Limit is the number of requests a fresh key may make at once.
	Limit() int
	// Reserve takes one request from key's allowance. When none is left
	// it returns false and how long the caller should wait.
	Reserve(ctx context.Context, key string) (bool, time.Duration)
}

// Config defines token bucket limiter settings.
type Config struct {
	// RequestsPerSecond is the sustained rate. Zero or less disables limiting.
	RequestsPerSecond float64
	BurstSize         int
	// CleanupInterval is how often idle buckets are dropped.
	CleanupInterval time.Duration
	// EntryTTL is how long a bucket may stay idle.
	EntryTTL   time.Duration
	MaxEntries int
}

// DefaultConfig returns the limits applied to basket mutations.
func DefaultConfig() *Config {
	return &Config{
		RequestsPerSecond: defaultRequestsPerSecond,
		BurstSize:         defaultBurstSize,
		CleanupInterval:   defaultCleanupInterval,
		EntryTTL:          defaultEntryTTL,
		MaxEntries:        defaultMaxEntries,
	}
}

func (c *Config) withDefaults() Config {
	if c == nil {
		return *DefaultConfig()
	}
	out := *c
	if out.BurstSize <= 0 {
		out.BurstSize = 1
	}
	if out.CleanupInterval <= 0 {
		out.CleanupInterval = defaultCleanupInterval
	}
	if out.EntryTTL <= 0 {
		out.EntryTTL = defaultEntryTTL
	}
	if out.MaxEntries <= 0 {
		out.MaxEntries = defaultMaxEntries
	}
	return out
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter applies token bucket limits independently per key. A nil
// KeyedLimiter allows everything.
type KeyedLimiter struct {
	config Config
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket

	stopOnce sync.Once
	stop     chan struct{}
}

// NewKeyedLimiter creates a keyed limiter and starts its cleanup loop
// when limiting is enabled.
func NewKeyedLimiter(cfg *Config) *KeyedLimiter {
	k := &KeyedLimiter{
		config:  cfg.withDefaults(),
		now:     time.Now,
		buckets: map[string]*bucket{},
		stop:    make(chan struct{}),
	}
	if k.Enabled() {
		go k.sweepLoop()
	}
	return k
}

func (k *KeyedLimiter) Enabled() bool {
	return k != nil && k.config.RequestsPerSecond > 0
}

// Limit is the bucket size.
func (k *KeyedLimiter) Limit() int {
	if k == nil {
		return 0
	}
	return k.config.BurstSize
}

// Allow consumes a token for key.
func (k *KeyedLimiter) Allow(ctx context.Context, key string) bool {
	ok, _ := k.Reserve(ctx, key)
	return ok
}

// Reserve consumes a token for key. Without one it returns false and the
// time until a token is available; nothing is consumed then.
func (k *KeyedLimiter) Reserve(_ context.Context, key string) (bool, time.Duration) {
	if !k.Enabled() {
		return true, 0
	}
	if key == "" {
		key = unknownKey
	}

	now := k.now()
	lim := k.touch(key, now)

	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return false, k.config.EntryTTL
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Len returns the number of tracked keys.
func (k *KeyedLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.buckets)
}

// Close stops the cleanup loop.
func (k *KeyedLimiter) Close() error {
	k.stopOnce.Do(func() { close(k.stop) })
	return nil
}

// touch returns the limiter of key, creating it and evicting the least
// recently seen keys beyond MaxEntries.
func (k *KeyedLimiter) touch(key string, now time.Time) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	if b, ok := k.buckets[key]; ok {
		b.lastSeen = now
		return b.limiter
	}

	for len(k.buckets) >= k.config.MaxEntries {
		k.evictOldestLocked()
	}
	b := &bucket{
		limiter:  rate.NewLimiter(rate.Limit(k.config.RequestsPerSecond), k.config.BurstSize),
		lastSeen: now,
	}
	k.buckets[key] = b
	return b.limiter
}

func (k *KeyedLimiter) evictOldestLocked() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for key, b := range k.buckets {
		if oldestKey == "" || b.lastSeen.Before(oldest) {
			oldestKey, oldest = key, b.lastSeen
		}
	}
	delete(k.buckets, oldestKey)
}

func (k *KeyedLimiter) sweepLoop() {
	ticker := time.NewTicker(k.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			k.sweep()
		case <-k.stop:
			return
		}
	}
}

func (k *KeyedLimiter) sweep() {
	cutoff := k.now().Add(-k.config.EntryTTL)
	k.mu.Lock()
	defer k.mu.Unlock()
	for key, b := range k.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(k.buckets, key)
		}
	}
}
