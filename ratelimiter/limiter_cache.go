package ratelimiter

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/pitabwire/util"

	"github.com/renovo-atelier/atelier/cache"
)

const (
	defaultWindow       = time.Minute
	defaultMaxPerWindow = defaultRequestsPerSecond * 60
	defaultKeyPrefix    = "ratelimit"
)

// ErrCacheWithoutCounter is returned when a window limiter is given a
// cache that cannot keep counters.
var ErrCacheWithoutCounter = errors.New("cache does not keep counters")

// WindowConfig defines fixed window limiter settings.
type WindowConfig struct {
	Window time.Duration
	// MaxPerWindow is the allowance of one key per window. Zero or less
	// disables limiting.
	MaxPerWindow int
	KeyPrefix    string
	// FailOpen lets requests through when the cache cannot be reached.
	FailOpen bool
}

// DefaultWindowConfig returns a one minute window matching the token
// bucket defaults.
func DefaultWindowConfig() *WindowConfig {
	return &WindowConfig{
		Window:       defaultWindow,
		MaxPerWindow: defaultMaxPerWindow,
		KeyPrefix:    defaultKeyPrefix,
	}
}

func (c *WindowConfig) withDefaults() WindowConfig {
	if c == nil {
		return *DefaultWindowConfig()
	}
	out := *c
	if out.Window < time.Second {
		out.Window = defaultWindow
	}
	if out.KeyPrefix == "" {
		out.KeyPrefix = defaultKeyPrefix
	}
	return out
}

// WindowLimiter counts requests per key and fixed window in a shared
// cache, so every replica behind the same cache enforces one allowance.
type WindowLimiter struct {
	counter cache.Counter
	config  WindowConfig
	now     func() time.Time
}

// NewWindowLimiter creates a window limiter over raw, which must keep
// counters.
func NewWindowLimiter(raw cache.RawCache, cfg *WindowConfig) (*WindowLimiter, error) {
	if raw == nil {
		return nil, errors.New("window limiter needs a cache")
	}
	counter, ok := raw.(cache.Counter)
	if !ok {
		return nil, ErrCacheWithoutCounter
	}
	return &WindowLimiter{
		counter: counter,
		config:  cfg.withDefaults(),
		now:     time.Now,
	}, nil
}

func (w *WindowLimiter) Enabled() bool {
	return w != nil && w.config.MaxPerWindow > 0
}

func (w *WindowLimiter) Limit() int {
	if w == nil {
		return 0
	}
	return w.config.MaxPerWindow
}

// Reserve counts one request of key in the current window. Over the
// allowance it returns false and the time left in the window.
func (w *WindowLimiter) Reserve(ctx context.Context, key string) (bool, time.Duration) {
	if !w.Enabled() {
		return true, 0
	}
	if key == "" {
		key = unknownKey
	}

	now := w.now()
	index := now.UnixNano() / int64(w.config.Window)
	left := time.Unix(0, (index+1)*int64(w.config.Window)).Sub(now)
	bucket := w.config.KeyPrefix + ":" + key + ":" + strconv.FormatInt(index, 10)

	count, err := w.counter.Increment(ctx, bucket, 1)
	if err != nil {
		util.Log(ctx).WithError(err).WithField("fail_open", w.config.FailOpen).Warn("rate limit counter unavailable")
		if w.config.FailOpen {
			return true, 0
		}
		return false, left
	}
	if count == 1 {
		// the index in the key already scopes the count; the ttl only
		// reclaims the entry once the window is over
		if expErr := w.counter.Expire(ctx, bucket, w.config.Window+time.Second); expErr != nil {
			util.Log(ctx).WithError(expErr).WithField("bucket", bucket).Warn("rate limit window left without expiry")
		}
	}
	if count > int64(w.config.MaxPerWindow) {
		return false, left
	}
	return true, 0
}
