package cache

import (
	"time"
)

// Option configures a cache backend.
type Option func(*Options)

// Options holds cache connection configuration.
type Options struct {
	DSN    DSN
	Name   string
	MaxAge time.Duration
}

func WithDSN(dsn DSN) Option {
	return func(o *Options) {
		o.DSN = dsn
	}
}

func WithName(name string) Option {
	return func(o *Options) {
		o.Name = name
	}
}

// WithMaxAge returns an Option to configure the max age of the cache.
func WithMaxAge(maxAge time.Duration) Option {
	return func(o *Options) {
		o.MaxAge = maxAge
	}
}

// NewOptions applies opts over the defaults shared by all backends.
func NewOptions(opts ...Option) *Options {
	o := &Options{MaxAge: time.Hour}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
