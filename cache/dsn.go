package cache

import (
	"net/url"
	"strings"
)

const (
	MemScheme    = "mem://"
	RedisScheme  = "redis://"
	ValkeyScheme = "valkey://"
)

// A DSN for conveniently handling a cache connection string.
type DSN string

func (d DSN) IsMem() bool {
	return strings.HasPrefix(string(d), MemScheme)
}

func (d DSN) IsRedis() bool {
	return strings.HasPrefix(string(d), RedisScheme)
}

func (d DSN) IsValkey() bool {
	return strings.HasPrefix(string(d), ValkeyScheme)
}

func (d DSN) ToURI() (*url.URL, error) {
	return url.Parse(string(d))
}

// WithScheme swaps the scheme of the connection string, keeping the rest.
func (d DSN) WithScheme(scheme string) DSN {
	_, rest, found := strings.Cut(string(d), "://")
	if !found {
		return d
	}
	return DSN(scheme + rest)
}

func (d DSN) String() string {
	return string(d)
}
