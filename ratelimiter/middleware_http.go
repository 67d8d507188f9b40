package ratelimiter

import (
	"math"
	"net/http"
	"net/netip"
	"strconv"
	"time"

	"github.com/pitabwire/util"
)

// GetIP extracts the caller address from forwarding headers or the remote address.
func GetIP(r *http.Request) string {
	if r == nil {
		return unknownKey
	}
	if ip := util.GetIP(r); ip != "" {
		return ip
	}
	return unknownKey
}

// ClientKey is the bucket key of a caller address. IPv6 callers share a
// bucket per /64, the block a single subscriber is usually handed.
func ClientKey(ip string) string {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		addrPort, portErr := netip.ParseAddrPort(ip)
		if portErr != nil {
			return ip
		}
		addr = addrPort.Addr()
	}
	addr = addr.Unmap()
	if addr.Is4() {
		return addr.String()
	}
	prefix, err := addr.WithZone("").Prefix(64)
	if err != nil {
		return addr.String()
	}
	return prefix.String()
}

// Middleware limits requests per client. Rejected requests get 429 with
// a Retry-After in whole seconds.
func Middleware(limiter Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || !limiter.Enabled() {
				next.ServeHTTP(w, r)
				return
			}

			key := ClientKey(GetIP(r))
			allowed, wait := limiter.Reserve(r.Context(), key)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
			if !allowed {
				util.Log(r.Context()).WithFields(map[string]any{
					"client": key,
					"path":   r.URL.Path,
				}).Info("request rate limited")
				writeRateLimited(w, wait)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeRateLimited(w http.ResponseWriter, wait time.Duration) {
	retryAfter := max(int(math.Ceil(wait.Seconds())), 1)
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
}
