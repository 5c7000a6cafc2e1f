package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/scubafy-dev/scubafy-app-sub001/internal/api/jsonapi"
	"golang.org/x/time/rate"
)

const (
	cleanupInterval = 5 * time.Minute
	entryTTL        = 10 * time.Minute
)

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter is a per-client token bucket held in process memory.
type RateLimiter struct {
	mu          sync.Mutex
	limiters    map[string]*limiterEntry
	limit       rate.Limit
	burst       int
	perMinute   int
	lastCleanup time.Time
	now         func() time.Time
}

// NewRateLimiter allows perMinute requests per client with the given burst.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiters:  map[string]*limiterEntry{},
		limit:     rate.Limit(float64(perMinute) / 60),
		burst:     burst,
		perMinute: perMinute,
		now:       time.Now,
	}
}

// Handler rejects requests over the limit with 429.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(KeyByIP(r)) {
			w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfter()))
			jsonapi.RenderError(w, http.StatusTooManyRequests,
				"rate_limited", "Too Many Requests", "too many attempts, try again later")
			return
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.perMinute))
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastCleanup) > cleanupInterval {
		for k, e := range rl.limiters {
			if now.Sub(e.lastAccess) > entryTTL {
				delete(rl.limiters, k)
			}
		}
		rl.lastCleanup = now
	}

	e, ok := rl.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[key] = e
	}
	e.lastAccess = now
	return e.limiter.AllowN(now, 1)
}

func (rl *RateLimiter) retryAfter() int {
	secs := 60 / rl.perMinute
	if secs < 1 {
		secs = 1
	}
	return secs
}

// KeyByIP identifies the client by the address the nearest proxy reported,
// falling back to the connection's remote address.
func KeyByIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[len(ips)-1])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
