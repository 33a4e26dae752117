// Per-client throttle for the archive endpoint: building an archive
// walks the whole snapshot ring, so each client gets a small hourly
// allowance.
package api

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter is a continuously refilling token bucket per client.
// A full bucket holds limit tokens; tokens refill at limit/window.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientBucket

	limit  float64
	refill float64 // tokens per second

	now func() time.Time // overridden in tests
}

type clientBucket struct {
	tokens float64
	seen   time.Time
}

// NewRateLimiter allows limit requests per client per window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit < 1 {
		limit = 1
	}
	return &RateLimiter{
		clients: make(map[string]*clientBucket),
		limit:   float64(limit),
		refill:  float64(limit) / window.Seconds(),
		now:     time.Now,
	}
}

// Allow consumes one token for the client when one is available.
func (rl *RateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	b, ok := rl.clients[client]
	if !ok {
		b = &clientBucket{tokens: rl.limit}
		rl.clients[client] = b
	} else {
		b.tokens += now.Sub(b.seen).Seconds() * rl.refill
		if b.tokens > rl.limit {
			b.tokens = rl.limit
		}
	}
	b.seen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// RetryAfter reports whole seconds until the client has a token again.
func (rl *RateLimiter) RetryAfter(client string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.clients[client]
	if !ok || b.tokens >= 1 {
		return 0
	}
	return int((1-b.tokens)/rl.refill) + 1
}

// sweep drops buckets idle long enough to have refilled completely;
// a returning client starts full anyway.
func (rl *RateLimiter) sweep(now time.Time) {
	idle := time.Duration(rl.limit / rl.refill * float64(time.Second))
	for client, b := range rl.clients {
		if now.Sub(b.seen) > idle {
			delete(rl.clients, client)
		}
	}
}

// clientIP identifies the caller: first X-Forwarded-For hop when
// present, else the remote address without its port.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			xff = xff[:i]
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimitMiddleware rejects over-limit clients with 429 and a
// Retry-After hint.
func RateLimitMiddleware(rl *RateLimiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !rl.Allow(ip) {
			w.Header().Set("Retry-After", strconv.Itoa(rl.RetryAfter(ip)))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}
