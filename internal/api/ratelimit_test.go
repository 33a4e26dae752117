package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// fakeClock drives the limiter deterministically.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(limit int, window time.Duration) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	rl := NewRateLimiter(limit, window)
	rl.now = clock.now
	return rl, clock
}

func TestLimiterAllowsBurstThenBlocks(t *testing.T) {
	rl, _ := newTestLimiter(3, time.Hour)

	for i := 0; i < 3; i++ {
		if !rl.Allow("a") {
			t.Fatalf("request %d denied inside the allowance", i+1)
		}
	}
	if rl.Allow("a") {
		t.Fatalf("request above the allowance admitted")
	}
	if rl.RetryAfter("a") <= 0 {
		t.Fatalf("no retry hint for a blocked client")
	}
}

func TestLimiterRefillsOverTime(t *testing.T) {
	rl, clock := newTestLimiter(6, time.Hour)

	for i := 0; i < 6; i++ {
		rl.Allow("a")
	}
	if rl.Allow("a") {
		t.Fatalf("empty bucket admitted a request")
	}

	// One token refills every ten minutes at 6/hour.
	clock.advance(10 * time.Minute)
	if !rl.Allow("a") {
		t.Fatalf("token did not refill after a full interval")
	}
	if rl.Allow("a") {
		t.Fatalf("more than one token refilled")
	}
}

func TestLimiterIsolatesClients(t *testing.T) {
	rl, _ := newTestLimiter(2, time.Hour)

	rl.Allow("a")
	rl.Allow("a")
	if rl.Allow("a") {
		t.Fatalf("client a over its allowance")
	}
	if !rl.Allow("b") {
		t.Fatalf("client b throttled by client a's usage")
	}
}

func TestLimiterSweepsIdleClients(t *testing.T) {
	rl, clock := newTestLimiter(2, time.Hour)

	rl.Allow("a")
	clock.advance(3 * time.Hour)
	rl.Allow("b") // triggers the sweep

	rl.mu.Lock()
	_, kept := rl.clients["a"]
	rl.mu.Unlock()
	if kept {
		t.Fatalf("idle client bucket not swept")
	}
}

func TestClientIP(t *testing.T) {
	r := &http.Request{RemoteAddr: "10.1.2.3:5555", Header: http.Header{}}
	if ip := clientIP(r); ip != "10.1.2.3" {
		t.Fatalf("clientIP = %q, want 10.1.2.3", ip)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if ip := clientIP(r); ip != "203.0.113.7" {
		t.Fatalf("clientIP = %q, want first forwarded hop", ip)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(1, time.Hour)
	handler := RateLimitMiddleware(rl, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/archive", nil)
	req.RemoteAddr = "10.1.2.3:5555"

	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("429 without a Retry-After header")
	}
}
