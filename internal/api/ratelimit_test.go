package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllowConsumesBudget(t *testing.T) {
	rl := NewRateLimiter(3, time.Hour)

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d should be within budget", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("expected the fourth request rejected")
	}
	if !rl.Allow("10.0.0.2") {
		t.Fatal("budgets must be per client")
	}
	if rl.RetryAfter("10.0.0.1") <= 0 {
		t.Fatal("expected a positive retry-after for an exhausted client")
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/scenario/begin", nil)
	r.RemoteAddr = "127.0.0.1:54321"
	if got := clientIP(r); got != "127.0.0.1" {
		t.Fatalf("expected port stripped, got %q", got)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := clientIP(r); got != "203.0.113.9" {
		t.Fatalf("expected first forwarded entry, got %q", got)
	}
}

func TestRateLimitMiddlewareRejectsWith429(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	handler := RateLimitMiddleware(rl, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scenario/begin", nil)
	req.RemoteAddr = "127.0.0.1:40000"

	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: got %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}
