package api

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter grants each client IP a fixed request budget per sliding
// window. It guards the endpoints that fan out to the advisor service, so a
// runaway frontend loop cannot hammer the remote side.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*windowState
	budget  int
	window  time.Duration
}

type windowState struct {
	remaining int
	openedAt  time.Time
}

// NewRateLimiter creates a limiter allowing budget requests per window.
func NewRateLimiter(budget int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*windowState),
		budget:  budget,
		window:  window,
	}
	go rl.reapLoop()
	return rl
}

// Allow reports whether the client still has budget in its current window,
// consuming one request if so.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	ws, ok := rl.clients[ip]
	if !ok || now.Sub(ws.openedAt) >= rl.window {
		rl.clients[ip] = &windowState{remaining: rl.budget - 1, openedAt: now}
		return true
	}
	if ws.remaining > 0 {
		ws.remaining--
		return true
	}
	return false
}

// RetryAfter returns the seconds until the client's window resets.
func (rl *RateLimiter) RetryAfter(ip string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	ws, ok := rl.clients[ip]
	if !ok {
		return 0
	}
	remaining := rl.window - time.Since(ws.openedAt)
	if remaining < 0 {
		return 0
	}
	return int(remaining.Seconds()) + 1
}

// reapLoop drops clients whose window expired long ago.
func (rl *RateLimiter) reapLoop() {
	for {
		time.Sleep(time.Hour)

		rl.mu.Lock()
		now := time.Now()
		for ip, ws := range rl.clients {
			if now.Sub(ws.openedAt) > 2*rl.window {
				delete(rl.clients, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// clientIP resolves the caller's address, preferring the first entry of
// X-Forwarded-For when a proxy sits in front.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// RateLimitMiddleware answers 429 with a Retry-After header once a client
// exhausts its budget.
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
