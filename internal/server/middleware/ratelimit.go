package middleware

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	limiterSweepInterval = 10 * time.Minute
	limiterIdleTTL       = 30 * time.Minute
)

// limiterSet hands out one token bucket per key. Keys idle for longer than
// limiterIdleTTL are forgotten by a sweeper that stops with ctx.
type limiterSet[K comparable] struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	entries map[K]*limiterEntry
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

func newLimiterSet[K comparable](ctx context.Context, requestsPerSecond float64, burst int) *limiterSet[K] {
	s := &limiterSet[K]{
		limit:   rate.Limit(requestsPerSecond),
		burst:   burst,
		entries: make(map[K]*limiterEntry),
	}
	go s.sweep(ctx)
	return s
}

func (s *limiterSet[K]) allow(key K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.entries[key] = e
	}
	e.lastAccess = time.Now()
	return e.limiter.Allow()
}

func (s *limiterSet[K]) sweep(ctx context.Context) {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			cutoff := time.Now().Add(-limiterIdleTTL)
			for key, e := range s.entries {
				if e.lastAccess.Before(cutoff) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		case <-ctx.Done():
			return
		}
	}
}

func tooManyRequests(w http.ResponseWriter) {
	w.Header().Set("Retry-After", "1")
	http.Error(w, `{"title":"Too Many Requests","status":429,"detail":"rate limit exceeded"}`, http.StatusTooManyRequests)
}

// RateLimitByIP limits requests per client address, ignoring the source port
// so a reconnect loop opening fresh connections shares one bucket.
func RateLimitByIP(ctx context.Context, requestsPerSecond float64, burst int) func(http.Handler) http.Handler {
	limiters := newLimiterSet[string](ctx, requestsPerSecond, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiters.allow(clientHost(r.RemoteAddr)) {
				tooManyRequests(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

// editorKey is one caller working on one board.
type editorKey struct {
	board uuid.UUID
	user  uuid.UUID
}

// RateLimit gives every editor their own bucket on the board scope resolves
// for them, so one client replaying a burst of moves on a shared board cannot
// lock everyone else on that board out. Requests with no resolvable board
// pass through; the routes behind reject them anyway.
func RateLimit(ctx context.Context, scope BoardScope, requestsPerSecond float64, burst int) func(http.Handler) http.Handler {
	limiters := newLimiterSet[editorKey](ctx, requestsPerSecond, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			boardID, ok := scope.BoardFor(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			userID, _ := UserIDFromContext(r.Context())

			if !limiters.allow(editorKey{board: boardID, user: userID}) {
				tooManyRequests(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
