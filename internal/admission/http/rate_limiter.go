package http

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// slidingWindowStore holds per-client-address submission timestamps for the
// connect endpoint. Unlike the token-bucket limiters guarding the
// teacher's other endpoints, the connect endpoint needs a genuine
// N-requests-per-window count rather than a steady-state rate, so entries
// are trimmed to the window on every check instead of refilling a bucket.
type slidingWindowStore struct {
	mu       sync.Mutex
	windows  map[string][]time.Time
	limit    int
	interval time.Duration
}

func newSlidingWindowStore(limit int, interval time.Duration) *slidingWindowStore {
	return &slidingWindowStore{
		windows:  make(map[string][]time.Time),
		limit:    limit,
		interval: interval,
	}
}

// allow records an attempt for key at now, evicting timestamps older than
// the window, and reports whether the attempt is within limit. On refusal
// it also returns the number of seconds until the oldest timestamp ages out.
func (s *slidingWindowStore) allow(key string, now time.Time) (bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-s.interval)
	kept := s.windows[key][:0]
	for _, t := range s.windows[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= s.limit {
		retryAfter := int(kept[0].Add(s.interval).Sub(now).Seconds())
		if retryAfter < 0 {
			retryAfter = 0
		}
		s.windows[key] = kept
		return false, retryAfter
	}

	s.windows[key] = append(kept, now)
	return true, 0
}

// ConnectRateLimitMiddleware enforces a sliding-window limit per client
// address on the credential connect endpoint. Submissions past the limit
// receive 429 with a Retry-After hint; the window is per-address, never
// shared across clients.
func ConnectRateLimitMiddleware(limit int, window time.Duration) gin.HandlerFunc {
	store := newSlidingWindowStore(limit, window)

	return func(c *gin.Context) {
		ok, retryAfter := store.allow(c.ClientIP(), time.Now())
		if !ok {
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate_limited",
				"message":     "too many credential submissions from this address, try again later",
				"retry_after": retryAfter,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
