package fetcher

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/avelkov/newsreel/internal/scraper"
)

// hostLimiter hands out one token bucket per host so a run that hammers
// a single site still paces its requests, while distinct sites do not
// slow each other down.
type hostLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

func newHostLimiter(rps float64, burst int) *hostLimiter {
	l := rate.Limit(rps)
	if rps <= 0 {
		l = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &hostLimiter{
		buckets: make(map[string]*rate.Limiter),
		limit:   l,
		burst:   burst,
	}
}

// Wait blocks until a token is available for the URL's host, respecting
// the context.
func (h *hostLimiter) Wait(ctx context.Context, rawURL string) error {
	host := scraper.Host(rawURL)

	h.mu.Lock()
	bucket, ok := h.buckets[host]
	if !ok {
		bucket = rate.NewLimiter(h.limit, h.burst)
		h.buckets[host] = bucket
	}
	h.mu.Unlock()

	if err := bucket.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}
