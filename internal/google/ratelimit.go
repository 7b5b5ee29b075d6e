package google

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
)

// DefaultRateLimitBackoff applies when a 429 response carries no Retry-After.
const DefaultRateLimitBackoff = 60 * time.Second

// RateLimiter paces requests to one Google API with a token bucket. After a
// 429 response it holds every request until the backoff period has passed.
// It never retries a request itself.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
	now     func() time.Time
}

// NewRateLimiter creates a limiter allowing rps requests per second with the
// given burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		now:     time.Now,
	}
}

// Wait blocks until a request may be made or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if d := retryAt.Sub(r.now()); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return r.limiter.Wait(ctx)
}

// Allow reports whether a request may be made immediately, consuming a token
// when it may.
func (r *RateLimiter) Allow() bool {
	if r == nil {
		return true
	}

	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if r.now().Before(retryAt) {
		return false
	}
	return r.limiter.Allow()
}

// RecordRateLimitError starts a backoff period. Non-positive durations use
// DefaultRateLimitBackoff.
func (r *RateLimiter) RecordRateLimitError(retryAfter time.Duration) {
	if r == nil {
		return
	}
	if retryAfter <= 0 {
		retryAfter = DefaultRateLimitBackoff
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.retryAt = r.now().Add(retryAfter)
}

// Observe inspects the result of an API call and starts a backoff period
// when it was an HTTP 429. It reports whether err was a rate-limit response.
func (r *RateLimiter) Observe(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusTooManyRequests {
		return false
	}

	var retryAfter time.Duration
	if apiErr.Header != nil {
		if secs, convErr := strconv.Atoi(apiErr.Header.Get("Retry-After")); convErr == nil {
			retryAfter = time.Duration(secs) * time.Second
		}
	}
	r.RecordRateLimitError(retryAfter)
	return true
}
