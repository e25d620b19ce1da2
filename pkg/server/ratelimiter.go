package server

import (
	"sync"
	"time"
)

// Default per-connection limits. A query holds a slot for the length of two
// model round trips, so concurrency is the tighter bound in practice.
const (
	DefaultRequestsPerMinute = 60
	DefaultMaxConcurrent     = 4
)

const (
	reasonRateLimited   = "rate limit exceeded"
	reasonTooConcurrent = "too many concurrent requests"
)

// ClientRateLimiter is a sliding one-minute window plus a concurrency cap.
type ClientRateLimiter struct {
	mu                sync.Mutex
	requestsPerMinute int
	maxConcurrent     int
	requests          []time.Time
	inFlight          int
	now               func() time.Time
}

// NewClientRateLimiter creates a limiter. Non-positive limits fall back to
// the defaults.
func NewClientRateLimiter(requestsPerMinute, maxConcurrent int) *ClientRateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &ClientRateLimiter{
		requestsPerMinute: requestsPerMinute,
		maxConcurrent:     maxConcurrent,
		now:               time.Now,
	}
}

// Acquire admits a request and reserves a concurrency slot, or returns the
// JSON-RPC code and reason for rejecting it. Every admitted request must be
// paired with Release.
func (r *ClientRateLimiter) Acquire() (bool, int, string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inFlight >= r.maxConcurrent {
		return false, TooManyConcurrent, reasonTooConcurrent
	}

	now := r.now()
	r.prune(now)
	if len(r.requests) >= r.requestsPerMinute {
		return false, RateLimitExceeded, reasonRateLimited
	}

	r.requests = append(r.requests, now)
	r.inFlight++
	return true, 0, ""
}

// Release frees the slot reserved by Acquire
func (r *ClientRateLimiter) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inFlight > 0 {
		r.inFlight--
	}
}

// Stats returns the requests in the current window and the in-flight count.
func (r *ClientRateLimiter) Stats() (requests, inFlight int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prune(r.now())
	return len(r.requests), r.inFlight
}

func (r *ClientRateLimiter) prune(now time.Time) {
	cutoff := now.Add(-time.Minute)
	i := 0
	for i < len(r.requests) && !r.requests[i].After(cutoff) {
		i++
	}
	r.requests = r.requests[i:]
}
