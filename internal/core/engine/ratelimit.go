package engine

import (
	"math"
	"sync"
	"time"
)

// Rate limiting defaults: capacity tokens per one-minute window.
const (
	DefaultCapacity = 5
	DefaultWindow   = time.Minute
)

// RateLimiter maintains one independent token bucket per client key and
// decides admit/reject for each write attempt. Buckets refill greedily:
// capacity tokens per window, proportional to elapsed time, capped at
// capacity. Unseen keys get a full bucket. State is volatile and owned
// by the limiter instance; there is no eviction, so long-lived processes
// accumulate one entry per distinct key.
type RateLimiter struct {
	capacity float64
	window   time.Duration

	// Clock overrides time.Now for tests.
	Clock func() time.Time

	mu      sync.RWMutex
	buckets map[string]*bucket
}

// bucket state is guarded by its own mutex so the read-refill-decrement
// cycle is atomic per key without serializing unrelated keys.
type bucket struct {
	mu     sync.Mutex
	tokens float64
	last   time.Time
}

// NewRateLimiter creates a limiter with the given capacity per window.
// Non-positive values fall back to the defaults.
func NewRateLimiter(capacity int, window time.Duration) *RateLimiter {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &RateLimiter{
		capacity: float64(capacity),
		window:   window,
		buckets:  make(map[string]*bucket),
	}
}

// TryConsume attempts to take one token from the bucket for key. It
// never blocks: the call refills the bucket for the elapsed time, then
// either consumes a token and admits, or rejects with the bucket
// otherwise unchanged.
func (r *RateLimiter) TryConsume(key string) bool {
	b := r.bucket(key)

	b.mu.Lock()
	defer b.mu.Unlock()

	r.refill(b)

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Tokens reports the token count for key after applying refill, without
// consuming. Unseen keys report full capacity.
func (r *RateLimiter) Tokens(key string) float64 {
	b := r.bucket(key)

	b.mu.Lock()
	defer b.mu.Unlock()

	r.refill(b)
	return b.tokens
}

// Len returns the number of tracked keys.
func (r *RateLimiter) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.buckets)
}

// Capacity returns the configured bucket capacity.
func (r *RateLimiter) Capacity() int {
	return int(r.capacity)
}

// refill tops the bucket up proportionally to elapsed time, capped at
// capacity. Callers must hold b.mu. Refill never decreases tokens.
func (r *RateLimiter) refill(b *bucket) {
	now := r.now()
	elapsed := now.Sub(b.last)
	if elapsed <= 0 {
		return
	}
	b.tokens = math.Min(r.capacity, b.tokens+r.capacity*float64(elapsed)/float64(r.window))
	b.last = now
}

// bucket returns the bucket for key, lazily creating it at full
// capacity on first observation.
func (r *RateLimiter) bucket(key string) *bucket {
	r.mu.RLock()
	b, ok := r.buckets[key]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok = r.buckets[key]; ok {
		return b
	}
	b = &bucket{tokens: r.capacity, last: r.now()}
	r.buckets[key] = b
	return b
}

func (r *RateLimiter) now() time.Time {
	if r.Clock != nil {
		return r.Clock()
	}
	return time.Now()
}
