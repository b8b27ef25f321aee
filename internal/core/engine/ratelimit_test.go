package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock returns a Clock function reading from a mutable instant so
// tests can advance time deterministically.
func fakeClock(at *time.Time) func() time.Time {
	return func() time.Time { return *at }
}

func TestRateLimiter_ExhaustsCapacity(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rl := NewRateLimiter(5, time.Minute)
	rl.Clock = fakeClock(&now)

	for i := 0; i < 5; i++ {
		require.True(t, rl.TryConsume("client-a"), "attempt %d should be admitted", i+1)
	}

	assert.False(t, rl.TryConsume("client-a"), "attempt beyond capacity should be rejected")
	assert.False(t, rl.TryConsume("client-a"), "rejection must leave the bucket unchanged")
}

func TestRateLimiter_PartialRefill(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rl := NewRateLimiter(5, time.Minute)
	rl.Clock = fakeClock(&now)

	for i := 0; i < 5; i++ {
		require.True(t, rl.TryConsume("client-a"))
	}
	require.False(t, rl.TryConsume("client-a"))

	// 12 seconds at 5 tokens/minute earns exactly one token.
	now = now.Add(12 * time.Second)

	assert.True(t, rl.TryConsume("client-a"), "one token should have refilled")
	assert.False(t, rl.TryConsume("client-a"), "only one token should have refilled")
}

func TestRateLimiter_FullWindowRestoresCapacity(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rl := NewRateLimiter(5, time.Minute)
	rl.Clock = fakeClock(&now)

	for i := 0; i < 5; i++ {
		require.True(t, rl.TryConsume("client-a"))
	}

	now = now.Add(time.Minute)

	assert.InDelta(t, 5.0, rl.Tokens("client-a"), 1e-9)
}

func TestRateLimiter_RefillCapsAtCapacity(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rl := NewRateLimiter(5, time.Minute)
	rl.Clock = fakeClock(&now)

	require.True(t, rl.TryConsume("client-a"))

	// Far more than one window of idle time must not overfill.
	now = now.Add(10 * time.Minute)

	assert.InDelta(t, 5.0, rl.Tokens("client-a"), 1e-9)
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rl := NewRateLimiter(1, time.Minute)
	rl.Clock = fakeClock(&now)

	require.True(t, rl.TryConsume("client-a"))
	require.False(t, rl.TryConsume("client-a"))

	assert.True(t, rl.TryConsume("client-b"), "exhausting one key must not affect another")
	assert.Equal(t, 2, rl.Len())
}

func TestRateLimiter_UnseenKeyStartsFull(t *testing.T) {
	rl := NewRateLimiter(5, time.Minute)

	assert.InDelta(t, 5.0, rl.Tokens("never-seen"), 1e-9)
}

func TestRateLimiter_DefaultsOnInvalidConfig(t *testing.T) {
	rl := NewRateLimiter(0, 0)

	assert.Equal(t, DefaultCapacity, rl.Capacity())
	assert.True(t, rl.TryConsume("client-a"))
}

func TestRateLimiter_ConcurrentConsume(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rl := NewRateLimiter(64, time.Minute)
	rl.Clock = fakeClock(&now)

	const attempts = 128
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
	)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.TryConsume("shared") {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 64, admitted, "exactly capacity attempts should be admitted")
}
