package google

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRateLimiter_Defaults(t *testing.T) {
	r := NewRateLimiter(RateLimitConfig{})

	assert.Equal(t, DefaultDriveRateLimit.BurstSize, r.limiter.Burst())
}

func TestRateLimiter_Wait(t *testing.T) {
	r := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 100, BurstSize: 3})

	for range 3 {
		require.NoError(t, r.Wait(context.Background()))
	}
}

func TestRateLimiter_PauseAfterRateLimit(t *testing.T) {
	r := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 100, BurstSize: 1})
	r.RecordRateLimitError(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, r.Wait(ctx), context.DeadlineExceeded)
}

func TestRateLimiter_RecordKeepsLongestPause(t *testing.T) {
	r := NewRateLimiter(RateLimitConfig{})

	r.RecordRateLimitError(time.Hour)
	r.RecordRateLimitError(time.Second)
	assert.Greater(t, time.Until(r.retryAt), 30*time.Minute)

	r2 := NewRateLimiter(RateLimitConfig{})
	r2.RecordRateLimitError(0)
	assert.InDelta(t, defaultRetryAfter.Seconds(), time.Until(r2.retryAt).Seconds(), 1)
}
