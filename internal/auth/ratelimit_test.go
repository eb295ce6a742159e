package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(now *time.Time) *RateLimiter {
	rl := NewRateLimiter(RateLimitConfig{
		MaxAttempts:     3,
		WindowDuration:  time.Minute,
		LockoutDuration: 5 * time.Minute,
	})
	rl.now = func() time.Time { return *now }
	return rl
}

func TestRateLimiter_LocksAfterMaxAttempts(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := newTestLimiter(&now)

	for i := 0; i < 2; i++ {
		locked, _ := rl.RecordFailure("10.0.0.1", "alice")
		assert.False(t, locked)
		allowed, _ := rl.Allow("10.0.0.1", "alice")
		assert.True(t, allowed)
	}

	locked, retry := rl.RecordFailure("10.0.0.1", "alice")
	assert.True(t, locked)
	assert.Equal(t, 5*time.Minute, retry)

	allowed, retry := rl.Allow("10.0.0.1", "ALICE")
	assert.False(t, allowed, "login names are compared case-insensitively")
	assert.Equal(t, 5*time.Minute, retry)

	allowed, _ = rl.Allow("10.0.0.2", "alice")
	assert.True(t, allowed, "other clients are unaffected")

	now = now.Add(6 * time.Minute)
	allowed, _ = rl.Allow("10.0.0.1", "alice")
	assert.True(t, allowed)
}

func TestRateLimiter_SuccessResets(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := newTestLimiter(&now)

	rl.RecordFailure("ip", "bob")
	rl.RecordFailure("ip", "bob")
	rl.RecordSuccess("ip", "bob")

	locked, _ := rl.RecordFailure("ip", "bob")
	assert.False(t, locked)
}

func TestRateLimiter_WindowExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := newTestLimiter(&now)

	rl.RecordFailure("ip", "carol")
	rl.RecordFailure("ip", "carol")
	now = now.Add(2 * time.Minute)

	locked, _ := rl.RecordFailure("ip", "carol")
	assert.False(t, locked, "failures outside the window start a new count")
}

func TestRateLimiter_SweepsExpiredRecords(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := newTestLimiter(&now)

	rl.RecordFailure("ip", "dave")
	rl.RecordFailure("ip", "erin")
	assert.Equal(t, 2, rl.tracked())

	now = now.Add(10 * time.Minute)
	rl.RecordFailure("ip", "frank")
	assert.Equal(t, 1, rl.tracked())
}
