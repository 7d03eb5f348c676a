// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/time/rate"
)

func newTestLimiter(t *testing.T, cfg RateLimiterConfig) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(cfg)
	t.Cleanup(rl.Close)
	return rl
}

// frozenClock pins the limiter's clock so refills are deterministic.
type frozenClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *frozenClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *frozenClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestNewRateLimiter(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		rl := newTestLimiter(t, RateLimiterConfig{})

		assert.Equal(t, DefaultBurstCapacity, rl.burst)
		assert.Equal(t, rate.Limit(DefaultSustainedRate), rl.limit)
		assert.Equal(t, DefaultSessionMaxAge, rl.sessionMaxAge)
	})

	t.Run("custom values", func(t *testing.T) {
		rl := newTestLimiter(t, RateLimiterConfig{BurstCapacity: 20, SustainedRate: 5})

		assert.Equal(t, 20, rl.burst)
		assert.Equal(t, rate.Limit(5), rl.limit)
	})

	t.Run("negative values use defaults", func(t *testing.T) {
		rl := newTestLimiter(t, RateLimiterConfig{BurstCapacity: -5, SustainedRate: -1})

		assert.Equal(t, DefaultBurstCapacity, rl.burst)
		assert.Equal(t, rate.Limit(DefaultSustainedRate), rl.limit)
	})

	t.Run("tiny rate is clamped", func(t *testing.T) {
		rl := newTestLimiter(t, RateLimiterConfig{SustainedRate: 0.01})

		assert.Equal(t, rate.Limit(MinSustainedRate), rl.limit)
	})
}

func TestRateLimiter_Allow(t *testing.T) {
	clock := &frozenClock{now: time.Unix(1_700_000_000, 0)}
	rl := newTestLimiter(t, RateLimiterConfig{BurstCapacity: 3, SustainedRate: 1})
	rl.now = clock.Now
	session := ulid.Make()

	for i := range 3 {
		allowed, cooldown := rl.Allow(session)
		assert.True(t, allowed, "burst command %d", i)
		assert.Zero(t, cooldown)
	}

	allowed, cooldown := rl.Allow(session)
	assert.False(t, allowed)
	assert.InDelta(t, 1000, cooldown, 1)

	clock.Advance(500 * time.Millisecond)
	allowed, cooldown = rl.Allow(session)
	assert.False(t, allowed)
	assert.InDelta(t, 500, cooldown, 1)

	clock.Advance(500 * time.Millisecond)
	allowed, _ = rl.Allow(session)
	assert.True(t, allowed)
}

func TestRateLimiter_SessionsAreIndependent(t *testing.T) {
	rl := newTestLimiter(t, RateLimiterConfig{BurstCapacity: 1, SustainedRate: 0.1})
	a, b := ulid.Make(), ulid.Make()

	allowed, _ := rl.Allow(a)
	require.True(t, allowed)
	allowed, _ = rl.Allow(a)
	assert.False(t, allowed)

	allowed, _ = rl.Allow(b)
	assert.True(t, allowed)
	assert.Equal(t, 2, rl.SessionCount())
}

func TestRateLimiter_ForgetResetsSession(t *testing.T) {
	rl := newTestLimiter(t, RateLimiterConfig{BurstCapacity: 1, SustainedRate: 0.1})
	session := ulid.Make()

	rl.Allow(session)
	rl.Forget(session)
	assert.Zero(t, rl.SessionCount())

	allowed, _ := rl.Allow(session)
	assert.True(t, allowed)
}

func TestRateLimiter_Cleanup(t *testing.T) {
	clock := &frozenClock{now: time.Unix(1_700_000_000, 0)}
	reg := prometheus.NewRegistry()
	rl := newTestLimiter(t, RateLimiterConfig{Registerer: reg})
	rl.now = clock.Now

	stale := ulid.Make()
	rl.Allow(stale)
	clock.Advance(2 * time.Hour)
	fresh := ulid.Make()
	rl.Allow(fresh)

	rl.Cleanup(time.Hour)

	assert.Equal(t, 1, rl.SessionCount())
	assert.InDelta(t, 1, testutil.ToFloat64(rl.sessionGauge), 0.001)
}

func TestRateLimiter_CloseStopsCleanupLoop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	rl := NewRateLimiter(RateLimiterConfig{CleanupInterval: time.Millisecond})
	time.Sleep(5 * time.Millisecond)
	rl.Close()
	rl.Close()
}
