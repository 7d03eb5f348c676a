// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"math"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

// Default rate limiting values.
const (
	// DefaultBurstCapacity is the maximum number of commands a session can
	// execute in a burst before rate limiting kicks in.
	DefaultBurstCapacity = 10

	// DefaultSustainedRate is the number of commands per second allowed as
	// sustained rate (token refill rate).
	DefaultSustainedRate = 2.0

	// MinSustainedRate ensures sustained rate is at least 0.1 tokens/second.
	MinSustainedRate = 0.1

	// DefaultCleanupInterval is the interval at which the background goroutine
	// runs to clean up stale sessions.
	DefaultCleanupInterval = 5 * time.Minute

	// DefaultSessionMaxAge is the default maximum age for a session before it
	// is considered stale and eligible for cleanup.
	DefaultSessionMaxAge = time.Hour
)

// RateLimiterConfig configures the rate limiter.
type RateLimiterConfig struct {
	// BurstCapacity defaults to DefaultBurstCapacity if zero or negative.
	BurstCapacity int

	// SustainedRate defaults to DefaultSustainedRate if zero or negative.
	SustainedRate float64

	// CleanupInterval defaults to DefaultCleanupInterval if zero.
	CleanupInterval time.Duration

	// SessionMaxAge defaults to DefaultSessionMaxAge if zero.
	SessionMaxAge time.Duration

	// Registerer, when set, receives a gauge of tracked sessions.
	Registerer prometheus.Registerer
}

type sessionBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies a token bucket per session and periodically evicts
// idle sessions. It is safe for concurrent use.
//
// Call Close to stop the background cleanup goroutine.
type RateLimiter struct {
	mu            sync.Mutex
	sessions      map[ulid.ULID]*sessionBucket
	limit         rate.Limit
	burst         int
	sessionMaxAge time.Duration
	now           func() time.Time

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	sessionGauge prometheus.Gauge // nil without a registerer
}

// NewRateLimiter creates a rate limiter and starts its cleanup goroutine.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	burst := cfg.BurstCapacity
	if burst <= 0 {
		burst = DefaultBurstCapacity
	}

	sustained := cfg.SustainedRate
	if sustained <= 0 {
		sustained = DefaultSustainedRate
	}
	sustained = math.Max(sustained, MinSustainedRate)

	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}

	maxAge := cfg.SessionMaxAge
	if maxAge <= 0 {
		maxAge = DefaultSessionMaxAge
	}

	rl := &RateLimiter{
		sessions:      make(map[ulid.ULID]*sessionBucket),
		limit:         rate.Limit(sustained),
		burst:         burst,
		sessionMaxAge: maxAge,
		now:           time.Now,
		stopChan:      make(chan struct{}),
	}

	if cfg.Registerer != nil {
		rl.sessionGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "holoauth_ratelimiter_sessions",
			Help: "Current number of tracked rate limiter sessions",
		})
		cfg.Registerer.MustRegister(rl.sessionGauge)
	}

	rl.wg.Add(1)
	go rl.cleanupLoop(cleanupInterval)

	return rl
}

// Allow consumes one token for the session. When no token is available it
// returns false and the milliseconds until the next one.
func (rl *RateLimiter) Allow(sessionID ulid.ULID) (allowed bool, cooldownMs int64) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	bucket, ok := rl.sessions[sessionID]
	if !ok {
		bucket = &sessionBucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.sessions[sessionID] = bucket
	}
	bucket.lastSeen = now

	if bucket.limiter.AllowN(now, 1) {
		return true, 0
	}

	deficit := 1 - bucket.limiter.TokensAt(now)
	cooldown := time.Duration(deficit / float64(rl.limit) * float64(time.Second))
	return false, cooldown.Milliseconds()
}

// Forget drops a session's bucket, typically on disconnect.
func (rl *RateLimiter) Forget(sessionID ulid.ULID) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.sessions, sessionID)
}

// SessionCount returns the number of tracked sessions.
func (rl *RateLimiter) SessionCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.sessions)
}

// Cleanup removes sessions that haven't been seen since maxAge ago.
func (rl *RateLimiter) Cleanup(maxAge time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	threshold := rl.now().Add(-maxAge)
	for id, bucket := range rl.sessions {
		if bucket.lastSeen.Before(threshold) {
			delete(rl.sessions, id)
		}
	}

	if rl.sessionGauge != nil {
		rl.sessionGauge.Set(float64(len(rl.sessions)))
	}
}

func (rl *RateLimiter) cleanupLoop(interval time.Duration) {
	defer rl.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopChan:
			return
		case <-ticker.C:
			rl.Cleanup(rl.sessionMaxAge)
		}
	}
}

// Close stops the background cleanup goroutine. It is safe to call more
// than once.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stopChan) })
	rl.wg.Wait()
}
