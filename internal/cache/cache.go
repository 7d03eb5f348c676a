// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package cache holds the in-memory view of players with an active session.
// An entry exists exactly while its identity is authenticated.
package cache

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/internal/identity"
)

// CachedSessions tracks the number of cached (authenticated) players.
// Use RegisterMetrics to register this with a Prometheus registry.
var CachedSessions = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "holoauth_cached_sessions",
	Help: "Number of authenticated players held in the player cache",
})

// RegisterMetrics registers cache metrics with the given Prometheus registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(CachedSessions)
}

// PlayerCache maps identity keys to account snapshots. Entries are private
// copies: callers get clones and hand in accounts that are cloned on entry,
// so a reader never observes a half-applied update.
type PlayerCache struct {
	mu      sync.RWMutex
	entries map[identity.Key]*auth.Account
}

// New creates an empty PlayerCache.
func New() *PlayerCache {
	return &PlayerCache{entries: make(map[identity.Key]*auth.Account)}
}

// IsAuthenticated reports whether key has a cached session.
func (c *PlayerCache) IsAuthenticated(key identity.Key) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[key]
	return ok
}

// GetAuth returns a copy of the cached account for key.
func (c *PlayerCache) GetAuth(key identity.Key) (*auth.Account, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	acc, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return acc.Clone(), true
}

// AddPlayer caches acc as authenticated, replacing any existing entry.
func (c *PlayerCache) AddPlayer(acc *auth.Account) {
	entry := acc.Clone()
	entry.Authenticated = true

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.Key] = entry
	CachedSessions.Set(float64(len(c.entries)))
}

// UpdatePlayer replaces the cached entry for acc.Key.
// Returns an error with code CACHE_ENTRY_NOT_FOUND if the player is not cached.
func (c *PlayerCache) UpdatePlayer(acc *auth.Account) error {
	entry := acc.Clone()
	entry.Authenticated = true

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[entry.Key]; !ok {
		return oops.Code("CACHE_ENTRY_NOT_FOUND").
			With("key", entry.Key.String()).
			Errorf("player is not cached")
	}
	c.entries[entry.Key] = entry
	return nil
}

// RemovePlayer drops the entry for key and reports whether one existed.
func (c *PlayerCache) RemovePlayer(key identity.Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		return false
	}
	delete(c.entries, key)
	CachedSessions.Set(float64(len(c.entries)))
	return true
}

// Len returns the number of cached players.
func (c *PlayerCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
