// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"time"
)

// Default lockout configuration.
const (
	// DefaultLockoutDuration is the time an account is locked after too many failures.
	DefaultLockoutDuration = 15 * time.Minute

	// DefaultLockoutThreshold is the number of failures that triggers a lockout.
	DefaultLockoutThreshold = 7
)

// Lockout is the failed-login policy.
type Lockout struct {
	Threshold int
	Duration  time.Duration
}

// DefaultLockout returns the policy used when nothing is configured.
func DefaultLockout() Lockout {
	return Lockout{Threshold: DefaultLockoutThreshold, Duration: DefaultLockoutDuration}
}

// LockoutState describes an account's position relative to the policy.
type LockoutState struct {
	// IsLockedOut indicates the account is temporarily locked.
	IsLockedOut bool

	// Remaining is the time until the lockout expires.
	Remaining time.Duration

	// AttemptsLeft is how many failures remain before a lockout.
	AttemptsLeft int
}

// Check evaluates the policy for the given failure count and lockout stamp.
func (l Lockout) Check(failures int, lockedUntil *time.Time) LockoutState {
	if IsLockedOut(lockedUntil) {
		return LockoutState{IsLockedOut: true, Remaining: time.Until(*lockedUntil)}
	}
	if l.Threshold <= 0 {
		return LockoutState{AttemptsLeft: -1}
	}
	left := l.Threshold - failures
	if left < 0 {
		left = 0
	}
	return LockoutState{AttemptsLeft: left}
}

// LockoutTime returns the lockout timestamp for the given failure count.
// Returns nil below the threshold or when the policy is disabled.
func (l Lockout) LockoutTime(failures int) *time.Time {
	if l.Threshold <= 0 || failures < l.Threshold {
		return nil
	}
	d := l.Duration
	if d <= 0 {
		d = DefaultLockoutDuration
	}
	until := time.Now().Add(d)
	return &until
}

// IsLockedOut returns true if the lockout time is in the future.
func IsLockedOut(lockedUntil *time.Time) bool {
	return lockedUntil != nil && lockedUntil.After(time.Now())
}
