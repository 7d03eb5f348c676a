// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/holoauth/internal/identity"
)

// Account represents one registered player identity.
type Account struct {
	ID             ulid.ULID
	Key            identity.Key // immutable once created
	DisplayName    string       // last-seen casing of the name
	PasswordHash   string
	Email          *string
	LastLogin      *time.Time
	LastIP         string
	RegistrationIP string
	FailedAttempts int
	LockedUntil    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time

	// Authenticated is session-scoped and never persisted.
	Authenticated bool
}

// NewAccount creates a validated Account for a first registration.
// The identity key is derived from name.
func NewAccount(name, passwordHash, ip string) (*Account, error) {
	key := identity.Normalize(name)
	if key.IsZero() {
		return nil, oops.Code("AUTH_INVALID_NAME").Errorf("name cannot be empty")
	}
	if strings.TrimSpace(passwordHash) == "" {
		return nil, oops.Code("AUTH_INVALID_PASSWORD").Errorf("password hash cannot be empty")
	}

	now := time.Now()
	return &Account{
		ID:             ulid.Make(),
		Key:            key,
		DisplayName:    strings.TrimSpace(name),
		PasswordHash:   passwordHash,
		RegistrationIP: ip,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Clone returns a deep copy so callers can mutate it without affecting
// shared state.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.Email = cloneString(a.Email)
	c.LastLogin = cloneTime(a.LastLogin)
	c.LockedUntil = cloneTime(a.LockedUntil)
	return &c
}

// HasEmail reports whether an email is bound to the account.
func (a *Account) HasEmail() bool {
	return a.Email != nil && *a.Email != ""
}

// EmailValue returns the bound email or "".
func (a *Account) EmailValue() string {
	if a.Email == nil {
		return ""
	}
	return *a.Email
}

// SetEmail binds email to the account. An empty email clears it.
func (a *Account) SetEmail(email string) {
	if email == "" {
		a.Email = nil
	} else {
		a.Email = &email
	}
	a.UpdatedAt = time.Now()
}

// IsLocked returns true if the account is currently locked out.
func (a *Account) IsLocked() bool {
	return IsLockedOut(a.LockedUntil)
}

// RecordFailure increments the failure counter and applies the lockout
// policy.
func (a *Account) RecordFailure(policy Lockout) {
	a.FailedAttempts++
	a.LockedUntil = policy.LockoutTime(a.FailedAttempts)
	a.UpdatedAt = time.Now()
}

// RecordLogin resets the failure state and stamps the login.
func (a *Account) RecordLogin(ip string, at time.Time) {
	a.FailedAttempts = 0
	a.LockedUntil = nil
	a.LastLogin = &at
	a.LastIP = ip
	a.UpdatedAt = at
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// AccountRepository is the durable store gateway for accounts.
// Every method blocks on I/O and must not be called from a connection's
// read loop; processes call it from executor workers.
type AccountRepository interface {
	// IsAuthAvailable reports whether an account exists for key.
	IsAuthAvailable(ctx context.Context, key identity.Key) (bool, error)

	// GetAuth retrieves an account by identity key.
	// Returns ErrNotFound if no account has the key.
	GetAuth(ctx context.Context, key identity.Key) (*Account, error)

	// GetAuthByEmail retrieves an account by email (case-insensitive).
	// Returns ErrNotFound if no account has the email.
	GetAuthByEmail(ctx context.Context, email string) (*Account, error)

	// CountAuthsByEmail counts accounts bound to email (case-insensitive).
	CountAuthsByEmail(ctx context.Context, email string) (int, error)

	// CountAuthsByIP counts accounts registered from ip.
	CountAuthsByIP(ctx context.Context, ip string) (int, error)

	// SaveAuth stores a new account. Returns ErrDuplicate if the key or
	// email is already taken.
	SaveAuth(ctx context.Context, account *Account) error

	// UpdateEmail persists only the email of account. No partial write is
	// left behind on failure.
	UpdateEmail(ctx context.Context, account *Account) error

	// UpdatePassword persists only the password hash for key.
	UpdatePassword(ctx context.Context, key identity.Key, passwordHash string) error

	// UpdateSession persists login bookkeeping: last login, last IP,
	// failure counter and lockout.
	UpdateSession(ctx context.Context, account *Account) error

	// RemoveAuth deletes the account for key.
	RemoveAuth(ctx context.Context, key identity.Key) error
}
