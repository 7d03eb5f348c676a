// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package process

import (
	"context"
	"strings"
	"time"

	"github.com/holomush/holoauth/internal/message"
)

// Login authenticates a registered player and opens a cached session.
type Login struct {
	base
	password string
	now      func() time.Time
}

// NewLogin creates a Login process.
func NewLogin(d Deps, player Player, password string) *Login {
	return &Login{base: newBase(d, player), password: password, now: time.Now}
}

// Name returns the process name.
func (*Login) Name() string { return "login" }

// Run executes the process.
func (p *Login) Run(ctx context.Context) message.Key {
	if p.Cache.IsAuthenticated(p.key()) {
		return message.AlreadyLoggedIn
	}

	account, err := p.Store.GetAuth(ctx, p.key())
	if isNotFound(err) {
		return message.UserNotRegistered
	}
	if err != nil {
		return p.fail(ctx, p.Name(), "account lookup failed", err)
	}
	if account.IsLocked() {
		return message.TempbanMaxLogins
	}

	ok, err := p.Service.VerifyPassword(p.password, account.PasswordHash)
	if err != nil {
		return p.fail(ctx, p.Name(), "password verification failed", err)
	}
	if !ok {
		account.RecordFailure(p.Service.Lockout())
		if err := p.Store.UpdateSession(ctx, account); err != nil {
			p.logFailure(ctx, p.Name(), "failed to record login failure", err)
		}
		if account.IsLocked() {
			return message.TempbanMaxLogins
		}
		return message.WrongPassword
	}

	account.RecordLogin(p.player.Address(), p.now())
	account.DisplayName = strings.TrimSpace(p.player.Name())
	if p.Service.NeedsRehash(account.PasswordHash) {
		if hash, ok := p.rehash(ctx); ok {
			account.PasswordHash = hash
		}
	}
	if err := p.Store.UpdateSession(ctx, account); err != nil {
		return p.fail(ctx, p.Name(), "failed to record login", err)
	}
	p.Cache.AddPlayer(account)
	return message.LoginSuccess
}

// rehash upgrades an outdated stored hash. Failures leave the old hash in
// place and do not block the login.
func (p *Login) rehash(ctx context.Context) (string, bool) {
	hash, err := p.Service.HashPassword(p.password)
	if err != nil {
		p.logFailure(ctx, p.Name(), "failed to rehash password", err)
		return "", false
	}
	if err := p.Store.UpdatePassword(ctx, p.key(), hash); err != nil {
		p.logFailure(ctx, p.Name(), "failed to store rehashed password", err)
		return "", false
	}
	p.Service.Logger().DebugContext(ctx, "password hash upgraded", "player", p.player.Name())
	return hash, true
}

// Logout closes the player's session.
type Logout struct {
	base
	now func() time.Time
}

// NewLogout creates a Logout process.
func NewLogout(d Deps, player Player) *Logout {
	return &Logout{base: newBase(d, player), now: time.Now}
}

// Name returns the process name.
func (*Logout) Name() string { return "logout" }

// Run executes the process.
func (p *Logout) Run(ctx context.Context) message.Key {
	account, ok := p.cached()
	if !ok {
		return message.NotLoggedIn
	}

	now := p.now()
	account.LastLogin = &now
	account.LastIP = p.player.Address()
	account.UpdatedAt = now
	if err := p.Store.UpdateSession(ctx, account); err != nil {
		return p.fail(ctx, p.Name(), "failed to record logout", err)
	}
	p.Cache.RemovePlayer(p.key())
	return message.LogoutSuccess
}

// Disconnect ends the session of a player whose connection has gone away.
// Unlike Logout, the session is always dropped from the cache; recording the
// last-seen time is best effort.
type Disconnect struct {
	base
	now func() time.Time
}

// NewDisconnect creates a Disconnect process.
func NewDisconnect(d Deps, player Player) *Disconnect {
	return &Disconnect{base: newBase(d, player), now: time.Now}
}

// Name returns the process name.
func (*Disconnect) Name() string { return "disconnect" }

// Run executes the process.
func (p *Disconnect) Run(ctx context.Context) message.Key {
	account, ok := p.cached()
	if !ok {
		return message.NotLoggedIn
	}
	defer p.Cache.RemovePlayer(p.key())

	now := p.now()
	account.LastLogin = &now
	account.LastIP = p.player.Address()
	account.UpdatedAt = now
	if err := p.Store.UpdateSession(ctx, account); err != nil {
		p.logFailure(ctx, p.Name(), "failed to record disconnect", err)
	}
	return message.LogoutSuccess
}

// Join greets a newly connected player with the next step to take.
type Join struct {
	base
}

// NewJoin creates a Join process.
func NewJoin(d Deps, player Player) *Join {
	return &Join{base: newBase(d, player)}
}

// Name returns the process name.
func (*Join) Name() string { return "join" }

// Run executes the process.
func (p *Join) Run(ctx context.Context) message.Key {
	if p.Cache.IsAuthenticated(p.key()) {
		return message.AlreadyLoggedIn
	}
	return p.unauthenticatedHint(ctx, p.Name())
}
