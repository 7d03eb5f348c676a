// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package process

import (
	"context"

	"github.com/holomush/holoauth/internal/message"
)

// ChangePassword replaces the password of an authenticated player.
type ChangePassword struct {
	base
	oldPassword string
	newPassword string
}

// NewChangePassword creates a ChangePassword process.
func NewChangePassword(d Deps, player Player, oldPassword, newPassword string) *ChangePassword {
	return &ChangePassword{base: newBase(d, player), oldPassword: oldPassword, newPassword: newPassword}
}

// Name returns the process name.
func (*ChangePassword) Name() string { return "change_password" }

// Run executes the process.
func (p *ChangePassword) Run(ctx context.Context) message.Key {
	account, ok := p.cached()
	if !ok {
		return message.NotLoggedIn
	}

	match, err := p.Service.VerifyPassword(p.oldPassword, account.PasswordHash)
	if err != nil {
		return p.fail(ctx, p.Name(), "password verification failed", err)
	}
	if !match {
		return message.WrongPassword
	}
	if err := p.Service.ValidatePassword(p.newPassword, p.player.Name()); err != nil {
		if key, ok := validationOutcome(err); ok {
			return key
		}
		return p.fail(ctx, p.Name(), "password validation failed", err)
	}

	hash, err := p.Service.HashPassword(p.newPassword)
	if err != nil {
		return p.fail(ctx, p.Name(), "failed to hash password", err)
	}
	if err := p.Store.UpdatePassword(ctx, account.Key, hash); err != nil {
		return p.fail(ctx, p.Name(), "failed to store password", err)
	}
	account.PasswordHash = hash
	if err := p.Cache.UpdatePlayer(account); err != nil {
		return p.fail(ctx, p.Name(), "failed to cache password", err)
	}
	return message.PasswordChangedSuccess
}

// Unregister deletes the account of an authenticated player after
// confirming their password.
type Unregister struct {
	base
	password string
}

// NewUnregister creates an Unregister process.
func NewUnregister(d Deps, player Player, password string) *Unregister {
	return &Unregister{base: newBase(d, player), password: password}
}

// Name returns the process name.
func (*Unregister) Name() string { return "unregister" }

// Run executes the process.
func (p *Unregister) Run(ctx context.Context) message.Key {
	account, ok := p.cached()
	if !ok {
		return message.NotLoggedIn
	}

	match, err := p.Service.VerifyPassword(p.password, account.PasswordHash)
	if err != nil {
		return p.fail(ctx, p.Name(), "password verification failed", err)
	}
	if !match {
		return message.WrongPassword
	}
	if err := p.Store.RemoveAuth(ctx, account.Key); err != nil {
		return p.fail(ctx, p.Name(), "failed to remove account", err)
	}
	p.Cache.RemovePlayer(account.Key)
	return message.UnregisteredSuccess
}
