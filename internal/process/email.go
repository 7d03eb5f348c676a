// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package process

import (
	"context"
	"strings"

	"github.com/holomush/holoauth/internal/message"
)

// AddEmail binds a first email to an authenticated player's account.
//
// Checks run in a fixed order and the first failure decides the outcome:
// session, no email yet, syntax, availability, store write.
type AddEmail struct {
	base
	email string
}

// NewAddEmail creates an AddEmail process.
func NewAddEmail(d Deps, player Player, email string) *AddEmail {
	return &AddEmail{base: newBase(d, player), email: strings.TrimSpace(email)}
}

// Name returns the process name.
func (*AddEmail) Name() string { return "add_email" }

// Run executes the process.
func (p *AddEmail) Run(ctx context.Context) message.Key {
	account, ok := p.cached()
	if !ok {
		return p.unauthenticatedHint(ctx, p.Name())
	}
	if account.HasEmail() {
		return message.UsageChangeEmail
	}
	if !p.Service.ValidateEmail(p.email) {
		return message.InvalidEmail
	}

	free, err := p.Service.IsEmailFreeForRegistration(ctx, p.email, p.player)
	if err != nil {
		return p.fail(ctx, p.Name(), "email availability check failed", err)
	}
	if !free {
		return message.EmailAlreadyUsed
	}

	account.SetEmail(p.email)
	if err := p.Store.UpdateEmail(ctx, account); err != nil {
		return p.fail(ctx, p.Name(), "failed to store email", err)
	}
	if err := p.Cache.UpdatePlayer(account); err != nil {
		return p.fail(ctx, p.Name(), "failed to cache email", err)
	}
	return message.EmailAddedSuccess
}

// ChangeEmail replaces the email of an authenticated player who already
// has one. The old address must be given correctly.
type ChangeEmail struct {
	base
	oldEmail string
	newEmail string
}

// NewChangeEmail creates a ChangeEmail process.
func NewChangeEmail(d Deps, player Player, oldEmail, newEmail string) *ChangeEmail {
	return &ChangeEmail{
		base:     newBase(d, player),
		oldEmail: strings.TrimSpace(oldEmail),
		newEmail: strings.TrimSpace(newEmail),
	}
}

// Name returns the process name.
func (*ChangeEmail) Name() string { return "change_email" }

// Run executes the process.
func (p *ChangeEmail) Run(ctx context.Context) message.Key {
	account, ok := p.cached()
	if !ok {
		return p.unauthenticatedHint(ctx, p.Name())
	}
	if !account.HasEmail() {
		return message.UsageAddEmail
	}
	if !p.Service.ValidateEmail(p.newEmail) {
		return message.InvalidNewEmail
	}
	if !strings.EqualFold(p.oldEmail, account.EmailValue()) {
		return message.InvalidOldEmail
	}

	free, err := p.Service.IsEmailFreeForRegistration(ctx, p.newEmail, p.player)
	if err != nil {
		return p.fail(ctx, p.Name(), "email availability check failed", err)
	}
	if !free {
		return message.EmailAlreadyUsed
	}

	account.SetEmail(p.newEmail)
	if err := p.Store.UpdateEmail(ctx, account); err != nil {
		return p.fail(ctx, p.Name(), "failed to store email", err)
	}
	if err := p.Cache.UpdatePlayer(account); err != nil {
		return p.fail(ctx, p.Name(), "failed to cache email", err)
	}
	return message.EmailChangedSuccess
}
