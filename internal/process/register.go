// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package process

import (
	"context"
	"strings"
	"time"

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/internal/mail"
	"github.com/holomush/holoauth/internal/message"
	"github.com/holomush/holoauth/internal/settings"
)

// Register creates an account protected by a player-chosen password.
type Register struct {
	base
	password string
	confirm  string
}

// NewRegister creates a Register process.
func NewRegister(d Deps, player Player, password, confirm string) *Register {
	return &Register{base: newBase(d, player), password: password, confirm: confirm}
}

// Name returns the process name.
func (*Register) Name() string { return "register" }

// Run executes the process.
func (p *Register) Run(ctx context.Context) message.Key {
	if key, done := p.precheck(); done {
		return key
	}
	if p.Service.BoolProperty(settings.UseEmailRegistration) {
		return message.RegisterEmailMessage
	}
	if key, bad := p.checkName(); bad {
		return key
	}
	if p.password != p.confirm {
		return message.PasswordMatchError
	}
	if err := p.Service.ValidatePassword(p.password, p.player.Name()); err != nil {
		if key, ok := validationOutcome(err); ok {
			return key
		}
		return p.fail(ctx, p.Name(), "password validation failed", err)
	}
	if key, done := p.checkAvailable(ctx, p.Name()); done {
		return key
	}

	hash, err := p.Service.HashPassword(p.password)
	if err != nil {
		return p.fail(ctx, p.Name(), "failed to hash password", err)
	}
	account, err := auth.NewAccount(p.player.Name(), hash, p.player.Address())
	if err != nil {
		return p.fail(ctx, p.Name(), "failed to create account", err)
	}

	forceLogin := p.Service.BoolProperty(settings.ForceLoginAfterRegister)
	if forceLogin {
		account.RecordLogin(p.player.Address(), time.Now())
	}
	if err := p.Store.SaveAuth(ctx, account); err != nil {
		return p.fail(ctx, p.Name(), "failed to store account", err)
	}
	if forceLogin {
		p.Cache.AddPlayer(account)
	}
	return message.RegisterSuccess
}

// RegisterEmail creates an account whose generated password is mailed to
// the given address.
type RegisterEmail struct {
	base
	email   string
	confirm string
}

// NewRegisterEmail creates a RegisterEmail process.
func NewRegisterEmail(d Deps, player Player, email, confirm string) *RegisterEmail {
	return &RegisterEmail{
		base:    newBase(d, player),
		email:   strings.TrimSpace(email),
		confirm: strings.TrimSpace(confirm),
	}
}

// Name returns the process name.
func (*RegisterEmail) Name() string { return "register_email" }

// Run executes the process.
func (p *RegisterEmail) Run(ctx context.Context) message.Key {
	if key, done := p.precheck(); done {
		return key
	}
	if !p.Service.BoolProperty(settings.UseEmailRegistration) {
		return message.RegisterMessage
	}
	if key, bad := p.checkName(); bad {
		return key
	}
	if !strings.EqualFold(p.email, p.confirm) || !p.Service.ValidateEmail(p.email) {
		return message.InvalidEmail
	}

	registered, err := p.Store.IsAuthAvailable(ctx, p.key())
	if err != nil {
		return p.fail(ctx, p.Name(), "account lookup failed", err)
	}
	if registered {
		return message.NameAlreadyRegistered
	}
	free, err := p.Service.IsEmailFreeForRegistration(ctx, p.email, p.player)
	if err != nil {
		return p.fail(ctx, p.Name(), "email availability check failed", err)
	}
	if !free {
		return message.EmailAlreadyUsed
	}
	if key, done := p.checkIPLimit(ctx, p.Name()); done {
		return key
	}

	password, err := auth.GeneratePassword(p.Service.IntProperty(settings.GeneratedPasswordLength))
	if err != nil {
		return p.fail(ctx, p.Name(), "failed to generate password", err)
	}
	hash, err := p.Service.HashPassword(password)
	if err != nil {
		return p.fail(ctx, p.Name(), "failed to hash password", err)
	}
	account, err := auth.NewAccount(p.player.Name(), hash, p.player.Address())
	if err != nil {
		return p.fail(ctx, p.Name(), "failed to create account", err)
	}
	account.SetEmail(p.email)
	if err := p.Store.SaveAuth(ctx, account); err != nil {
		return p.fail(ctx, p.Name(), "failed to store account", err)
	}

	msg := mail.NewPasswordMessage(p.email, p.player.Name(), password)
	if err := p.Service.Mailer().Send(ctx, msg); err != nil {
		p.logFailure(ctx, p.Name(), "failed to mail generated password", err)
		if rmErr := p.Store.RemoveAuth(ctx, account.Key); rmErr != nil {
			p.logFailure(ctx, p.Name(), "failed to remove unreachable account", rmErr)
		}
		return message.EmailSendFailure
	}
	return message.RegisterEmailSuccess
}

// precheck covers the branches shared by both registration modes.
func (b base) precheck() (message.Key, bool) {
	if b.Cache.IsAuthenticated(b.key()) {
		return message.AlreadyLoggedIn, true
	}
	if !b.Service.BoolProperty(settings.RegistrationEnabled) {
		return message.RegistrationDisabled, true
	}
	return "", false
}

func (b base) checkName() (message.Key, bool) {
	err := b.Service.ValidateName(b.player.Name())
	if err == nil {
		return "", false
	}
	if key, ok := validationOutcome(err); ok {
		return key, true
	}
	return message.InvalidNameCharacters, true
}

// checkAvailable rejects taken names and registrations over the IP limit.
func (b base) checkAvailable(ctx context.Context, process string) (message.Key, bool) {
	registered, err := b.Store.IsAuthAvailable(ctx, b.key())
	if err != nil {
		return b.fail(ctx, process, "account lookup failed", err), true
	}
	if registered {
		return message.NameAlreadyRegistered, true
	}
	return b.checkIPLimit(ctx, process)
}

func (b base) checkIPLimit(ctx context.Context, process string) (message.Key, bool) {
	limit := b.Service.IntProperty(settings.MaxRegistrationsPerIP)
	address := b.player.Address()
	if limit <= 0 || address == "" {
		return "", false
	}
	count, err := b.Store.CountAuthsByIP(ctx, address)
	if err != nil {
		return b.fail(ctx, process, "registration count failed", err), true
	}
	if count >= limit {
		return message.MaxRegisterExceeded, true
	}
	return "", false
}
