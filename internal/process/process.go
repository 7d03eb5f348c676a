// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package process implements the account processes: single-purpose
// operations that check a player's cached and stored state, write the
// store first and the cache second, and end in exactly one outcome message.
//
// Processes never deliver messages themselves. Run returns the outcome and
// the Executor hands it to the Service, so every run produces one message
// whatever branch it takes, including panics.
package process

import (
	"context"
	"errors"

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/internal/cache"
	"github.com/holomush/holoauth/internal/identity"
	"github.com/holomush/holoauth/internal/message"
	"github.com/holomush/holoauth/internal/settings"
	"github.com/holomush/holoauth/pkg/errutil"
)

// Player is the acting connection.
type Player interface {
	// Name is the name the player presented, in their casing.
	Name() string
	// Address is the remote IP, used for registration limits and login records.
	Address() string
}

// Messenger delivers an outcome to a player.
type Messenger interface {
	Send(ctx context.Context, player Player, key message.Key)
}

// Process is one account operation.
type Process interface {
	// Name identifies the process kind in logs and metrics.
	Name() string
	// Player is the acting player; the Executor serializes runs per identity.
	Player() Player
	// Run executes the operation and returns its single outcome.
	Run(ctx context.Context) message.Key
}

// Deps are the collaborators every process uses.
type Deps struct {
	Cache   *cache.PlayerCache
	Store   auth.AccountRepository
	Service *Service
}

// base carries the fields and shared branches of all processes.
type base struct {
	Deps
	player Player
}

func newBase(d Deps, p Player) base {
	return base{Deps: d, player: p}
}

// Player returns the acting player.
func (b base) Player() Player {
	return b.player
}

func (b base) key() identity.Key {
	return identity.Normalize(b.player.Name())
}

// cached returns the player's session copy, or false when not authenticated.
func (b base) cached() (*auth.Account, bool) {
	return b.Cache.GetAuth(b.key())
}

// unauthenticatedHint tells a player without a session what to do next.
func (b base) unauthenticatedHint(ctx context.Context, process string) message.Key {
	registered, err := b.Store.IsAuthAvailable(ctx, b.key())
	if err != nil {
		return b.fail(ctx, process, "account lookup failed", err)
	}
	switch {
	case registered:
		return message.LoginMessage
	case b.Service.BoolProperty(settings.UseEmailRegistration):
		return message.RegisterEmailMessage
	default:
		return message.RegisterMessage
	}
}

// fail logs err for operators and returns the generic outcome.
func (b base) fail(ctx context.Context, process, msg string, err error) message.Key {
	b.logFailure(ctx, process, msg, err)
	return message.Error
}

// logFailure logs err on a path that still completes with its own outcome.
func (b base) logFailure(ctx context.Context, process, msg string, err error) {
	errutil.LogErrorContext(ctx, b.Service.Logger(), msg, err,
		"process", process,
		"player", b.player.Name())
}

// isNotFound reports whether err is a store miss.
func isNotFound(err error) bool {
	return errors.Is(err, auth.ErrNotFound)
}
