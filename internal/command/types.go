// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package command provides the command registry, parser, and dispatch system.
//
// Handlers turn a parsed player command into an account process and submit
// it; they never touch the store themselves.
package command

import (
	"context"
	"io"

	"github.com/oklog/ulid/v2"

	"github.com/holomush/holoauth/internal/process"
)

// CommandHandler is the function signature for command handlers.
//
//nolint:revive // stutter kept for readability at call sites
type CommandHandler func(ctx context.Context, exec *CommandExecution) error

// CommandEntry represents a registered command.
//
//nolint:revive // stutter kept for readability at call sites
type CommandEntry struct {
	Name    string         // canonical name (e.g., "login")
	Handler CommandHandler // builds and submits a process
	Help    string         // short description (one line)
	Usage   string         // usage pattern (e.g., "login <password>")
}

// CommandExecution provides context for command execution.
//
//nolint:revive // stutter kept for readability at call sites
type CommandExecution struct {
	SessionID ulid.ULID
	Player    process.Player
	Args      string
	Output    io.Writer
	Services  *Services
}

// Submitter schedules a process for asynchronous execution.
type Submitter interface {
	Submit(p process.Process) error
}

// Services provides handlers with what they need to build processes.
// Handlers MUST NOT store references to services beyond execution.
type Services struct {
	Deps     process.Deps
	Executor Submitter
}
