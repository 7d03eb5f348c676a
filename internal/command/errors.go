// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"errors"

	"github.com/samber/oops"

	"github.com/holomush/holoauth/internal/message"
)

// Error codes for command dispatch failures.
const (
	CodeUnknownCommand = "UNKNOWN_COMMAND"
	CodeInvalidArgs    = "INVALID_ARGS"
	CodeInvalidName    = "INVALID_NAME"
	CodeRateLimited    = "RATE_LIMITED"
	CodeNoPlayer       = "NO_PLAYER"
	CodeNilHandler     = "NIL_HANDLER"
	CodeSubmitFailed   = "SUBMIT_FAILED"
)

// ErrNilRegistry is returned when a dispatcher is built without a registry.
var ErrNilRegistry = errors.New("registry is required")

// ErrUnknownCommand creates an error for an unknown command.
func ErrUnknownCommand(cmd string) error {
	return oops.Code(CodeUnknownCommand).
		With("command", cmd).
		Errorf("unknown command: %s", cmd)
}

// ErrInvalidArgs creates an error for invalid arguments.
func ErrInvalidArgs(cmd, usage string) error {
	return oops.Code(CodeInvalidArgs).
		With("command", cmd).
		With("usage", usage).
		Errorf("invalid arguments")
}

// ErrRateLimited creates an error for rate limiting.
func ErrRateLimited(cooldownMs int64) error {
	return oops.Code(CodeRateLimited).
		With("cooldown_ms", cooldownMs).
		Errorf("too many commands")
}

// ErrNoPlayer creates an error when a command is dispatched without a player.
func ErrNoPlayer() error {
	return oops.Code(CodeNoPlayer).Errorf("no player associated with session")
}

// ErrNilHandler creates an error for a registration without a handler.
func ErrNilHandler(cmd string) error {
	return oops.Code(CodeNilHandler).
		With("command", cmd).
		Errorf("command %s has no handler", cmd)
}

// ErrSubmitFailed wraps an executor rejection.
func ErrSubmitFailed(cmd string, cause error) error {
	return oops.Code(CodeSubmitFailed).
		With("command", cmd).
		Wrap(cause)
}

// PlayerMessage renders a player-facing line for a dispatch error.
func PlayerMessage(err error, catalog *message.Catalog) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return catalog.Render(message.Error, nil)
	}

	switch oopsErr.Code() {
	case CodeUnknownCommand:
		return catalog.Render(message.UnknownCommand, nil)
	case CodeInvalidArgs:
		if usage, ok := oopsErr.Context()["usage"].(string); ok && usage != "" {
			return "Usage: " + usage
		}
		return catalog.Render(message.Error, nil)
	case CodeRateLimited:
		return catalog.Render(message.RateLimited, nil)
	default:
		return catalog.Render(message.Error, nil)
	}
}
