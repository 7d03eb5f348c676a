// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package handlers implements the player commands. Each handler checks the
// argument shape, builds one account process and submits it.
package handlers

import (
	"context"
	"strings"

	"github.com/holomush/holoauth/internal/command"
	"github.com/holomush/holoauth/internal/process"
	"github.com/holomush/holoauth/internal/settings"
)

// submit hands p to the executor.
func submit(exec *command.CommandExecution, cmd string, p process.Process) error {
	if err := exec.Services.Executor.Submit(p); err != nil {
		return command.ErrSubmitFailed(cmd, err)
	}
	return nil
}

// args splits the argument string and checks the count.
func args(exec *command.CommandExecution, cmd, usage string, n int) ([]string, error) {
	fields, ok := command.SplitArgs(exec.Args, n)
	if !ok {
		return nil, command.ErrInvalidArgs(cmd, usage)
	}
	return fields, nil
}

// JoinHandler tells the player how to proceed.
func JoinHandler(_ context.Context, exec *command.CommandExecution) error {
	return submit(exec, "join", process.NewJoin(exec.Services.Deps, exec.Player))
}

// LoginHandler authenticates the player.
func LoginHandler(_ context.Context, exec *command.CommandExecution) error {
	a, err := args(exec, "login", "login <password>", 1)
	if err != nil {
		return err
	}
	return submit(exec, "login", process.NewLogin(exec.Services.Deps, exec.Player, a[0]))
}

// LogoutHandler ends the player's session.
func LogoutHandler(_ context.Context, exec *command.CommandExecution) error {
	return submit(exec, "logout", process.NewLogout(exec.Services.Deps, exec.Player))
}

// RegisterHandler creates an account. In email registration mode the
// arguments are an email and its confirmation, otherwise a password and
// its confirmation.
func RegisterHandler(_ context.Context, exec *command.CommandExecution) error {
	deps := exec.Services.Deps
	if deps.Service.BoolProperty(settings.UseEmailRegistration) {
		a, err := args(exec, "register", "register <email> <email>", 2)
		if err != nil {
			return err
		}
		return submit(exec, "register", process.NewRegisterEmail(deps, exec.Player, a[0], a[1]))
	}

	a, err := args(exec, "register", "register <password> <password>", 2)
	if err != nil {
		return err
	}
	return submit(exec, "register", process.NewRegister(deps, exec.Player, a[0], a[1]))
}

// EmailHandler handles the email subcommands add and change.
func EmailHandler(_ context.Context, exec *command.CommandExecution) error {
	const usage = "email add <email> <email> | email change <old email> <new email>"

	fields := strings.Fields(exec.Args)
	if len(fields) != 3 {
		return command.ErrInvalidArgs("email", usage)
	}

	deps := exec.Services.Deps
	switch strings.ToLower(fields[0]) {
	case "add":
		if !strings.EqualFold(fields[1], fields[2]) {
			return command.ErrInvalidArgs("email", "email add <email> <email>")
		}
		return submit(exec, "email", process.NewAddEmail(deps, exec.Player, fields[1]))
	case "change":
		return submit(exec, "email", process.NewChangeEmail(deps, exec.Player, fields[1], fields[2]))
	default:
		return command.ErrInvalidArgs("email", usage)
	}
}

// ChangePasswordHandler replaces the player's password.
func ChangePasswordHandler(_ context.Context, exec *command.CommandExecution) error {
	a, err := args(exec, "changepassword", "changepassword <old password> <new password>", 2)
	if err != nil {
		return err
	}
	return submit(exec, "changepassword", process.NewChangePassword(exec.Services.Deps, exec.Player, a[0], a[1]))
}

// UnregisterHandler deletes the player's account.
func UnregisterHandler(_ context.Context, exec *command.CommandExecution) error {
	a, err := args(exec, "unregister", "unregister <password>", 1)
	if err != nil {
		return err
	}
	return submit(exec, "unregister", process.NewUnregister(exec.Services.Deps, exec.Player, a[0]))
}
