// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package handlers

import (
	"github.com/holomush/holoauth/internal/command"
)

// RegisterAll registers all account command handlers with the registry.
// Panics if any registration fails (indicates a programming error).
func RegisterAll(reg *command.Registry) {
	mustRegister := func(entry command.CommandEntry) {
		if err := reg.Register(entry); err != nil {
			panic("failed to register command " + entry.Name + ": " + err.Error())
		}
	}

	mustRegister(command.CommandEntry{
		Name:    "join",
		Handler: JoinHandler,
		Help:    "Show what to do next",
		Usage:   "join",
	})
	mustRegister(command.CommandEntry{
		Name:    "login",
		Handler: LoginHandler,
		Help:    "Log in to your account",
		Usage:   "login <password>",
	})
	mustRegister(command.CommandEntry{
		Name:    "logout",
		Handler: LogoutHandler,
		Help:    "Log out of your account",
		Usage:   "logout",
	})
	mustRegister(command.CommandEntry{
		Name:    "register",
		Handler: RegisterHandler,
		Help:    "Register your name",
		Usage:   "register <password|email> <confirm>",
	})
	mustRegister(command.CommandEntry{
		Name:    "email",
		Handler: EmailHandler,
		Help:    "Add or change your email",
		Usage:   "email add|change <a> <b>",
	})
	mustRegister(command.CommandEntry{
		Name:    "changepassword",
		Handler: ChangePasswordHandler,
		Help:    "Change your password",
		Usage:   "changepassword <old> <new>",
	})
	mustRegister(command.CommandEntry{
		Name:    "unregister",
		Handler: UnregisterHandler,
		Help:    "Delete your account",
		Usage:   "unregister <password>",
	})
	mustRegister(command.CommandEntry{
		Name:    "help",
		Handler: HelpHandler(reg),
		Help:    "List commands",
		Usage:   "help",
	})
}
