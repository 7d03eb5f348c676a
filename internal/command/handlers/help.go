// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package handlers

import (
	"context"
	"fmt"

	"github.com/holomush/holoauth/internal/command"
)

// HelpHandler lists the registered commands.
func HelpHandler(reg *command.Registry) command.CommandHandler {
	return func(ctx context.Context, exec *command.CommandExecution) error {
		for _, entry := range reg.All() {
			writeOutput(ctx, exec, "help", fmt.Sprintf("  %-16s %s", entry.Usage, entry.Help))
		}
		return nil
	}
}
