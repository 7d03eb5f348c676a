// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/holomush/holoauth/internal/command"
)

// writeOutput writes a line to the command output. Write failures are
// logged and do not fail the command.
func writeOutput(ctx context.Context, exec *command.CommandExecution, cmd, msg string) {
	if n, err := fmt.Fprintln(exec.Output, msg); err != nil {
		slog.WarnContext(ctx, "failed to write command output",
			"command", cmd,
			"session_id", exec.SessionID.String(),
			"bytes_written", n,
			"error", err,
		)
	}
}
