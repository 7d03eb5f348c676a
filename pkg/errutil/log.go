// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package errutil holds small helpers for logging and asserting oops errors.
package errutil

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/oops"
)

// Code returns the oops error code carried by err, or "" when there is none.
func Code(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	if code := oopsErr.Code(); code != nil {
		return fmt.Sprint(code)
	}
	return ""
}

// LogError logs err at error level. Oops errors contribute their code and
// context as structured attributes; extra attrs are appended verbatim.
func LogError(logger *slog.Logger, msg string, err error, attrs ...any) {
	LogErrorContext(context.Background(), logger, msg, err, attrs...)
}

// LogErrorContext is LogError with a context, so trace ids reach the handler.
func LogErrorContext(ctx context.Context, logger *slog.Logger, msg string, err error, attrs ...any) {
	out := make([]any, 0, len(attrs)+6)
	out = append(out, "error", errorString(err))

	if oopsErr, ok := oops.AsOops(err); ok {
		if code := Code(err); code != "" {
			out = append(out, "code", code)
		}
		if octx := oopsErr.Context(); len(octx) > 0 {
			out = append(out, "context", octx)
		}
	}

	out = append(out, attrs...)
	logger.ErrorContext(ctx, msg, out...)
}

func errorString(err error) string {
	if err == nil {
		return "<nil>"
	}
	return err.Error()
}
