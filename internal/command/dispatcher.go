// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"context"
	"log/slog"
	"strings"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/holoauth/pkg/errutil"
)

var tracer = otel.Tracer("holoauth/command")

// unknownLabel keeps arbitrary player input out of metric labels.
const unknownLabel = "unknown"

// Dispatcher handles command parsing, rate limiting and execution.
type Dispatcher struct {
	registry    *Registry
	rateLimiter *RateLimiter // optional, can be nil
	logger      *slog.Logger
}

// DispatcherOption configures a Dispatcher during construction.
type DispatcherOption func(*Dispatcher)

// WithRateLimiter configures the dispatcher to use rate limiting.
// If not provided, rate limiting is disabled.
func WithRateLimiter(rl *RateLimiter) DispatcherOption {
	return func(d *Dispatcher) {
		d.rateLimiter = rl
	}
}

// WithLogger sets the logger for failed commands.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a new command dispatcher with the given registry.
func NewDispatcher(registry *Registry, opts ...DispatcherOption) (*Dispatcher, error) {
	if registry == nil {
		return nil, ErrNilRegistry
	}
	d := &Dispatcher{registry: registry, logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dispatch parses and executes a command.
func (d *Dispatcher) Dispatch(ctx context.Context, input string, exec *CommandExecution) (err error) {
	if exec.Player == nil || exec.Services == nil {
		return ErrNoPlayer()
	}

	parsed, err := Parse(input)
	if err != nil {
		return err
	}
	name := strings.ToLower(parsed.Name)

	metrics := NewMetricsRecorder()
	defer metrics.Record()

	ctx, span := tracer.Start(ctx, "command.execute",
		trace.WithAttributes(
			attribute.String("command.name", name),
			attribute.String("session.id", exec.SessionID.String()),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if d.rateLimiter != nil {
		allowed, cooldownMs := d.rateLimiter.Allow(exec.SessionID)
		if !allowed {
			span.SetAttributes(attribute.Bool("command.rate_limited", true))
			span.SetAttributes(attribute.Int64("command.cooldown_ms", cooldownMs))
			CommandsRateLimited.Inc()
			metrics.SetCommandName(d.label(name))
			metrics.SetStatus(StatusRateLimited)
			return ErrRateLimited(cooldownMs)
		}
	}

	entry, ok := d.registry.Get(name)
	if !ok {
		metrics.SetCommandName(unknownLabel)
		metrics.SetStatus(StatusNotFound)
		return ErrUnknownCommand(name)
	}
	metrics.SetCommandName(entry.Name)

	exec.Args = parsed.Args
	err = entry.Handler(ctx, exec)
	switch {
	case err == nil:
	case errutil.Code(err) == CodeInvalidArgs:
		metrics.SetStatus(StatusInvalidArgs)
	default:
		metrics.SetStatus(StatusError)
		errutil.LogErrorContext(ctx, d.logger, "command execution failed", err,
			"command", entry.Name,
			"session_id", exec.SessionID.String())
	}
	return err
}

// EndSession forgets per-session state such as the rate limit bucket.
func (d *Dispatcher) EndSession(sessionID ulid.ULID) {
	if d.rateLimiter != nil {
		d.rateLimiter.Forget(sessionID)
	}
}

func (d *Dispatcher) label(name string) string {
	if _, ok := d.registry.Get(name); ok {
		return name
	}
	return unknownLabel
}
