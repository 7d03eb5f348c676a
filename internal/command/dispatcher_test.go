// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/holoauth/internal/process"
	"github.com/holomush/holoauth/pkg/errutil"
)

type testPlayer struct{}

func (testPlayer) Name() string    { return "tester" }
func (testPlayer) Address() string { return "192.0.2.1" }

type nopSubmitter struct{}

func (nopSubmitter) Submit(process.Process) error { return nil }

func newTestExecution() *CommandExecution {
	return &CommandExecution{
		SessionID: ulid.Make(),
		Player:    testPlayer{},
		Output:    &bytes.Buffer{},
		Services:  &Services{Executor: nopSubmitter{}},
	}
}

func TestNewDispatcher_RequiresRegistry(t *testing.T) {
	_, err := NewDispatcher(nil)
	assert.ErrorIs(t, err, ErrNilRegistry)
}

func TestDispatcher_Dispatch(t *testing.T) {
	reg := NewRegistry()
	var gotArgs string
	require.NoError(t, reg.Register(CommandEntry{
		Name: "login",
		Handler: func(_ context.Context, exec *CommandExecution) error {
			gotArgs = exec.Args
			return nil
		},
	}))
	d, err := NewDispatcher(reg)
	require.NoError(t, err)
	before := testutil.ToFloat64(CommandExecutions.WithLabelValues("login", StatusSuccess))

	err = d.Dispatch(t.Context(), "  LOGIN   s3cret!  ", newTestExecution())

	require.NoError(t, err)
	assert.Equal(t, "s3cret!", gotArgs)
	assert.InDelta(t, before+1, testutil.ToFloat64(CommandExecutions.WithLabelValues("login", StatusSuccess)), 0.001)
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	d, err := NewDispatcher(NewRegistry())
	require.NoError(t, err)
	before := testutil.ToFloat64(CommandExecutions.WithLabelValues(unknownLabel, StatusNotFound))

	err = d.Dispatch(t.Context(), "dance wildly", newTestExecution())

	errutil.AssertErrorCode(t, err, CodeUnknownCommand)
	assert.InDelta(t, before+1, testutil.ToFloat64(CommandExecutions.WithLabelValues(unknownLabel, StatusNotFound)), 0.001)
}

func TestDispatcher_EmptyInput(t *testing.T) {
	d, err := NewDispatcher(NewRegistry())
	require.NoError(t, err)

	err = d.Dispatch(t.Context(), "   ", newTestExecution())

	errutil.AssertErrorCode(t, err, "EMPTY_INPUT")
}

func TestDispatcher_RequiresPlayer(t *testing.T) {
	d, err := NewDispatcher(NewRegistry())
	require.NoError(t, err)
	exec := newTestExecution()
	exec.Player = nil

	err = d.Dispatch(t.Context(), "login x", exec)

	errutil.AssertErrorCode(t, err, CodeNoPlayer)
}

func TestDispatcher_HandlerErrors(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(CommandEntry{
		Name: "login",
		Handler: func(context.Context, *CommandExecution) error {
			return ErrInvalidArgs("login", "login <password>")
		},
	}))
	require.NoError(t, reg.Register(CommandEntry{
		Name: "logout",
		Handler: func(context.Context, *CommandExecution) error {
			return oops.Code(CodeSubmitFailed).Wrap(errors.New("closed"))
		},
	}))
	d, err := NewDispatcher(reg)
	require.NoError(t, err)

	invalid := testutil.ToFloat64(CommandExecutions.WithLabelValues("login", StatusInvalidArgs))
	failed := testutil.ToFloat64(CommandExecutions.WithLabelValues("logout", StatusError))

	errutil.AssertErrorCode(t, d.Dispatch(t.Context(), "login", newTestExecution()), CodeInvalidArgs)
	errutil.AssertErrorCode(t, d.Dispatch(t.Context(), "logout", newTestExecution()), CodeSubmitFailed)

	assert.InDelta(t, invalid+1, testutil.ToFloat64(CommandExecutions.WithLabelValues("login", StatusInvalidArgs)), 0.001)
	assert.InDelta(t, failed+1, testutil.ToFloat64(CommandExecutions.WithLabelValues("logout", StatusError)), 0.001)
}

func TestDispatcher_RateLimited(t *testing.T) {
	reg := NewRegistry()
	calls := 0
	require.NoError(t, reg.Register(CommandEntry{
		Name: "login",
		Handler: func(context.Context, *CommandExecution) error {
			calls++
			return nil
		},
	}))
	rl := NewRateLimiter(RateLimiterConfig{BurstCapacity: 2, SustainedRate: 0.1})
	t.Cleanup(rl.Close)
	d, err := NewDispatcher(reg, WithRateLimiter(rl))
	require.NoError(t, err)
	exec := newTestExecution()
	before := testutil.ToFloat64(CommandsRateLimited)

	require.NoError(t, d.Dispatch(t.Context(), "login a", exec))
	require.NoError(t, d.Dispatch(t.Context(), "login b", exec))
	err = d.Dispatch(t.Context(), "login c", exec)

	errutil.AssertErrorCode(t, err, CodeRateLimited)
	assert.Equal(t, 2, calls)
	assert.InDelta(t, before+1, testutil.ToFloat64(CommandsRateLimited), 0.001)

	// A different session has its own bucket.
	require.NoError(t, d.Dispatch(t.Context(), "login d", newTestExecution()))
}
