// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package process

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/holomush/holoauth/internal/identity"
	"github.com/holomush/holoauth/internal/message"
)

var tracer = otel.Tracer("holoauth/process")

// ErrExecutorClosed is returned by Submit after Close.
var ErrExecutorClosed = errors.New("executor is closed")

// Executor runs processes off the caller's goroutine. At most workers
// processes run at once, and processes of the same identity run one at a
// time in submission order. Each run's outcome is delivered exactly once.
type Executor struct {
	service *Service
	sem     *semaphore.Weighted
	ctx     context.Context

	mu     sync.Mutex
	queues map[identity.Key][]Process // present while a drainer owns the key
	closed bool
	wg     sync.WaitGroup
}

// NewExecutor creates an Executor delivering through service.
func NewExecutor(service *Service, workers int) (*Executor, error) {
	if service == nil {
		return nil, oops.Code("PROCESS_INVALID_CONFIG").Errorf("service is required")
	}
	if workers <= 0 {
		return nil, oops.Code("PROCESS_INVALID_CONFIG").
			With("workers", workers).
			Errorf("workers must be positive")
	}
	return &Executor{
		service: service,
		sem:     semaphore.NewWeighted(int64(workers)),
		ctx:     context.Background(),
		queues:  make(map[identity.Key][]Process),
	}, nil
}

// Submit schedules p and returns immediately.
func (e *Executor) Submit(p Process) error {
	key := identity.Normalize(p.Player().Name())

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return oops.Code("PROCESS_EXECUTOR_CLOSED").
			With("process", p.Name()).
			Wrap(ErrExecutorClosed)
	}
	if pending, busy := e.queues[key]; busy {
		e.queues[key] = append(pending, p)
		return nil
	}
	e.queues[key] = nil
	e.wg.Add(1)
	go e.drain(key, p)
	return nil
}

// drain runs p and then every process queued behind it for key.
func (e *Executor) drain(key identity.Key, p Process) {
	defer e.wg.Done()
	for {
		e.execute(p)

		e.mu.Lock()
		pending := e.queues[key]
		if len(pending) == 0 {
			delete(e.queues, key)
			e.mu.Unlock()
			return
		}
		p = pending[0]
		e.queues[key] = pending[1:]
		e.mu.Unlock()
	}
}

func (e *Executor) execute(p Process) {
	// The executor context is never cancelled, so Acquire cannot fail.
	_ = e.sem.Acquire(e.ctx, 1) //nolint:errcheck // background context
	defer e.sem.Release(1)

	ctx, span := tracer.Start(e.ctx, "process.run",
		trace.WithAttributes(
			attribute.String("process.name", p.Name()),
			attribute.String("player.name", p.Player().Name()),
		),
	)
	defer span.End()

	start := time.Now()
	outcome := e.run(ctx, p)
	recordRun(p.Name(), string(outcome), time.Since(start))
	span.SetAttributes(attribute.String("process.outcome", string(outcome)))

	e.service.Send(ctx, p.Player(), outcome)
}

// run calls p.Run and turns a panic or an empty outcome into ERROR.
func (e *Executor) run(ctx context.Context, p Process) (outcome message.Key) {
	defer func() {
		if r := recover(); r != nil {
			ProcessPanics.Inc()
			e.service.Logger().ErrorContext(ctx, "process panicked",
				"process", p.Name(),
				"player", p.Player().Name(),
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
			outcome = message.Error
		}
	}()

	outcome = p.Run(ctx)
	if !outcome.Valid() {
		e.service.Logger().ErrorContext(ctx, "process returned unknown outcome",
			"process", p.Name(),
			"outcome", string(outcome))
		return message.Error
	}
	return outcome
}

// Close stops accepting processes and waits until queued ones finish or
// ctx is done.
func (e *Executor) Close(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return oops.Code("PROCESS_DRAIN_TIMEOUT").Wrap(ctx.Err())
	}
}
