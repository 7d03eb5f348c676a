// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/holoauth/pkg/errutil"
)

func startServer(t *testing.T, reg *prometheus.Registry, ready ReadinessChecker) *Server {
	t.Helper()
	server := NewServer("127.0.0.1:0", reg, ready)
	_, err := server.Start()
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
	})
	require.NotEmpty(t, server.Addr())
	return server
}

func get(t *testing.T, server *Server, path string) (int, string) {
	t.Helper()
	resp, err := http.Get("http://" + server.Addr() + path)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServer_MetricsServesCallerRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	logins := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "holoauth_test_logins_total",
		Help: "Test counter.",
	})
	reg.MustRegister(logins)
	logins.Add(2)

	server := startServer(t, reg, nil)
	assert.Same(t, reg, server.Registry())

	status, body := get(t, server, "/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "# HELP")
	assert.Contains(t, body, "# TYPE")
	assert.Contains(t, body, "go_")
	assert.Contains(t, body, "process_")
	assert.Contains(t, body, "holoauth_test_logins_total 2")
}

func TestServer_NilRegistryGetsFreshOne(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil, nil)
	assert.NotNil(t, server.Registry())
}

func TestServer_LivenessReturns200(t *testing.T) {
	server := startServer(t, nil, func(context.Context) error { return errors.New("db down") })

	status, body := get(t, server, "/healthz/liveness")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", strings.TrimSpace(body))
}

func TestServer_Readiness(t *testing.T) {
	tests := []struct {
		name   string
		ready  ReadinessChecker
		status int
		body   string
	}{
		{"nil checker", nil, http.StatusOK, "ok"},
		{"ready", func(context.Context) error { return nil }, http.StatusOK, "ok"},
		{"not ready", func(context.Context) error { return errors.New("ping failed") }, http.StatusServiceUnavailable, "not ready"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := startServer(t, nil, tt.ready)
			status, body := get(t, server, "/healthz/readiness")
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.body, strings.TrimSpace(body))
		})
	}
}

func TestServer_ReadinessCheckGetsDeadline(t *testing.T) {
	var hasDeadline bool
	server := startServer(t, nil, func(ctx context.Context) error {
		_, hasDeadline = ctx.Deadline()
		return nil
	})

	status, _ := get(t, server, "/healthz/readiness")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, hasDeadline)
}

func TestServer_DoubleStartFails(t *testing.T) {
	server := startServer(t, nil, nil)

	_, err := server.Start()
	errutil.AssertErrorCode(t, err, "OBSERVABILITY_ALREADY_RUNNING")
}

func TestServer_StartFailsOnBadAddress(t *testing.T) {
	server := NewServer("not-an-address", nil, nil)

	_, err := server.Start()
	errutil.AssertErrorCode(t, err, "OBSERVABILITY_LISTEN_FAILED")
}

func TestServer_StopIdempotent(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, server.Stop(ctx), "stop without start")
}

func TestServer_ErrorChannelReportsServeErrors(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil, nil)

	errCh, err := server.Start()
	require.NoError(t, err)

	// Closing the listener underneath Serve forces it to fail.
	require.NotNil(t, server.listener)
	_ = server.listener.Close()

	select {
	case serveErr := <-errCh:
		assert.Error(t, serveErr)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error on error channel")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Stop(ctx)
}

func TestServer_ErrorChannelClosesOnNormalShutdown(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil, nil)

	errCh, err := server.Start()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Stop(ctx))

	select {
	case err, ok := <-errCh:
		if ok {
			assert.NoError(t, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error channel to close")
	}
}
