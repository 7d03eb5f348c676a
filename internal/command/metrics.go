// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Status constants for command execution metrics.
const (
	StatusSuccess     = "success"
	StatusError       = "error"
	StatusNotFound    = "not_found"
	StatusInvalidArgs = "invalid_args"
	StatusRateLimited = "rate_limited"
)

// CommandExecutions is the counter for command executions.
// Use RegisterMetrics to register this with a Prometheus registry.
var CommandExecutions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "holoauth_command_executions_total",
		Help: "Total number of command executions",
	},
	[]string{"command", "status"},
)

// CommandDuration is the histogram for command dispatch duration. It covers
// parsing and submission only; process run time is measured separately.
var CommandDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "holoauth_command_duration_seconds",
		Help:    "Command dispatch duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"command"},
)

// CommandsRateLimited counts commands rejected by the rate limiter.
var CommandsRateLimited = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "holoauth_commands_rate_limited_total",
	Help: "Total number of commands rejected by rate limiting",
})

// RegisterMetrics registers command package metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(CommandExecutions)
	reg.MustRegister(CommandDuration)
	reg.MustRegister(CommandsRateLimited)
}

// RecordCommandExecution increments the command execution counter.
func RecordCommandExecution(command, status string) {
	CommandExecutions.WithLabelValues(command, status).Inc()
}

// RecordCommandDuration records the duration of a command dispatch.
func RecordCommandDuration(command string, duration time.Duration) {
	CommandDuration.WithLabelValues(command).Observe(duration.Seconds())
}
