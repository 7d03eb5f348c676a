// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package process

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ProcessExecutions counts finished runs by process and outcome key.
var ProcessExecutions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "holoauth_process_executions_total",
		Help: "Total number of account process runs",
	},
	[]string{"process", "outcome"},
)

// ProcessDuration observes run time per process.
var ProcessDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "holoauth_process_duration_seconds",
		Help:    "Account process run duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"process"},
)

// ProcessPanics counts runs that panicked and were answered with ERROR.
var ProcessPanics = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "holoauth_process_panics_total",
	Help: "Total number of account process runs that panicked",
})

// RegisterMetrics registers process metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(ProcessExecutions)
	reg.MustRegister(ProcessDuration)
	reg.MustRegister(ProcessPanics)
}

func recordRun(process, outcome string, d time.Duration) {
	ProcessExecutions.WithLabelValues(process, outcome).Inc()
	ProcessDuration.WithLabelValues(process).Observe(d.Seconds())
}
