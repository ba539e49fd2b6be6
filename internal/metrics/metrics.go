// Package metrics records per-invocation run metrics and writes them in the
// Prometheus text format for a node_exporter textfile collector.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes of one invocation.
const (
	OutcomeSuccess   = "success"
	OutcomeExitCode  = "exit_code"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

// Recorder holds the run metrics of one invocation on its own registry.
type Recorder struct {
	registry *prometheus.Registry
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	lastExit *prometheus.GaugeVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sqlplusctl",
				Subsystem: "run",
				Name:      "total",
				Help:      "SQL*Plus invocations by target and outcome.",
			},
			[]string{"target", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "sqlplusctl",
				Subsystem: "run",
				Name:      "duration_seconds",
				Help:      "Wall time of one invocation in seconds.",
				Buckets:   []float64{0.5, 1, 5, 15, 60, 300, 900, 3600},
			},
			[]string{"target", "outcome"},
		),
		lastExit: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "sqlplusctl",
				Subsystem: "run",
				Name:      "last_exit_code",
				Help:      "Exit code of the most recent SQL*Plus process.",
			},
			[]string{"target"},
		),
	}
	r.registry.MustRegister(r.runs, r.duration, r.lastExit)
	return r
}

// Outcome classifies a run error. code is the sqlplus exit code, or -1 when
// no process completed.
func Outcome(err error, code int) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	case code > 0:
		return OutcomeExitCode
	default:
		return OutcomeFailed
	}
}

func (r *Recorder) RecordRun(target, outcome string, code int, duration time.Duration) {
	r.runs.WithLabelValues(target, outcome).Inc()
	r.duration.WithLabelValues(target, outcome).Observe(duration.Seconds())
	if code >= 0 {
		r.lastExit.WithLabelValues(target).Set(float64(code))
	}
}

// WriteTextfile atomically replaces path with the current metrics.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
