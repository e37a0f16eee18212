// Package metrics holds the Prometheus collectors describing pipeline
// executions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "lasr"
	subsystem = "executor"
)

// Operations recorded by the executor.
const (
	OpProcess = "process"
	OpInfo    = "info"
)

// Outcome labels how an execution ended.
type Outcome string

const (
	// OutcomeSuccess is an engine answer with success=true.
	OutcomeSuccess Outcome = "success"
	// OutcomeFailure is an engine answer with success=false.
	OutcomeFailure Outcome = "failure"
	// OutcomeRejected is an execution stopped before dispatch: bad inputs or
	// an invalid pipeline.
	OutcomeRejected Outcome = "rejected"
	// OutcomeError is a transport or parse failure of the engine.
	OutcomeError Outcome = "error"
	// OutcomeCancelled is an execution whose context ended first.
	OutcomeCancelled Outcome = "cancelled"
)

// Executions groups the collectors. A nil *Executions records nothing.
type Executions struct {
	Total      *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
	InputFiles prometheus.Histogram
	InFlight   prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which tests and one-shot CLI runs use.
func New(reg prometheus.Registerer) *Executions {
	f := promauto.With(reg)
	return &Executions{
		Total: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "executions_total",
			Help:      "Pipeline executions by operation and outcome",
		}, []string{"op", "outcome"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent waiting for the engine",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
		}, []string{"op"}),
		InputFiles: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "input_files",
			Help:      "Number of point-cloud files per execution after resolution",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		InFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "in_flight",
			Help:      "Executions currently waiting for the engine",
		}),
	}
}

// Record counts one finished execution.
func (m *Executions) Record(op string, outcome Outcome) {
	if m == nil {
		return
	}
	m.Total.WithLabelValues(op, string(outcome)).Inc()
}

// ObserveInputs records how many files an execution resolved.
func (m *Executions) ObserveInputs(n int) {
	if m == nil {
		return
	}
	m.InputFiles.Observe(float64(n))
}

// Dispatch marks an engine call as in flight and returns the function that
// ends it and records its duration.
func (m *Executions) Dispatch(op string) func() {
	if m == nil {
		return func() {}
	}
	start := time.Now()
	m.InFlight.Inc()
	return func() {
		m.InFlight.Dec()
		m.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}
