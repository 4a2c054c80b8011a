// Package metrics provides Prometheus instrumentation for gopace components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for gopace components.
type Registry struct {
	// Runner lifecycle metrics
	RunnerStarts *prometheus.CounterVec
	RunnerStops  *prometheus.CounterVec
	RunnerUp     *prometheus.GaugeVec

	// Execution metrics
	ExecutionsStarted   *prometheus.CounterVec
	ExecutionsSucceeded *prometheus.CounterVec
	ExecutionsFailed    *prometheus.CounterVec
	ImmediateRetries    *prometheus.CounterVec
	ExecutionDuration   *prometheus.HistogramVec

	// Pacing metrics
	WaitDuration *prometheus.HistogramVec
	HookPanics   *prometheus.CounterVec
}

// DefaultRegistry is the default metrics registry used by gopace components.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		RunnerStarts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gopace",
				Subsystem: "runner",
				Name:      "starts_total",
				Help:      "Total number of run loop starts",
			},
			[]string{"runner_name"},
		),

		RunnerStops: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gopace",
				Subsystem: "runner",
				Name:      "stops_total",
				Help:      "Total number of run loop stops",
			},
			[]string{"runner_name"},
		),

		RunnerUp: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "gopace",
				Subsystem: "runner",
				Name:      "up",
				Help:      "Whether the run loop is currently active (1) or idle (0)",
			},
			[]string{"runner_name"},
		),

		ExecutionsStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gopace",
				Subsystem: "runner",
				Name:      "executions_started_total",
				Help:      "Total number of task execution attempts, including immediate retries",
			},
			[]string{"runner_name"},
		),

		ExecutionsSucceeded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gopace",
				Subsystem: "runner",
				Name:      "executions_succeeded_total",
				Help:      "Total number of successful task executions",
			},
			[]string{"runner_name"},
		),

		ExecutionsFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gopace",
				Subsystem: "runner",
				Name:      "executions_failed_total",
				Help:      "Total number of failed task executions",
			},
			[]string{"runner_name"},
		),

		ImmediateRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gopace",
				Subsystem: "runner",
				Name:      "immediate_retries_total",
				Help:      "Total number of immediate retries requested by the error hook",
			},
			[]string{"runner_name"},
		),

		ExecutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gopace",
				Subsystem: "runner",
				Name:      "execution_duration_seconds",
				Help:      "Time spent executing the task",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"runner_name"},
		),

		WaitDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gopace",
				Subsystem: "runner",
				Name:      "wait_duration_seconds",
				Help:      "Time spent waiting out the remainder of the interval",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"runner_name"},
		),

		HookPanics: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gopace",
				Subsystem: "runner",
				Name:      "hook_panics_total",
				Help:      "Total number of recovered lifecycle hook panics",
			},
			[]string{"runner_name", "hook"},
		),
	}
}
