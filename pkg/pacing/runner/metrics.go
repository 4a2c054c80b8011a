package runner

import (
	"time"

	"github.com/vnykmshr/gopace/pkg/metrics"
)

// NewWithMetrics creates a runner that reports Prometheus metrics under
// the given name. Metrics are implemented as instrumented lifecycle hooks
// chained in front of any hooks already present in the config; the user
// hooks keep their usual semantics, including OnTaskError's retry signal.
// Replacing a hook later via the Set* methods also replaces its chained
// metric updates.
func NewWithMetrics(cfg Config, name string, metricsConfig metrics.Config) (Runner, error) {
	if !metricsConfig.Enabled {
		return NewWithConfig(cfg)
	}

	registry := metrics.DefaultRegistry
	if metricsConfig.Registry != nil {
		registry = metrics.NewRegistry(metricsConfig.Registry)
	}

	return NewWithConfig(instrument(cfg, name, registry))
}

// instrument wraps the config's hooks with metric updates. Hooks run on
// the loop goroutine, so the execution-start timestamp needs no locking.
func instrument(cfg Config, name string, registry *metrics.Registry) Config {
	var execStart time.Time

	userStart := cfg.OnStart
	cfg.OnStart = func() {
		registry.RunnerStarts.WithLabelValues(name).Inc()
		registry.RunnerUp.WithLabelValues(name).Set(1)
		if userStart != nil {
			userStart()
		}
	}

	userStop := cfg.OnStop
	cfg.OnStop = func() {
		registry.RunnerStops.WithLabelValues(name).Inc()
		registry.RunnerUp.WithLabelValues(name).Set(0)
		if userStop != nil {
			userStop()
		}
	}

	userBeforeWaiting := cfg.OnBeforeWaiting
	cfg.OnBeforeWaiting = func(remaining time.Duration) {
		registry.WaitDuration.WithLabelValues(name).Observe(remaining.Seconds())
		if userBeforeWaiting != nil {
			userBeforeWaiting(remaining)
		}
	}

	userBeforeExecuting := cfg.OnBeforeExecuting
	cfg.OnBeforeExecuting = func() {
		registry.ExecutionsStarted.WithLabelValues(name).Inc()
		execStart = time.Now()
		if userBeforeExecuting != nil {
			userBeforeExecuting()
		}
	}

	userAfterExecuting := cfg.OnAfterExecuting
	cfg.OnAfterExecuting = func() {
		registry.ExecutionsSucceeded.WithLabelValues(name).Inc()
		registry.ExecutionDuration.WithLabelValues(name).Observe(time.Since(execStart).Seconds())
		if userAfterExecuting != nil {
			userAfterExecuting()
		}
	}

	userTaskError := cfg.OnTaskError
	cfg.OnTaskError = func(err error) bool {
		registry.ExecutionsFailed.WithLabelValues(name).Inc()
		retry := false
		if userTaskError != nil {
			retry = userTaskError(err)
		}
		if retry {
			registry.ImmediateRetries.WithLabelValues(name).Inc()
		}
		return retry
	}

	userPanicHandler := cfg.PanicHandler
	cfg.PanicHandler = func(hook string, recovered interface{}) {
		registry.HookPanics.WithLabelValues(name, hook).Inc()
		if userPanicHandler != nil {
			userPanicHandler(hook, recovered)
		}
	}

	return cfg
}
