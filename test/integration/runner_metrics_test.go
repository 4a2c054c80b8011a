// Package integration contains integration tests that verify cross-package functionality.
// These tests ensure that different components work together correctly in realistic scenarios.
package integration

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vnykmshr/gopace/internal/testutil"
	"github.com/vnykmshr/gopace/pkg/metrics"
	"github.com/vnykmshr/gopace/pkg/pacing/runner"
)

// TestRunnerWithMetricsEndToEnd runs an instrumented runner through a mixed
// success and failure workload and verifies the Prometheus registry reflects
// every lifecycle event the runner reported.
func TestRunnerWithMetricsEndToEnd(t *testing.T) {
	reg := prometheus.NewRegistry()

	var attempts int32
	task := runner.TaskFunc(func(ctx context.Context) error {
		n := atomic.AddInt32(&attempts, 1)
		if n == 2 {
			return errors.New("transient failure")
		}
		return nil
	})

	r, err := runner.NewWithMetrics(runner.Config{
		Interval: 10 * time.Millisecond,
		Task:     task,
		OnTaskError: func(error) bool {
			return true // retry failed attempts immediately
		},
	}, "integration", metrics.Config{Enabled: true, Registry: reg})
	testutil.AssertNoError(t, err)

	done := make(chan struct{})
	go func() {
		r.Start(context.Background())
		close(done)
	}()

	testutil.WaitForInt32(t, &attempts, 4, testutil.TestTimeout)
	r.Stop()

	select {
	case <-done:
	case <-time.After(testutil.TestTimeout):
		t.Fatal("runner did not stop in time")
	}

	families, err := reg.Gather()
	testutil.AssertNoError(t, err)

	got := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				got[mf.GetName()] += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				got[mf.GetName()] += m.GetGauge().GetValue()
			}
		}
	}

	if got["gopace_runner_starts_total"] != 1 {
		t.Errorf("expected 1 runner start, got %v", got["gopace_runner_starts_total"])
	}
	if got["gopace_runner_stops_total"] != 1 {
		t.Errorf("expected 1 runner stop, got %v", got["gopace_runner_stops_total"])
	}
	if got["gopace_runner_executions_failed_total"] != 1 {
		t.Errorf("expected 1 failed execution, got %v", got["gopace_runner_executions_failed_total"])
	}
	if got["gopace_runner_immediate_retries_total"] != 1 {
		t.Errorf("expected 1 immediate retry, got %v", got["gopace_runner_immediate_retries_total"])
	}
	if got["gopace_runner_executions_started_total"] < 4 {
		t.Errorf("expected at least 4 execution starts, got %v", got["gopace_runner_executions_started_total"])
	}
	// A successful execution cut short by Stop skips the after-execution
	// hook, so at most one started execution may be unaccounted for.
	succeeded := got["gopace_runner_executions_succeeded_total"]
	failed := got["gopace_runner_executions_failed_total"]
	started := got["gopace_runner_executions_started_total"]
	if gap := started - succeeded - failed; gap < 0 || gap > 1 {
		t.Errorf("started executions (%v) should equal succeeded (%v) plus failed (%v), within one",
			started, succeeded, failed)
	}
	if got["gopace_runner_up"] != 0 {
		t.Errorf("expected runner_up gauge 0 after stop, got %v", got["gopace_runner_up"])
	}
}

// TestCronRunnerWithHooks verifies a cron-paced runner fires hooks and
// executions on schedule and shuts down cleanly.
func TestCronRunnerWithHooks(t *testing.T) {
	var executions, waits int32

	r, err := runner.NewCronWithConfig("* * * * * *", runner.Config{
		Task: runner.TaskFunc(func(context.Context) error {
			atomic.AddInt32(&executions, 1)
			return nil
		}),
		OnBeforeWaiting: func(time.Duration) {
			atomic.AddInt32(&waits, 1)
		},
	})
	testutil.AssertNoError(t, err)

	done := make(chan struct{})
	go func() {
		r.Start(context.Background())
		close(done)
	}()

	testutil.WaitForInt32(t, &executions, 2, testutil.TestTimeout)
	r.Stop()

	select {
	case <-done:
	case <-time.After(testutil.TestTimeout):
		t.Fatal("cron runner did not stop in time")
	}

	if atomic.LoadInt32(&executions) < 2 {
		t.Errorf("expected at least 2 executions, got %d", executions)
	}
	if atomic.LoadInt32(&waits) == 0 {
		t.Error("expected at least one wait notification before a cron boundary")
	}
	if r.Running() {
		t.Error("runner should not be running after Start returned")
	}
}
