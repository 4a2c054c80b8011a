/*
Package gopace provides cadence control for repeating tasks: run a unit
of work over and over while guaranteeing a minimum elapsed time between
the start of one execution and the start of the next.

Task Pacing (pkg/pacing):
  - runner: interval- and cron-paced single-flight task runner with
    lifecycle hooks and error-driven retry policy

Supporting packages:
  - pkg/metrics: Prometheus instrumentation for runners
  - pkg/common/errors: shared error types (validation, operation)

Example usage:

	import (
		"github.com/vnykmshr/gopace/pkg/pacing/runner"
	)

	task := runner.TaskFunc(func(ctx context.Context) error {
		return crawl(ctx)
	})

	r, _ := runner.New(2*time.Second, task)
	go r.Start(context.Background())
	defer r.Stop()
*/
package gopace
