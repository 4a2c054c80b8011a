/*
Package runner provides a repeating-task runner that guarantees a minimum
elapsed time between the starts of consecutive task executions, regardless
of how long each execution takes.

This is the pacing model needed by polling loops and crawlers: never hit a
resource faster than a fixed cadence, but never compound delay when the
task itself runs slowly. The wait for the next cycle is computed from when
the previous execution started, not when it ended.

Basic Usage:

	task := runner.TaskFunc(func(ctx context.Context) error {
		return poll(ctx)
	})

	r, err := runner.New(30*time.Second, task)
	if err != nil {
		log.Fatal(err)
	}

	go r.Start(context.Background()) // blocks until the runner stops
	// ...
	r.Stop()

Key Behaviors:

  - The first execution after Start happens immediately; only subsequent
    cycles wait out the remainder of the interval.
  - A zero interval means back-to-back execution bounded only by task
    duration. A negative interval is rejected with a validation error.
  - The interval may be changed mid-run with SetInterval; an in-progress
    wait is unaffected.
  - At most one execution is ever in flight. A second Start while running
    is a no-op.
  - Stop is non-blocking and cooperative: the loop exits at the next
    stop-check point, which bounds cancellation latency by the current
    wait or task execution. Stop may be called from within the task or
    any hook.

Lifecycle Hooks:

Seven optional hooks observe the loop's phase boundaries. All are
assignable in the Config and replaceable at any time, including mid-run:

	cfg := runner.Config{
		Interval: time.Minute,
		Task:     task,
		OnStart:           func() { log.Print("loop started") },
		OnBeforeWaiting:   func(d time.Duration) { log.Printf("waiting %v", d) },
		OnAfterWaiting:    func() {},
		OnBeforeExecuting: func() {},
		OnAfterExecuting:  func() {},
		OnTaskError:       func(err error) bool { return isTransient(err) },
		OnStop:            func() { log.Print("loop stopped") },
	}

Hooks have no authority over scheduling except OnTaskError: returning true
requests an immediate retry with no wait. A failed execution never
advances the interval baseline, so retries get no extra delay credit and
a deferred retry waits out the cadence measured from the last successful
start.

A panic inside any hook is recovered, reported to the configured zerolog
logger and PanicHandler, and swallowed; it never terminates the run or
propagates out of Start. A panic inside the task is converted to an error
and routed to OnTaskError like any other task failure.

Cron Pacing:

NewCron builds a runner with identical lifecycle and hooks but paced by a
cron schedule instead of a fixed interval:

	r, err := runner.NewCron("0 30 * * * *", task) // half past every hour

Metrics:

NewWithMetrics instruments a runner with Prometheus metrics (execution
counts, failures, immediate retries, wait and execution durations) by
chaining metric updates in front of the configured hooks.

Concurrency:

A runner's loop is a single logical thread of control; no two phases ever
execute concurrently. Stop, SetInterval, the accessors and the hook
setters are safe to call from other goroutines at any time.
*/
package runner
