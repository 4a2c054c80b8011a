/*
Package pacing provides execution-pacing primitives for Go applications.

  - runner: repeating-task runner with a minimum spacing between the
    starts of consecutive executions, lifecycle hooks, and an
    error-driven immediate-retry policy

The runner is deliberately single-flight: it never queues work or
overlaps executions. For concurrent task processing, pair it with a
worker pool of your choosing.
*/
package pacing
