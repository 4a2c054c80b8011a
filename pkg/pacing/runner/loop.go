package runner

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	gpcontext "github.com/vnykmshr/gopace/pkg/common/context"
)

// Start drives the run loop and blocks until the runner stops.
func (r *runner) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	r.mu.Lock()
	if r.state != StateIdle {
		// Re-entry guard: a second Start while running is a no-op.
		r.mu.Unlock()
		return
	}
	r.state = StateStarted
	r.stopRequested = false
	r.stopSignaled = false
	r.stopCh = make(chan struct{})
	r.lastStart = time.Time{}
	stopCh := r.stopCh
	r.mu.Unlock()

	r.logger.Debug().Msg("run loop started")
	r.callOnStart()

	// A stop requested from within OnStart skips the loop entirely.
	if !r.consumeStop(ctx) {
		r.loop(ctx, stopCh)
	}

	r.setState(StateIdle)
	r.callOnStop()
	r.logger.Debug().Msg("run loop stopped")
}

// Stop requests termination at the next stop-check point.
func (r *runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateIdle {
		return
	}
	r.stopRequested = true
	if !r.stopSignaled {
		r.stopSignaled = true
		close(r.stopCh)
	}
}

// consumeStop observes and clears a pending stop request. Context
// cancellation counts as a stop request but is not clearable.
func (r *runner) consumeStop(ctx context.Context) bool {
	if gpcontext.IsCanceled(ctx) {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopRequested {
		r.stopRequested = false
		return true
	}
	return false
}

// loop runs wait/execute cycles until a stop-check point terminates it.
func (r *runner) loop(ctx context.Context, stopCh <-chan struct{}) {
	for {
		now := r.clock.Now()
		r.mu.Lock()
		wait := r.nextWaitLocked(now)
		r.mu.Unlock()

		if wait > 0 {
			r.callOnBeforeWaiting(wait)
			if r.consumeStop(ctx) {
				return
			}

			r.setState(StateWaiting)
			completed := r.sleep(ctx, stopCh, wait)
			r.setState(StateStarted)
			if !completed {
				// Interrupted wait: the stop request terminates the
				// loop without firing OnAfterWaiting.
				r.consumeStop(ctx)
				return
			}

			r.callOnAfterWaiting()
			if r.consumeStop(ctx) {
				return
			}
		}

		if !r.executeCycle(ctx) {
			return
		}
	}
}

// executeCycle runs the execution retry sub-loop for one cycle. It
// returns false when a stop-check point terminated the loop.
func (r *runner) executeCycle(ctx context.Context) bool {
	for {
		r.callOnBeforeExecuting()
		if r.consumeStop(ctx) {
			return false
		}

		start := r.clock.Now()
		r.setState(StateExecuting)
		err := r.runTask(ctx)
		r.setState(StateStarted)

		if err == nil {
			if r.consumeStop(ctx) {
				return false
			}
			// Only a successful execution advances the interval baseline.
			r.mu.Lock()
			r.lastStart = start
			r.mu.Unlock()

			r.callOnAfterExecuting()
			return !r.consumeStop(ctx)
		}

		r.logger.Debug().Err(err).Msg("task execution failed")
		retry := r.callOnTaskError(err)
		if r.consumeStop(ctx) {
			return false
		}
		if !retry {
			// Deferred retry: the cycle completes without advancing the
			// baseline, so the next wait is measured from the last
			// successful start.
			return true
		}
	}
}

// sleep waits for d, returning false if interrupted by a stop request or
// context cancellation.
func (r *runner) sleep(ctx context.Context, stopCh <-chan struct{}, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-stopCh:
		return false
	case <-ctx.Done():
		return false
	}
}

// runTask executes the task, converting panics into errors.
func (r *runner) runTask(ctx context.Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("task panicked: %v\nStack trace:\n%s", rec, debug.Stack())
		}
	}()

	return r.task.Execute(ctx)
}

// recoverHook recovers a lifecycle hook panic, reports it, and swallows
// it. Hook failures never affect scheduling decisions.
func (r *runner) recoverHook(name string) {
	rec := recover()
	if rec == nil {
		return
	}

	r.logger.Error().
		Str("hook", name).
		Interface("panic", rec).
		Str("stack", string(debug.Stack())).
		Msg("recovered hook panic")

	if r.panicHandler != nil {
		r.panicHandler(name, rec)
	}
}

func (r *runner) callOnStart() {
	r.mu.Lock()
	fn := r.hooks.onStart
	r.mu.Unlock()
	if fn == nil {
		return
	}
	defer r.recoverHook("onStart")
	fn()
}

func (r *runner) callOnBeforeWaiting(remaining time.Duration) {
	r.mu.Lock()
	fn := r.hooks.onBeforeWaiting
	r.mu.Unlock()
	if fn == nil {
		return
	}
	defer r.recoverHook("onBeforeWaiting")
	fn(remaining)
}

func (r *runner) callOnAfterWaiting() {
	r.mu.Lock()
	fn := r.hooks.onAfterWaiting
	r.mu.Unlock()
	if fn == nil {
		return
	}
	defer r.recoverHook("onAfterWaiting")
	fn()
}

func (r *runner) callOnBeforeExecuting() {
	r.mu.Lock()
	fn := r.hooks.onBeforeExecuting
	r.mu.Unlock()
	if fn == nil {
		return
	}
	defer r.recoverHook("onBeforeExecuting")
	fn()
}

func (r *runner) callOnAfterExecuting() {
	r.mu.Lock()
	fn := r.hooks.onAfterExecuting
	r.mu.Unlock()
	if fn == nil {
		return
	}
	defer r.recoverHook("onAfterExecuting")
	fn()
}

// callOnTaskError invokes the task-error hook. An absent or panicking
// hook yields false: no immediate retry.
func (r *runner) callOnTaskError(err error) bool {
	r.mu.Lock()
	fn := r.hooks.onTaskError
	r.mu.Unlock()
	if fn == nil {
		return false
	}

	retry := false
	func() {
		defer r.recoverHook("onTaskError")
		retry = fn(err)
	}()
	return retry
}

func (r *runner) callOnStop() {
	r.mu.Lock()
	fn := r.hooks.onStop
	r.mu.Unlock()
	if fn == nil {
		return
	}
	defer r.recoverHook("onStop")
	fn()
}
