package runner

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	gperrors "github.com/vnykmshr/gopace/pkg/common/errors"
	"github.com/vnykmshr/gopace/pkg/common/validation"
)

// Task represents the unit of work driven by a Runner.
type Task interface {
	// Execute runs the task with the given context.
	// It should respect context cancellation and return any error encountered.
	Execute(ctx context.Context) error
}

// TaskFunc is a function type that implements the Task interface.
type TaskFunc func(ctx context.Context) error

// Execute implements the Task interface for TaskFunc.
func (f TaskFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

// Clock provides the current time. It can be mocked for testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system time.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// State identifies the runner's position in its execution state machine.
type State int32

const (
	// StateIdle means no run loop is active.
	StateIdle State = iota
	// StateStarted means the loop is active and between phases.
	StateStarted
	// StateWaiting means the loop is waiting out the remainder of the interval.
	StateWaiting
	// StateExecuting means the task is being executed.
	StateExecuting
	// StateStopping means a stop has been requested and the loop has not yet exited.
	StateStopping
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarted:
		return "started"
	case StateWaiting:
		return "waiting"
	case StateExecuting:
		return "executing"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Runner repeatedly executes a task while guaranteeing a minimum elapsed
// time between the starts of consecutive executions, regardless of how
// long each execution takes.
type Runner interface {
	// Start drives the run loop and blocks until the runner stops.
	// If the runner is already running, Start returns immediately with
	// no side effects. Task and hook failures never propagate out of
	// Start; the loop ends via Stop, a stop decision made inside a task
	// or hook, or context cancellation.
	Start(ctx context.Context)

	// Stop requests termination. It does not block; the loop exits at
	// the next stop-check point. Calling Stop multiple times before the
	// request is consumed has the same effect as calling it once. Stop
	// is a no-op when the runner is not running.
	Stop()

	// Interval returns the minimum spacing between execution starts.
	Interval() time.Duration

	// SetInterval changes the minimum spacing between execution starts.
	// Negative values are rejected with a validation error. An in-progress
	// wait is unaffected; only future wait computations use the new value.
	SetInterval(d time.Duration) error

	// Running reports whether a run loop is currently active.
	Running() bool

	// Stopping reports whether a stop has been requested but the loop
	// has not yet exited.
	Stopping() bool

	// State returns the runner's current position in the state machine.
	State() State

	// Hook setters. Hooks may be replaced at any time, including from
	// within a running loop; each phase boundary reads the current value.
	SetOnStart(fn func())
	SetOnBeforeWaiting(fn func(remaining time.Duration))
	SetOnAfterWaiting(fn func())
	SetOnBeforeExecuting(fn func())
	SetOnAfterExecuting(fn func())
	SetOnTaskError(fn func(err error) bool)
	SetOnStop(fn func())
}

// Config holds configuration options for creating a Runner.
type Config struct {
	// Interval is the minimum spacing between execution starts.
	// Zero means back-to-back execution. Must not be negative.
	Interval time.Duration

	// Task is the unit of work. Required; fixed for the runner's lifetime.
	Task Task

	// Clock provides the current time. If nil, SystemClock is used.
	Clock Clock

	// Logger receives diagnostic events such as recovered hook panics.
	// If nil, logging is disabled.
	Logger *zerolog.Logger

	// PanicHandler is called after a lifecycle hook panic has been
	// recovered. Hook panics never abort the loop; this is purely a
	// diagnostic observer.
	PanicHandler func(hook string, recovered interface{})

	// OnStart fires exactly once when the loop starts, even if the task
	// never executes.
	OnStart func()

	// OnBeforeWaiting fires before each wait, receiving the computed
	// wait duration.
	OnBeforeWaiting func(remaining time.Duration)

	// OnAfterWaiting fires after each completed wait.
	OnAfterWaiting func()

	// OnBeforeExecuting fires before each task invocation attempt,
	// including immediate retries.
	OnBeforeExecuting func()

	// OnAfterExecuting fires after each successful task invocation.
	OnAfterExecuting func()

	// OnTaskError fires when the task fails. Returning true requests an
	// immediate retry with no wait. If absent or panicking, the failed
	// cycle completes and the next execution waits out the normal
	// interval measured from the last successful start.
	OnTaskError func(err error) bool

	// OnStop fires exactly once when the loop exits, even if the task
	// never executed.
	OnStop func()
}

// hooks is the mutable observer set, guarded by the runner mutex.
type hooks struct {
	onStart           func()
	onBeforeWaiting   func(time.Duration)
	onAfterWaiting    func()
	onBeforeExecuting func()
	onAfterExecuting  func()
	onTaskError       func(error) bool
	onStop            func()
}

// runner implements the Runner interface.
type runner struct {
	task   Task
	clock  Clock
	logger zerolog.Logger

	panicHandler func(hook string, recovered interface{})

	// schedule paces the runner from a cron expression instead of a
	// fixed interval. Nil for interval pacing.
	schedule cron.Schedule

	mu            sync.Mutex
	interval      time.Duration
	state         State
	stopRequested bool
	stopSignaled  bool
	stopCh        chan struct{}
	lastStart     time.Time
	hooks         hooks
}

// New creates a runner that executes task with at least interval between
// the starts of consecutive executions.
func New(interval time.Duration, task Task) (Runner, error) {
	return NewWithConfig(Config{Interval: interval, Task: task})
}

// NewWithConfig creates a runner with custom configuration.
func NewWithConfig(cfg Config) (Runner, error) {
	return newRunner(cfg, nil)
}

func newRunner(cfg Config, schedule cron.Schedule) (*runner, error) {
	if err := validation.ValidateNonNegativeDuration("runner", "interval", cfg.Interval); err != nil {
		return nil, err
	}
	if cfg.Task == nil {
		return nil, gperrors.NewValidationError("runner", "task", nil, "cannot be nil").
			WithHint("provide a Task or TaskFunc")
	}

	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock{}
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &runner{
		task:         cfg.Task,
		clock:        clock,
		logger:       logger,
		panicHandler: cfg.PanicHandler,
		schedule:     schedule,
		interval:     cfg.Interval,
		state:        StateIdle,
		hooks: hooks{
			onStart:           cfg.OnStart,
			onBeforeWaiting:   cfg.OnBeforeWaiting,
			onAfterWaiting:    cfg.OnAfterWaiting,
			onBeforeExecuting: cfg.OnBeforeExecuting,
			onAfterExecuting:  cfg.OnAfterExecuting,
			onTaskError:       cfg.OnTaskError,
			onStop:            cfg.OnStop,
		},
	}, nil
}

// Interval returns the minimum spacing between execution starts.
func (r *runner) Interval() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.interval
}

// SetInterval changes the minimum spacing between execution starts.
func (r *runner) SetInterval(d time.Duration) error {
	if err := validation.ValidateNonNegativeDuration("runner", "interval", d); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.interval = d
	return nil
}

// Running reports whether a run loop is currently active.
func (r *runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state != StateIdle
}

// Stopping reports whether a stop has been requested but not yet consumed.
func (r *runner) Stopping() bool {
	return r.State() == StateStopping
}

// State returns the runner's current position in the state machine. A
// pending stop request masks the loop position as StateStopping.
func (r *runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateIdle && r.stopRequested {
		return StateStopping
	}
	return r.state
}

func (r *runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

func (r *runner) SetOnStart(fn func()) {
	r.mu.Lock()
	r.hooks.onStart = fn
	r.mu.Unlock()
}

func (r *runner) SetOnBeforeWaiting(fn func(time.Duration)) {
	r.mu.Lock()
	r.hooks.onBeforeWaiting = fn
	r.mu.Unlock()
}

func (r *runner) SetOnAfterWaiting(fn func()) {
	r.mu.Lock()
	r.hooks.onAfterWaiting = fn
	r.mu.Unlock()
}

func (r *runner) SetOnBeforeExecuting(fn func()) {
	r.mu.Lock()
	r.hooks.onBeforeExecuting = fn
	r.mu.Unlock()
}

func (r *runner) SetOnAfterExecuting(fn func()) {
	r.mu.Lock()
	r.hooks.onAfterExecuting = fn
	r.mu.Unlock()
}

func (r *runner) SetOnTaskError(fn func(error) bool) {
	r.mu.Lock()
	r.hooks.onTaskError = fn
	r.mu.Unlock()
}

func (r *runner) SetOnStop(fn func()) {
	r.mu.Lock()
	r.hooks.onStop = fn
	r.mu.Unlock()
}

// nextWaitLocked computes how long the next cycle must wait before the
// task may start. Callers must hold r.mu.
func (r *runner) nextWaitLocked(now time.Time) time.Duration {
	if r.schedule != nil {
		return r.schedule.Next(now).Sub(now)
	}
	if r.lastStart.IsZero() {
		// Fresh baseline: the first execution is never delayed.
		return 0
	}
	elapsed := now.Sub(r.lastStart)
	if elapsed >= r.interval {
		return 0
	}
	return r.interval - elapsed
}
