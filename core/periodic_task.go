package core

import (
	"fmt"
	"runtime/debug"
	"sync"
	"time"
)

// PeriodicTask binds a dedicated goroutine that invokes a routine on a fixed
// cadence until Stop is called.
//
// The period is the distance between invocation starts, not the pause between
// invocations. The routine never runs concurrently with itself.
//
// Use cases:
// 1. Heartbeats and keep-alives
// 2. Cache refresh / polling loops that must be paused during maintenance
// 3. Sampling loops whose rate is tuned at runtime
//
// Lifecycle:
//   - Running and Paused may alternate any number of times.
//   - Stop moves the task to Exiting, wakes the worker from whichever wait it is
//     in and blocks until the worker has returned (Terminated). An invocation
//     already in flight runs to completion first; an idle wait is cut short.
//
// Cancellation only ever interrupts waits, never the routine. A routine that
// never returns makes Pause and Stop block forever. For the same reason,
// calling Pause or Stop from inside the routine deadlocks.
//
// A PeriodicTask created without a routine (NewEmpty, New with a nil routine,
// or the zero value) owns no goroutine and every operation on it is a no-op.
//
// All methods are safe for concurrent use, but the pause/resume protocol
// assumes a single owner goroutine drives it.
type PeriodicTask struct {
	name    string
	routine func() error
	logger  Logger
	metrics Metrics
	history *executionHistory

	wake   *DeadlineLatch // released by Pause and Stop
	resume *DeadlineLatch // released by Resume and Stop

	done     chan struct{} // closed when the worker returns
	stopOnce sync.Once

	// Checkpoint lock: the worker only reads these between invocations.
	mu            sync.Mutex
	state         State
	period        time.Duration
	catchUp       bool
	onError       ErrorCallback
	resetOnResume bool
	pauseAck      chan struct{}

	// Stats, guarded by mu
	running      bool
	invocations  uint64
	failures     uint64
	droppedTicks uint64
	lastStarted  time.Time
	lastFinished time.Time
	lastError    string
}

// NewEmpty returns a task with no routine. Every operation on it is a no-op.
func NewEmpty() *PeriodicTask {
	return &PeriodicTask{}
}

// New creates a PeriodicTask and starts its worker goroutine.
//
// Unless WithStartPaused is given, the first invocation happens immediately.
// A nil routine yields an empty task. New panics if period <= 0.
//
// A panic inside routine is recovered and reported to the error callback; the
// schedule continues.
func New(period time.Duration, routine Routine, opts ...Option) *PeriodicTask {
	if routine == nil {
		return NewEmpty()
	}
	return newPeriodicTask(period, func() error {
		routine()
		return nil
	}, opts)
}

// NewWithError is like New for routines that report failures by returning a
// non-nil error. Returned errors go to the error callback exactly like panics.
func NewWithError(period time.Duration, routine func() error, opts ...Option) *PeriodicTask {
	if routine == nil {
		return NewEmpty()
	}
	return newPeriodicTask(period, routine, opts)
}

func newPeriodicTask(period time.Duration, routine func() error, opts []Option) *PeriodicTask {
	if period <= 0 {
		panic(fmt.Sprintf("periodic: period=%s is invalid (must be > 0)", period))
	}

	c := defaultTaskConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	if c.logger == nil {
		c.logger = NewDefaultLogger()
	}
	if c.metrics == nil {
		c.metrics = &NilMetrics{}
	}

	t := &PeriodicTask{
		name:    c.name,
		routine: routine,
		logger:  c.logger,
		metrics: c.metrics,
		history: newExecutionHistory(c.historyCapacity),
		wake:    NewDeadlineLatch(),
		resume:  NewDeadlineLatch(),
		done:    make(chan struct{}),
		state:   StateRunning,
		period:  period,
		catchUp: c.catchUp,
		onError: c.onError,
	}
	if c.startPaused {
		t.state = StatePaused
	}

	// Start the dedicated worker
	go t.run(c.startPaused)

	return t
}

func (t *PeriodicTask) isEmpty() bool {
	return t == nil || t.routine == nil
}

// Name returns the task name.
func (t *PeriodicTask) Name() string {
	if t == nil {
		return ""
	}
	return t.name
}

// State returns the current lifecycle state.
func (t *PeriodicTask) State() State {
	if t.isEmpty() {
		return StateEmpty
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Done returns a channel closed once the worker goroutine has returned.
// For an empty task the channel is already closed.
func (t *PeriodicTask) Done() <-chan struct{} {
	if t.isEmpty() {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return t.done
}

// Pause stops further invocations and returns once the worker is parked.
// If an invocation is in flight, Pause waits for it to finish.
//
// resetTime selects what Resume does with the schedule:
//   - true: the next invocation happens one full period after Resume.
//   - false: the wait that was left when the worker parked is preserved and
//     continues after Resume.
//
// Returns ErrAlreadyPaused if the task is paused and ErrStopped after Stop,
// including when Stop lands while Pause is waiting for the worker.
func (t *PeriodicTask) Pause(resetTime bool) error {
	if t.isEmpty() {
		return nil
	}

	t.mu.Lock()
	switch t.state {
	case StatePaused:
		t.mu.Unlock()
		return ErrAlreadyPaused
	case StateExiting, StateTerminated:
		t.mu.Unlock()
		return ErrStopped
	}
	t.state = StatePaused
	t.resetOnResume = resetTime
	ack := make(chan struct{})
	t.pauseAck = ack
	t.wake.Release()
	t.mu.Unlock()

	// Barrier: wait until the worker has observed the pause.
	select {
	case <-ack:
	case <-t.done:
	}

	t.mu.Lock()
	stopped := t.state == StateExiting || t.state == StateTerminated
	t.mu.Unlock()
	if stopped {
		return ErrStopped
	}

	t.metrics.RecordStateChange(t.name, StatePaused)
	t.logger.Debug("periodic task paused", F("task", t.name), F("reset_time", resetTime))
	return nil
}

// Resume lifts a pause. It does not wait for the worker.
//
// Returns ErrNotPaused if the task is not paused and ErrStopped after Stop.
func (t *PeriodicTask) Resume() error {
	if t.isEmpty() {
		return nil
	}

	t.mu.Lock()
	switch t.state {
	case StateRunning:
		t.mu.Unlock()
		return ErrNotPaused
	case StateExiting, StateTerminated:
		t.mu.Unlock()
		return ErrStopped
	}
	t.state = StateRunning
	t.resume.Release()
	t.mu.Unlock()

	t.metrics.RecordStateChange(t.name, StateRunning)
	t.logger.Debug("periodic task resumed", F("task", t.name))
	return nil
}

// SetPeriod changes the cadence. The wait already in progress is not affected;
// the new period applies from the next scheduled deadline onward.
func (t *PeriodicTask) SetPeriod(period time.Duration) error {
	if t.isEmpty() {
		return nil
	}
	if period <= 0 {
		return fmt.Errorf("set period %s: %w", period, ErrInvalidPeriod)
	}

	t.mu.Lock()
	t.period = period
	t.mu.Unlock()
	return nil
}

// Period returns the current cadence.
func (t *PeriodicTask) Period() time.Duration {
	if t.isEmpty() {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.period
}

// SetCatchUp switches the scheduling policy for deadlines computed from now on.
//
// With catch-up enabled the next deadline is the previous deadline plus one
// period, so an overrunning routine is followed by back-to-back invocations
// until the schedule is back on time. With catch-up disabled the next deadline
// is one period after the routine returned, and missed ticks are dropped.
func (t *PeriodicTask) SetCatchUp(enabled bool) {
	if t.isEmpty() {
		return
	}
	t.mu.Lock()
	t.catchUp = enabled
	t.mu.Unlock()
}

// SetErrorCallback replaces the callback receiving routine failures. A nil
// callback restores the default, which logs the failure and continues.
//
// The callback is only ever called from the worker goroutine and is read under
// the same lock that orders it with an in-flight invocation, so replacing it
// at any time is safe.
func (t *PeriodicTask) SetErrorCallback(cb ErrorCallback) {
	if t.isEmpty() {
		return
	}
	t.mu.Lock()
	t.onError = cb
	t.mu.Unlock()
}

// Stop requests the worker to exit and waits until it has. It never waits out
// an idle period, but it does wait for an invocation in flight.
// Stop is idempotent and safe to call from any state.
func (t *PeriodicTask) Stop() {
	if t.isEmpty() {
		return
	}

	t.stopOnce.Do(func() {
		t.metrics.RecordStateChange(t.name, StateExiting)

		t.mu.Lock()
		t.state = StateExiting
		// Wake the worker from whichever wait it is in.
		t.wake.Release()
		t.resume.Release()
		t.mu.Unlock()
	})

	<-t.done
}

// Close implements io.Closer. It is equivalent to Stop and always returns nil.
func (t *PeriodicTask) Close() error {
	t.Stop()
	return nil
}

// Stats returns a snapshot of the task's counters and state.
func (t *PeriodicTask) Stats() TaskStats {
	if t.isEmpty() {
		return TaskStats{Name: t.Name(), State: StateEmpty}
	}

	var lastRun RunID
	if last, ok := t.history.Last(); ok {
		lastRun = last.RunID
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	return TaskStats{
		Name:         t.name,
		State:        t.state,
		Period:       t.period,
		CatchUp:      t.catchUp,
		Running:      t.running,
		Invocations:  t.invocations,
		Failures:     t.failures,
		DroppedTicks: t.droppedTicks,
		LastStarted:  t.lastStarted,
		LastFinished: t.lastFinished,
		LastError:    t.lastError,
		LastRunID:    lastRun,
	}
}

// History returns up to limit invocation records, newest first.
// limit <= 0 returns everything retained.
func (t *PeriodicTask) History(limit int) []InvocationRecord {
	if t.isEmpty() {
		return nil
	}
	return t.history.Recent(limit)
}

// =============================================================================
// Worker
// =============================================================================

// run is the worker loop; it occupies the task's dedicated goroutine.
// The next deadline lives only here.
func (t *PeriodicTask) run(startPaused bool) {
	defer close(t.done)
	defer t.markTerminated()

	next := time.Now()
	if startPaused {
		var ok bool
		if next, ok = t.park(next); !ok {
			return
		}
	}

	for {
		if t.wake.WaitUntil(next) == WaitSignaled {
			t.wake.Rearm()

			var ok bool
			if next, ok = t.handleSignal(next); !ok {
				return
			}
			continue
		}

		next = t.tick(next)
	}
}

// handleSignal reacts to a released wake latch. It reports false when the
// worker must exit.
func (t *PeriodicTask) handleSignal(next time.Time) (time.Time, bool) {
	t.mu.Lock()
	state := t.state
	ack := t.pauseAck
	t.pauseAck = nil
	t.mu.Unlock()

	if ack != nil {
		close(ack)
	}

	switch state {
	case StateExiting:
		return next, false
	case StatePaused:
		return t.park(next)
	default:
		// Woken without a pending request; keep the schedule.
		return next, true
	}
}

// park blocks the worker until Resume or Stop and returns the deadline to use
// after resuming.
func (t *PeriodicTask) park(next time.Time) (time.Time, bool) {
	// Negative when catch-up ticks were already due; they stay due.
	remaining := time.Until(next)

	t.resume.Wait()
	t.resume.Rearm()

	t.mu.Lock()
	state := t.state
	reset := false
	if state == StateRunning {
		// Paused again before we got here: leave resetOnResume to that pause.
		reset = t.resetOnResume
		t.resetOnResume = false
	}
	period := t.period
	t.mu.Unlock()

	if state == StateExiting {
		return next, false
	}

	now := time.Now()
	if reset {
		return now.Add(period), true
	}
	return now.Add(remaining), true
}

// tick runs one scheduled invocation and returns the following deadline.
func (t *PeriodicTask) tick(scheduled time.Time) time.Time {
	t.mu.Lock()
	if t.state != StateRunning {
		// A pause or stop landed right at the deadline. The wake latch was
		// released together with the state change, so the next wait returns
		// immediately.
		t.mu.Unlock()
		return scheduled
	}
	startedAt := time.Now()
	t.running = true
	t.lastStarted = startedAt
	t.mu.Unlock()

	panicked, err := t.invoke()

	finishedAt := time.Now()
	duration := finishedAt.Sub(startedAt)

	record := InvocationRecord{
		RunID:       NewRunID(),
		TaskName:    t.name,
		ScheduledAt: scheduled,
		StartedAt:   startedAt,
		FinishedAt:  finishedAt,
		Duration:    duration,
		Panicked:    panicked,
	}
	if err != nil {
		record.Err = err.Error()
	}
	t.history.Add(record)
	t.metrics.RecordInvocation(t.name, duration)

	t.mu.Lock()
	t.running = false
	t.invocations++
	t.lastFinished = finishedAt
	if err != nil {
		t.failures++
		t.lastError = err.Error()
	}
	period := t.period
	catchUp := t.catchUp
	onError := t.onError
	t.mu.Unlock()

	if err != nil {
		t.metrics.RecordFailure(t.name, panicked)
		t.reportError(onError, err)
	}

	if catchUp {
		return scheduled.Add(period)
	}

	if dropped := int(finishedAt.Sub(scheduled) / period); dropped > 0 {
		t.mu.Lock()
		t.droppedTicks += uint64(dropped)
		t.mu.Unlock()
		t.metrics.RecordDroppedTicks(t.name, dropped)
	}
	return finishedAt.Add(period)
}

// invoke calls the routine, converting a panic into an error.
func (t *PeriodicTask) invoke() (panicked bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			stack := debug.Stack()
			t.logger.Debug("periodic task routine panicked",
				F("task", t.name), F("panic", rec), F("stack", string(stack)))
			err = failureFromPanic(rec, stack)
			panicked = true
		}
	}()

	return false, t.routine()
}

func (t *PeriodicTask) reportError(cb ErrorCallback, err error) {
	if cb == nil {
		t.logger.Error("periodic task routine failed", F("task", t.name), F("error", err))
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			t.logger.Error("periodic task error callback panicked",
				F("task", t.name), F("panic", rec), F("error", err))
		}
	}()
	cb(err)
}

func (t *PeriodicTask) markTerminated() {
	t.mu.Lock()
	t.state = StateTerminated
	t.pauseAck = nil
	t.mu.Unlock()

	t.metrics.RecordStateChange(t.name, StateTerminated)
	t.logger.Debug("periodic task terminated", F("task", t.name))
}
