package core

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// invocationRecorder collects routine start times from the worker goroutine.
type invocationRecorder struct {
	mu     sync.Mutex
	starts []time.Time
}

func (r *invocationRecorder) mark() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts = append(r.starts, time.Now())
}

func (r *invocationRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.starts)
}

func (r *invocationRecorder) snapshot() []time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]time.Time, len(r.starts))
	copy(out, r.starts)
	return out
}

func quiet() Option {
	return WithLogger(NewNoOpLogger())
}

// =============================================================================
// Empty task
// =============================================================================

// TestPeriodicTask_EmptyIsNoOp verifies a task without a routine
// Given: Tasks built by NewEmpty, New(nil) and the zero value
// When: Every public operation is called
// Then: Nothing fails, nothing blocks and the state stays Empty
func TestPeriodicTask_EmptyIsNoOp(t *testing.T) {
	tasks := map[string]*PeriodicTask{
		"NewEmpty":   NewEmpty(),
		"New(nil)":   New(time.Second, nil),
		"zero value": {},
	}

	for name, task := range tasks {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, task.Pause(true))
			assert.NoError(t, task.Pause(false))
			assert.NoError(t, task.Resume())
			assert.NoError(t, task.SetPeriod(-1))
			task.SetCatchUp(false)
			task.SetErrorCallback(func(error) {})
			task.Stop()
			assert.NoError(t, task.Close())

			assert.Equal(t, StateEmpty, task.State())
			assert.Equal(t, StateEmpty, task.Stats().State)
			assert.Nil(t, task.History(0))
			assert.Zero(t, task.Period())

			select {
			case <-task.Done():
			default:
				t.Fatal("Done() of an empty task must be closed")
			}
		})
	}
}

func TestPeriodicTask_NewPanicsOnInvalidPeriod(t *testing.T) {
	assert.Panics(t, func() { New(0, func() {}) })
	assert.Panics(t, func() { NewWithError(-time.Second, func() error { return nil }) })
}

// =============================================================================
// Cadence and catch-up
// =============================================================================

// TestPeriodicTask_InvocationCountMatchesCadence verifies the nominal cadence
// Given: A 40ms period and a trivial routine
// When: The task runs for 410ms
// Then: The routine ran about 410/40 times (leading edge included)
func TestPeriodicTask_InvocationCountMatchesCadence(t *testing.T) {
	var count atomic.Int32

	task := New(40*time.Millisecond, func() { count.Add(1) }, quiet())
	time.Sleep(410 * time.Millisecond)
	task.Stop()

	got := int(count.Load())
	assert.GreaterOrEqual(t, got, 9)
	assert.LessOrEqual(t, got, 12)
}

// TestPeriodicTask_CatchUpKeepsCadenceDespiteRoutineLatency verifies the period
// is measured between starts, not between the end of one run and the next
// Given: A 50ms period and a routine taking 30ms
// When: The task runs for 500ms
// Then: The invocation count still follows the 50ms cadence
func TestPeriodicTask_CatchUpKeepsCadenceDespiteRoutineLatency(t *testing.T) {
	var count atomic.Int32

	task := New(50*time.Millisecond, func() {
		count.Add(1)
		time.Sleep(30 * time.Millisecond)
	}, quiet())
	time.Sleep(500 * time.Millisecond)
	task.Stop()

	got := int(count.Load())
	assert.GreaterOrEqual(t, got, 9)
	assert.LessOrEqual(t, got, 12)
}

// TestPeriodicTask_CatchUpFiresBackToBack verifies catch-up after an overrun
// Given: A 50ms period and a first invocation that takes 175ms
// When: The routine returns
// Then: The missed ticks fire back-to-back without waiting
func TestPeriodicTask_CatchUpFiresBackToBack(t *testing.T) {
	rec := &invocationRecorder{}
	var calls atomic.Int32

	task := New(50*time.Millisecond, func() {
		rec.mark()
		if calls.Add(1) == 1 {
			time.Sleep(175 * time.Millisecond)
		}
	}, quiet())
	time.Sleep(400 * time.Millisecond)
	task.Stop()

	starts := rec.snapshot()
	require.GreaterOrEqual(t, len(starts), 5)

	// Deadlines 50, 100 and 150 were all missed while the first run was busy.
	assert.Less(t, starts[2].Sub(starts[1]), 20*time.Millisecond)
	assert.Less(t, starts[3].Sub(starts[2]), 20*time.Millisecond)

	assert.GreaterOrEqual(t, len(starts), 7)
	assert.LessOrEqual(t, len(starts), 10)
}

// TestPeriodicTask_NoCatchUpDropsTicks verifies the reset-to-now policy
// Given: Catch-up disabled, a 50ms period and a routine taking 80ms
// When: The task runs for 600ms
// Then: Starts are always at least one period apart and dropped ticks are counted
func TestPeriodicTask_NoCatchUpDropsTicks(t *testing.T) {
	const period = 50 * time.Millisecond
	rec := &invocationRecorder{}

	task := New(period, func() {
		rec.mark()
		time.Sleep(80 * time.Millisecond)
	}, WithCatchUp(false), quiet())
	time.Sleep(600 * time.Millisecond)
	task.Stop()

	starts := rec.snapshot()
	require.GreaterOrEqual(t, len(starts), 3)
	for i := 1; i < len(starts); i++ {
		gap := starts[i].Sub(starts[i-1])
		assert.GreaterOrEqual(t, gap, period, "gap #%d", i)
	}

	stats := task.Stats()
	assert.False(t, stats.CatchUp)
	assert.GreaterOrEqual(t, stats.DroppedTicks, uint64(len(starts)-1))
}

// TestPeriodicTask_SetCatchUpIsProspective verifies toggling the policy live
func TestPeriodicTask_SetCatchUpIsProspective(t *testing.T) {
	task := New(time.Hour, func() {}, quiet())
	defer task.Stop()

	assert.True(t, task.Stats().CatchUp)
	task.SetCatchUp(false)
	assert.False(t, task.Stats().CatchUp)
	task.SetCatchUp(true)
	assert.True(t, task.Stats().CatchUp)
}

// TestPeriodicTask_SetPeriodAppliesFromNextDeadline verifies live cadence change
// Given: A 300ms period
// When: The period is changed to 50ms 50ms after start
// Then: The pending 300ms wait is kept, later waits use 50ms
func TestPeriodicTask_SetPeriodAppliesFromNextDeadline(t *testing.T) {
	rec := &invocationRecorder{}

	task := New(300*time.Millisecond, rec.mark, quiet())
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, task.SetPeriod(50*time.Millisecond))
	assert.Equal(t, 50*time.Millisecond, task.Period())

	time.Sleep(420 * time.Millisecond)
	task.Stop()

	starts := rec.snapshot()
	require.GreaterOrEqual(t, len(starts), 3)
	assert.GreaterOrEqual(t, starts[1].Sub(starts[0]), 280*time.Millisecond)
	assert.Less(t, starts[2].Sub(starts[1]), 120*time.Millisecond)
}

func TestPeriodicTask_SetPeriodRejectsNonPositive(t *testing.T) {
	task := New(time.Hour, func() {}, quiet())
	defer task.Stop()

	err := task.SetPeriod(0)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
	assert.Equal(t, time.Hour, task.Period())
}

// =============================================================================
// Pause / Resume
// =============================================================================

// TestPeriodicTask_PauseWaitsForInFlightInvocation verifies Pause is a barrier
// Given: A routine taking 100ms that is currently running
// When: Pause is called
// Then: Pause returns only after the routine finished and nothing runs afterwards
func TestPeriodicTask_PauseWaitsForInFlightInvocation(t *testing.T) {
	var inFlight atomic.Bool
	var count atomic.Int32

	task := New(30*time.Millisecond, func() {
		inFlight.Store(true)
		time.Sleep(100 * time.Millisecond)
		count.Add(1)
		inFlight.Store(false)
	}, quiet())
	defer task.Stop()

	time.Sleep(20 * time.Millisecond)
	require.True(t, inFlight.Load(), "first invocation should be running")

	require.NoError(t, task.Pause(true))
	assert.False(t, inFlight.Load())
	assert.Equal(t, StatePaused, task.State())

	afterPause := count.Load()
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, afterPause, count.Load(), "no invocation while paused")
}

// TestPeriodicTask_PauseKeepsRemainingWait verifies Pause(false)
// Given: A 200ms period, paused 50ms into the first wait
// When: The task is resumed 300ms later
// Then: The next invocation happens after the ~150ms that were left
func TestPeriodicTask_PauseKeepsRemainingWait(t *testing.T) {
	rec := &invocationRecorder{}

	task := New(200*time.Millisecond, rec.mark, quiet())
	defer task.Stop()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, task.Pause(false))
	time.Sleep(300 * time.Millisecond)
	require.Equal(t, 1, rec.count())

	resumedAt := time.Now()
	require.NoError(t, task.Resume())
	time.Sleep(260 * time.Millisecond)

	starts := rec.snapshot()
	require.GreaterOrEqual(t, len(starts), 2)
	wait := starts[1].Sub(resumedAt)
	assert.GreaterOrEqual(t, wait, 110*time.Millisecond)
	assert.Less(t, wait, 230*time.Millisecond)
}

// TestPeriodicTask_PauseResetsSchedule verifies Pause(true)
// Given: A 200ms period, paused 50ms into the first wait
// When: The task is resumed
// Then: The next invocation happens one full period after Resume
func TestPeriodicTask_PauseResetsSchedule(t *testing.T) {
	rec := &invocationRecorder{}

	task := New(200*time.Millisecond, rec.mark, quiet())
	defer task.Stop()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, task.Pause(true))
	time.Sleep(100 * time.Millisecond)

	resumedAt := time.Now()
	require.NoError(t, task.Resume())
	time.Sleep(320 * time.Millisecond)

	starts := rec.snapshot()
	require.GreaterOrEqual(t, len(starts), 2)
	wait := starts[1].Sub(resumedAt)
	assert.GreaterOrEqual(t, wait, 190*time.Millisecond)
	assert.Less(t, wait, 300*time.Millisecond)
}

// TestPeriodicTask_QuickPauseResumeLosesNothing verifies pause(false)+resume
// Given: A 100ms period
// When: The task is paused and resumed back-to-back several times
// Then: The invocation count over 550ms is not reduced
func TestPeriodicTask_QuickPauseResumeLosesNothing(t *testing.T) {
	var count atomic.Int32

	task := New(100*time.Millisecond, func() { count.Add(1) }, quiet())

	for i := 0; i < 5; i++ {
		time.Sleep(100 * time.Millisecond)
		require.NoError(t, task.Pause(false))
		require.NoError(t, task.Resume())
	}
	time.Sleep(50 * time.Millisecond)
	task.Stop()

	assert.GreaterOrEqual(t, int(count.Load()), 5)
}

// TestPeriodicTask_QuickPauseResumeKeepsCatchUpBacklog verifies overdue ticks survive a pause
// Given: Two catch-up tasks with a 50ms period whose first invocation takes 175ms
// When: One of them is paused(false) and resumed while that invocation runs
// Then: Both fire the same number of times over the same 280ms window
func TestPeriodicTask_QuickPauseResumeKeepsCatchUpBacklog(t *testing.T) {
	slowFirst := func(count *atomic.Int32) Routine {
		return func() {
			if count.Add(1) == 1 {
				time.Sleep(175 * time.Millisecond)
			}
		}
	}

	var plainCount, pausedCount atomic.Int32
	plain := New(50*time.Millisecond, slowFirst(&plainCount), WithCatchUp(true), quiet())
	paused := New(50*time.Millisecond, slowFirst(&pausedCount), WithCatchUp(true), quiet())

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, paused.Pause(false))
	require.NoError(t, paused.Resume())

	time.Sleep(260 * time.Millisecond)
	plain.Stop()
	paused.Stop()

	assert.GreaterOrEqual(t, int(plainCount.Load()), 5)
	assert.InDelta(t, plainCount.Load(), pausedCount.Load(), 1,
		"pause(false)+resume must not drop due ticks")
}

// TestPeriodicTask_StopDuringPauseBarrier verifies a pause overtaken by Stop
// Given: A routine blocked mid-invocation and a Pause waiting for it
// When: Stop is requested before the routine returns
// Then: Pause reports ErrStopped and no paused transition is recorded
func TestPeriodicTask_StopDuringPauseBarrier(t *testing.T) {
	metrics := NewTestMetrics()
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	task := New(time.Hour, func() {
		once.Do(func() { close(started) })
		<-release
	}, WithMetrics(metrics), quiet())

	<-started

	pauseErr := make(chan error, 1)
	go func() { pauseErr <- task.Pause(false) }()
	require.Eventually(t, func() bool { return task.State() == StatePaused }, time.Second, time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		task.Stop()
		close(stopped)
	}()
	require.Eventually(t, func() bool { return task.State() == StateExiting }, time.Second, time.Millisecond)

	close(release)
	<-stopped

	select {
	case err := <-pauseErr:
		assert.ErrorIs(t, err, ErrStopped)
	case <-time.After(time.Second):
		t.Fatal("Pause did not return after Stop")
	}
	assert.Equal(t, []State{StateExiting, StateTerminated}, metrics.States())
}

// TestPeriodicTask_UsageErrors verifies misuse is reported to the caller
func TestPeriodicTask_UsageErrors(t *testing.T) {
	var count atomic.Int32
	task := New(20*time.Millisecond, func() { count.Add(1) }, quiet())

	assert.ErrorIs(t, task.Resume(), ErrNotPaused)

	require.NoError(t, task.Pause(true))
	assert.ErrorIs(t, task.Pause(true), ErrAlreadyPaused)
	assert.ErrorIs(t, task.Pause(false), ErrAlreadyPaused)
	assert.Equal(t, StatePaused, task.State(), "usage errors leave the state alone")

	require.NoError(t, task.Resume())
	time.Sleep(60 * time.Millisecond)
	assert.Greater(t, count.Load(), int32(1), "worker keeps running after usage errors")

	task.Stop()
	assert.ErrorIs(t, task.Pause(true), ErrStopped)
	assert.ErrorIs(t, task.Resume(), ErrStopped)
}

// TestPeriodicTask_StartPaused verifies WithStartPaused
// Given: A task created paused
// When: Nothing happens for 80ms, then Resume is called
// Then: No invocation before Resume, an immediate one after
func TestPeriodicTask_StartPaused(t *testing.T) {
	var count atomic.Int32

	task := New(time.Hour, func() { count.Add(1) }, WithStartPaused(), quiet())
	defer task.Stop()

	time.Sleep(80 * time.Millisecond)
	assert.Zero(t, count.Load())
	assert.Equal(t, StatePaused, task.State())
	assert.ErrorIs(t, task.Pause(true), ErrAlreadyPaused)

	require.NoError(t, task.Resume())
	assert.Eventually(t, func() bool { return count.Load() == 1 }, time.Second, 5*time.Millisecond)
}

// =============================================================================
// Shutdown
// =============================================================================

// TestPeriodicTask_StopWaitsForInFlightInvocation verifies shutdown ordering
// Given: A routine taking 150ms that has just started
// When: Stop is called
// Then: Stop blocks until the routine returned and no further invocation happens
func TestPeriodicTask_StopWaitsForInFlightInvocation(t *testing.T) {
	var finished atomic.Bool
	var count atomic.Int32

	task := New(10*time.Millisecond, func() {
		count.Add(1)
		time.Sleep(150 * time.Millisecond)
		finished.Store(true)
	}, quiet())

	time.Sleep(30 * time.Millisecond)

	start := time.Now()
	task.Stop()

	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	assert.True(t, finished.Load())
	assert.Equal(t, StateTerminated, task.State())

	after := count.Load()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, after, count.Load())
}

// TestPeriodicTask_StopDoesNotWaitIdlePeriod verifies the wait is interrupted
func TestPeriodicTask_StopDoesNotWaitIdlePeriod(t *testing.T) {
	task := New(10*time.Second, func() {}, quiet())
	time.Sleep(20 * time.Millisecond)

	start := time.Now()
	task.Stop()

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, StateTerminated, task.State())
}

// TestPeriodicTask_StopWhilePaused verifies shutdown from the paused state
func TestPeriodicTask_StopWhilePaused(t *testing.T) {
	task := New(10*time.Millisecond, func() {}, quiet())
	require.NoError(t, task.Pause(false))

	start := time.Now()
	task.Stop()

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	select {
	case <-task.Done():
	default:
		t.Fatal("Done() not closed after Stop")
	}
}

// TestPeriodicTask_ConcurrentStop verifies Stop is idempotent under concurrency
// Given: A running task
// When: 10 goroutines call Stop concurrently, then Close is called
// Then: All calls return and the task is terminated
func TestPeriodicTask_ConcurrentStop(t *testing.T) {
	task := New(5*time.Millisecond, func() { time.Sleep(time.Millisecond) }, quiet())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task.Stop()
		}()
	}
	wg.Wait()

	assert.NoError(t, task.Close())
	assert.Equal(t, StateTerminated, task.State())
}

// =============================================================================
// Failures
// =============================================================================

// TestPeriodicTask_FailingRoutineNeverStopsSchedule verifies failure containment
// Given: A routine that panics with an error on every call
// When: The task runs for a while
// Then: The callback saw every failure verbatim and the schedule kept going
func TestPeriodicTask_FailingRoutineNeverStopsSchedule(t *testing.T) {
	boom := errors.New("boom")
	var callbacks atomic.Int32
	var wrong atomic.Int32

	task := New(20*time.Millisecond, func() {
		panic(boom)
	}, WithErrorCallback(func(err error) {
		if !errors.Is(err, boom) {
			wrong.Add(1)
		}
		callbacks.Add(1)
	}), quiet())

	time.Sleep(210 * time.Millisecond)
	task.Stop()

	stats := task.Stats()
	assert.GreaterOrEqual(t, stats.Invocations, uint64(8))
	assert.Equal(t, stats.Invocations, uint64(callbacks.Load()))
	assert.Equal(t, stats.Invocations, stats.Failures)
	assert.Equal(t, "boom", stats.LastError)
	assert.Zero(t, wrong.Load())
}

// TestPeriodicTask_NonErrorPanicIsNormalized verifies unknown failures
func TestPeriodicTask_NonErrorPanicIsNormalized(t *testing.T) {
	errCh := make(chan error, 1)

	task := New(time.Hour, func() {
		panic("not an error")
	}, WithErrorCallback(func(err error) {
		select {
		case errCh <- err:
		default:
		}
	}), quiet())
	defer task.Stop()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrUnknownFailure)
		var pe *PanicError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "not an error", pe.Value)
		assert.NotEmpty(t, pe.Stack)
	case <-time.After(time.Second):
		t.Fatal("error callback not called")
	}

	records := task.History(1)
	require.Len(t, records, 1)
	assert.True(t, records[0].Panicked)
}

// TestPeriodicTask_ReturnedErrorsAreForwarded verifies NewWithError
func TestPeriodicTask_ReturnedErrorsAreForwarded(t *testing.T) {
	sentinel := errors.New("refresh failed")
	errCh := make(chan error, 4)

	task := NewWithError(time.Hour, func() error {
		return sentinel
	}, WithErrorCallback(func(err error) { errCh <- err }), quiet())
	defer task.Stop()

	select {
	case err := <-errCh:
		assert.Same(t, sentinel, err)
	case <-time.After(time.Second):
		t.Fatal("error callback not called")
	}

	records := task.History(0)
	require.Len(t, records, 1)
	assert.False(t, records[0].Panicked)
	assert.Equal(t, "refresh failed", records[0].Err)
}

// TestPeriodicTask_SetErrorCallbackReplacesHandler verifies live replacement
// Given: A failing routine reporting to callback A
// When: The callback is replaced with B while running, then reset to nil
// Then: Later failures reach B, and the default handler does not break the loop
func TestPeriodicTask_SetErrorCallbackReplacesHandler(t *testing.T) {
	var a, b atomic.Int32

	task := New(15*time.Millisecond, func() {
		panic(errors.New("fail"))
	}, WithErrorCallback(func(error) { a.Add(1) }), quiet())
	defer task.Stop()

	require.Eventually(t, func() bool { return a.Load() > 0 }, time.Second, 5*time.Millisecond)

	task.SetErrorCallback(func(error) { b.Add(1) })
	require.Eventually(t, func() bool { return b.Load() > 0 }, time.Second, 5*time.Millisecond)

	task.SetErrorCallback(nil)
	before := task.Stats().Invocations
	assert.Eventually(t, func() bool { return task.Stats().Invocations > before+1 }, time.Second, 5*time.Millisecond)
}

// TestPeriodicTask_PanickingCallbackIsContained verifies the worker survives a bad callback
func TestPeriodicTask_PanickingCallbackIsContained(t *testing.T) {
	var calls atomic.Int32

	task := New(15*time.Millisecond, func() {
		panic(errors.New("fail"))
	}, WithErrorCallback(func(error) {
		calls.Add(1)
		panic("callback exploded")
	}), quiet())
	defer task.Stop()

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

// =============================================================================
// Observability
// =============================================================================

// TestPeriodicTask_HistoryAndStats verifies invocation records
func TestPeriodicTask_HistoryAndStats(t *testing.T) {
	task := New(10*time.Millisecond, func() {}, WithName("heartbeat"), WithHistoryCapacity(3), quiet())

	require.Eventually(t, func() bool { return task.Stats().Invocations >= 5 }, time.Second, 5*time.Millisecond)
	task.Stop()

	records := task.History(0)
	require.Len(t, records, 3, "capacity bounds the history")
	assert.True(t, records[0].StartedAt.After(records[1].StartedAt), "newest first")
	assert.NotEqual(t, records[0].RunID, records[1].RunID)
	for _, r := range records {
		assert.Equal(t, "heartbeat", r.TaskName)
		assert.Empty(t, r.Err)
		assert.False(t, r.FinishedAt.Before(r.StartedAt))
	}

	assert.Len(t, task.History(2), 2)

	stats := task.Stats()
	assert.Equal(t, "heartbeat", stats.Name)
	assert.Equal(t, StateTerminated, stats.State)
	assert.False(t, stats.Running)
	assert.Zero(t, stats.Failures)
	assert.False(t, stats.LastFinished.IsZero())
	assert.Equal(t, records[0].RunID, stats.LastRunID, "stats point at the newest record")
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "empty", StateEmpty.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "paused", StatePaused.String())
	assert.Equal(t, "exiting", StateExiting.String())
	assert.Equal(t, "terminated", StateTerminated.String())
	assert.Equal(t, "State(42)", State(42).String())
}

// =============================================================================
// Timelines
// =============================================================================

// TestPeriodicTask_PauseResumeTimeline replays the reference timeline at 1/10 scale
// Given: A 200ms period and a routine taking 100ms
// When: Run 360ms, Pause(false) for 30ms, Resume, run 430ms, Stop
// Then: Invocations at ~0ms and ~200ms, then ~40ms after Resume and one period later
func TestPeriodicTask_PauseResumeTimeline(t *testing.T) {
	rec := &invocationRecorder{}
	start := time.Now()

	task := New(200*time.Millisecond, func() {
		rec.mark()
		time.Sleep(100 * time.Millisecond)
	}, quiet())

	time.Sleep(360 * time.Millisecond)
	require.NoError(t, task.Pause(false))
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, task.Resume())
	time.Sleep(430 * time.Millisecond)
	task.Stop()

	starts := rec.snapshot()
	require.GreaterOrEqual(t, len(starts), 3)
	assert.LessOrEqual(t, len(starts), 5)

	assert.Less(t, starts[0].Sub(start), 50*time.Millisecond)
	assert.InDelta(t, 200, float64(starts[1].Sub(start).Milliseconds()), 50)
	assert.InDelta(t, 430, float64(starts[2].Sub(start).Milliseconds()), 60)
}

// TestPeriodicTask_UninterruptedTimeline replays the reference timeline at 1/10 scale
// Given: A 200ms period and a routine taking 100ms
// When: The task runs 650ms and is stopped while the 4th invocation is in flight
// Then: Four invocations started and Stop waited for the last one
func TestPeriodicTask_UninterruptedTimeline(t *testing.T) {
	var started, finished atomic.Int32

	task := New(200*time.Millisecond, func() {
		started.Add(1)
		time.Sleep(100 * time.Millisecond)
		finished.Add(1)
	}, quiet())

	time.Sleep(650 * time.Millisecond)
	task.Stop()

	assert.InDelta(t, 4, started.Load(), 1)
	assert.Equal(t, started.Load(), finished.Load(), "Stop waits for the in-flight invocation")
}
