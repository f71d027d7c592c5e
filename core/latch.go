package core

import (
	"fmt"
	"sync"
	"time"
)

// WaitResult reports why a DeadlineLatch wait returned.
type WaitResult int

const (
	// WaitTimedOut: the deadline elapsed while the latch was armed.
	WaitTimedOut WaitResult = iota

	// WaitSignaled: the latch was released before or during the wait.
	WaitSignaled
)

func (r WaitResult) String() string {
	switch r {
	case WaitTimedOut:
		return "timed-out"
	case WaitSignaled:
		return "signaled"
	default:
		return fmt.Sprintf("WaitResult(%d)", int(r))
	}
}

// DeadlineLatch is a binary latch a single consumer goroutine can sleep on
// until either a deadline passes or a producer releases it.
//
// The latch is either armed (waits block) or released (waits return
// WaitSignaled immediately). A release is sticky: it stays in effect until the
// consumer calls Rearm, so a release that happens before the consumer starts
// waiting is never lost.
//
// The zero value is an armed latch ready for use.
type DeadlineLatch struct {
	mu       sync.Mutex
	ch       chan struct{} // closed while released
	released bool
}

// NewDeadlineLatch creates an armed latch.
func NewDeadlineLatch() *DeadlineLatch {
	return &DeadlineLatch{ch: make(chan struct{})}
}

func (l *DeadlineLatch) channel() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ch == nil {
		l.ch = make(chan struct{})
	}
	return l.ch
}

// Release wakes the current or next waiter. Releasing an already released
// latch is a no-op.
func (l *DeadlineLatch) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.released {
		return
	}
	if l.ch == nil {
		l.ch = make(chan struct{})
	}
	l.released = true
	close(l.ch)
}

// Rearm moves a released latch back to the armed state and reports whether it
// was released. Only the consumer should call Rearm.
func (l *DeadlineLatch) Rearm() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.released {
		return false
	}
	l.released = false
	l.ch = make(chan struct{})
	return true
}

// WaitUntil blocks until deadline or until the latch is released, whichever
// comes first. A released latch wins over an already expired deadline.
func (l *DeadlineLatch) WaitUntil(deadline time.Time) WaitResult {
	ch := l.channel()

	select {
	case <-ch:
		return WaitSignaled
	default:
	}

	d := time.Until(deadline)
	if d <= 0 {
		return WaitTimedOut
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ch:
		return WaitSignaled
	case <-timer.C:
		return WaitTimedOut
	}
}

// Wait blocks until the latch is released.
func (l *DeadlineLatch) Wait() {
	<-l.channel()
}
