package context

import (
	"sync"
	"time"
)

// Timer is a restartable one-shot retransmission alarm, the same
// shape as the teacher's context.NewTimer used for T3550
// (Registration Accept retransmission): it fires its handler once per
// expiry and does not re-arm itself. The retry bound (if any) is the
// caller's concern -- spec.md 4.4 keeps the authoritative retry count
// on the Attach Data Buffer rather than on the timer, so that arming
// it again to retransmit never resets a bound it doesn't track.
//
// Stop races safely with expiry: if the handler has already started
// running, Stop is a no-op; otherwise the pending tick is cancelled.
// This satisfies the Timer Controller contract in spec.md 4.2.
type Timer struct {
	mu       sync.Mutex
	timer    *time.Timer
	duration time.Duration
	onFire   func()
	stopped  bool
}

// NewTimer starts a timer that fires onFire once after duration.
func NewTimer(duration time.Duration, onFire func()) *Timer {
	t := &Timer{
		duration: duration,
		onFire:   onFire,
	}
	t.timer = time.AfterFunc(duration, t.fire)
	return t
}

func (t *Timer) fire() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	t.mu.Unlock()

	t.onFire()
}

// Stop cancels the timer. Safe to call more than once, and safe to
// race with an in-flight expiry: once fire() has passed the stopped
// check it owns the call to onFire and a concurrent Stop is a no-op,
// so a Restart made from within that onFire re-arms the timer.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
	}
}

// Restart re-arms the timer at its original duration. It carries no
// retry count of its own, so restarting to retransmit never resets
// anything: the caller's own counter (context.AttachBuffer.Retries)
// is untouched by this call (spec.md 4.4).
func (t *Timer) Restart() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.stopped = false
	t.timer = time.AfterFunc(t.duration, t.fire)
}
