package context

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimerFiresOnce(t *testing.T) {
	var fired int32
	done := make(chan struct{})
	_ = NewTimer(5*time.Millisecond, func() {
		atomic.AddInt32(&fired, 1)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
}

func TestTimerStopPreventsExpiry(t *testing.T) {
	var fired int32
	tmr := NewTimer(5*time.Millisecond, func() {
		atomic.AddInt32(&fired, 1)
	})
	tmr.Stop()

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
}

func TestTimerRestartFiresAgainWithoutResettingCallerState(t *testing.T) {
	var retries int32
	done := make(chan struct{}, 1)
	var tmr *Timer
	tmr = NewTimer(5*time.Millisecond, func() {
		n := atomic.AddInt32(&retries, 1)
		if n < 3 {
			tmr.Restart()
			return
		}
		done <- struct{}{}
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer never completed its retries")
	}

	assert.Equal(t, int32(3), atomic.LoadInt32(&retries))
	tmr.Stop()
}
