package session

import (
	"sync"
	"time"
)

// IdleTimer calls onIdle once after timeout elapses without a Touch.
// Touch re-arms the timer for a fresh period.
type IdleTimer struct {
	mu      sync.Mutex
	timeout time.Duration
	onIdle  func()
	timer   *time.Timer
	stopped bool
}

// NewIdleTimer creates a stopped timer
func NewIdleTimer(timeout time.Duration, onIdle func()) *IdleTimer {
	if timeout <= 0 {
		timeout = DefaultIdleTimeout
	}
	return &IdleTimer{timeout: timeout, onIdle: onIdle, stopped: true}
}

// Start arms the timer
func (t *IdleTimer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopped = false
	t.arm()
}

// Touch records activity and restarts the idle period.
// It does nothing on a stopped timer.
func (t *IdleTimer) Touch() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}
	t.arm()
}

// Stop disarms the timer
func (t *IdleTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// Timeout returns the idle period
func (t *IdleTimer) Timeout() time.Duration {
	return t.timeout
}

func (t *IdleTimer) arm() {
	if t.timer != nil {
		t.timer.Stop()
	}
	var fired *time.Timer
	fired = time.AfterFunc(t.timeout, func() {
		t.mu.Lock()
		current := t.timer == fired && !t.stopped
		if current {
			t.timer = nil
		}
		t.mu.Unlock()

		if current && t.onIdle != nil {
			t.onIdle()
		}
	})
	t.timer = fired
}
