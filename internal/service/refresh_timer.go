package service

import (
	"sync"
	"time"
)

// Refresh scheduling defaults.
const (
	DefaultRefreshLeadTime = 300000 * time.Millisecond
	DefaultMinRefreshDelay = 60 * time.Second
)

// RefreshDelay returns max(expiresIn - lead, minDelay).
func RefreshDelay(expiresIn, lead, minDelay time.Duration) time.Duration {
	return max(expiresIn-lead, minDelay)
}

type stopper interface {
	Stop() bool
}

// afterFunc matches time.AfterFunc; tests substitute a manual clock.
type afterFunc func(d time.Duration, f func()) stopper

func realAfterFunc(d time.Duration, f func()) stopper {
	return time.AfterFunc(d, f)
}

// scheduledTask is a single cancellable timer handle. Arming always cancels the previous handle.
type scheduledTask struct {
	mu       sync.Mutex
	after    afterFunc
	handle   stopper
	gen      uint64
	delay    time.Duration
	deadline time.Time
}

func newScheduledTask(after afterFunc) *scheduledTask {
	if after == nil {
		after = realAfterFunc
	}
	return &scheduledTask{after: after}
}

// Arm cancels any pending handle and schedules f after d.
func (t *scheduledTask) Arm(d time.Duration, now time.Time, f func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	t.gen++
	gen := t.gen
	t.delay = d
	t.deadline = now.Add(d)
	t.handle = t.after(d, func() {
		t.mu.Lock()
		if t.gen != gen {
			t.mu.Unlock()
			return
		}
		t.handle = nil
		t.mu.Unlock()
		f()
	})
}

// Cancel stops the pending handle, if any. It reports whether one was pending.
func (t *scheduledTask) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	return t.stopLocked()
}

// Pending returns the armed delay and deadline when a handle is outstanding.
func (t *scheduledTask) Pending() (time.Duration, time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.handle == nil {
		return 0, time.Time{}, false
	}
	return t.delay, t.deadline, true
}

func (t *scheduledTask) stopLocked() bool {
	if t.handle == nil {
		return false
	}
	stopped := t.handle.Stop()
	t.handle = nil
	return stopped
}
