package capture

import "time"

// Timer is a cancelable one-shot timer
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

// Clock creates timers. Tests substitute a fake to run sequences instantly.
type Clock interface {
	NewTimer(d time.Duration) Timer
}

// RealClock is the wall clock
type RealClock struct{}

// NewTimer starts a time.Timer
func (RealClock) NewTimer(d time.Duration) Timer {
	return realTimer{time.NewTimer(d)}
}

type realTimer struct {
	t *time.Timer
}

func (r realTimer) C() <-chan time.Time { return r.t.C }
func (r realTimer) Stop() bool          { return r.t.Stop() }
