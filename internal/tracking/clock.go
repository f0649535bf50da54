package tracking

import "time"

// Timer is a cancelable one-shot timer handle.
type Timer interface {
	// Stop prevents the timer from firing. Returns false if it already fired.
	Stop() bool
}

// Clock abstracts time so the session's timers can be driven deterministically
// in tests and canceled totally on stop.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// NewRealClock returns a Clock backed by the system clock.
func NewRealClock() Clock { return realClock{} }
