package util

import (
	"time"
)

// Timer is a cancellable deferred action
type Timer interface {
	// Stop prevents the action from running; false if it already ran or was stopped
	Stop() bool
}

// Clock is the time source of the orchestrator, swappable in tests
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

// SystemClock returns the wall clock
func SystemClock() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Skew returns the absolute distance between a device clock reading and now
func Skew(now time.Time, device time.Time) time.Duration {
	d := now.Sub(device)
	if d < 0 {
		return -d
	}
	return d
}

// UnixTS returns the unix (epoch) timestamp of t in milliseconds
func UnixTS(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}
