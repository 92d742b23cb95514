package eventloop

import (
	"time"
)

// Canceler stops a pending delayed task. Stop reports whether the
// task was stopped before it fired.
type Canceler interface {
	Stop() bool
}

// Clock abstracts wall-clock time so scheduling logic can run under a
// manual clock in tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Canceler
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, fn func()) Canceler {
	return time.AfterFunc(d, fn)
}

// RealClock returns the wall clock.
func RealClock() Clock { return realClock{} }
