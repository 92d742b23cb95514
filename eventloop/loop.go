package eventloop

import (
	"sync"
	"time"
)

// Loop serializes all core mutation onto a single goroutine. Event
// ordering on the loop is the concurrency contract: handlers never
// run concurrently with each other, so the components it hosts need
// no locking of their own.
type Loop struct {
	clock Clock
	ch    chan func()

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func New(clock Clock) *Loop {
	return &Loop{
		clock:  clock,
		ch:     make(chan func(), 1024),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

func (l *Loop) Clock() Clock { return l.clock }

// Start runs the loop goroutine.
func (l *Loop) Start() {
	go func() {
		defer close(l.doneCh)
		for {
			select {
			case <-l.stopCh:
				return
			case fn := <-l.ch:
				fn()
			}
		}
	}()
}

// Stop halts the loop and waits for the goroutine to exit.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
	<-l.doneCh
}

// Do posts fn onto the loop. Dropped silently after Stop.
func (l *Loop) Do(fn func()) {
	select {
	case <-l.stopCh:
	case l.ch <- fn:
	}
}

// After schedules fn on the loop after d.
func (l *Loop) After(d time.Duration, fn func()) Canceler {
	return l.clock.AfterFunc(d, func() { l.Do(fn) })
}
