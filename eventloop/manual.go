package eventloop

import (
	"sort"
	"sync"
	"time"
)

// ManualClock is a Clock driven explicitly by Advance. Tasks run
// synchronously on the advancing goroutine, in deadline order, so
// scheduling behavior is deterministic in tests.
type ManualClock struct {
	mx    sync.Mutex
	now   time.Time
	tasks []*manualTask
}

type manualTask struct {
	clock    *ManualClock
	deadline time.Time
	fn       func()
	stopped  bool
	fired    bool
}

func (t *manualTask) Stop() bool {
	t.clock.mx.Lock()
	defer t.clock.mx.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.now
}

func (c *ManualClock) AfterFunc(d time.Duration, fn func()) Canceler {
	c.mx.Lock()
	defer c.mx.Unlock()
	t := &manualTask{clock: c, deadline: c.now.Add(d), fn: fn}
	c.tasks = append(c.tasks, t)
	return t
}

// Advance moves the clock forward, firing every due task. Tasks that
// schedule new tasks within the window fire in the same call.
func (c *ManualClock) Advance(d time.Duration) {
	c.mx.Lock()
	end := c.now.Add(d)
	c.mx.Unlock()

	for {
		t := c.nextDue(end)
		if t == nil {
			break
		}
		c.mx.Lock()
		if t.deadline.After(c.now) {
			c.now = t.deadline
		}
		t.fired = true
		c.mx.Unlock()
		t.fn()
	}

	c.mx.Lock()
	c.now = end
	c.mx.Unlock()
}

func (c *ManualClock) nextDue(end time.Time) *manualTask {
	c.mx.Lock()
	defer c.mx.Unlock()
	live := c.tasks[:0]
	for _, t := range c.tasks {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	c.tasks = live
	sort.SliceStable(c.tasks, func(i, j int) bool {
		return c.tasks[i].deadline.Before(c.tasks[j].deadline)
	})
	if len(c.tasks) == 0 || c.tasks[0].deadline.After(end) {
		return nil
	}
	return c.tasks[0]
}
