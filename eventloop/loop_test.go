package eventloop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoop_Serializes(t *testing.T) {
	l := New(RealClock())
	l.Start()
	defer l.Stop()

	done := make(chan int, 3)
	for i := 0; i < 3; i++ {
		i := i
		l.Do(func() { done <- i })
	}

	for i := 0; i < 3; i++ {
		select {
		case got := <-done:
			assert.Equal(t, i, got)
		case <-time.After(time.Second):
			t.Fatal("loop stalled")
		}
	}
}

func TestManualClock_Advance(t *testing.T) {
	c := NewManualClock(time.Unix(0, 0))

	var order []string
	c.AfterFunc(30*time.Millisecond, func() { order = append(order, "b") })
	c.AfterFunc(10*time.Millisecond, func() { order = append(order, "a") })
	late := c.AfterFunc(time.Second, func() { order = append(order, "never") })

	c.Advance(50 * time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, time.Unix(0, 0).Add(50*time.Millisecond), c.Now())

	assert.True(t, late.Stop())
	c.Advance(time.Second)
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestManualClock_NestedSchedule(t *testing.T) {
	c := NewManualClock(time.Unix(0, 0))

	var fired []time.Duration
	c.AfterFunc(10*time.Millisecond, func() {
		fired = append(fired, 10*time.Millisecond)
		c.AfterFunc(10*time.Millisecond, func() {
			fired = append(fired, 20*time.Millisecond)
		})
	})

	c.Advance(100 * time.Millisecond)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, fired)
}
