package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubController struct {
	Controller
	port string
	open bool
}

func (s *stubController) Port() string { return s.port }
func (s *stubController) IsOpen() bool { return s.open }

func TestRegistry_FirstOpen(t *testing.T) {
	r := NewRegistry()

	_, ok := r.FirstOpen()
	assert.False(t, ok)

	a := &stubController{port: "/dev/ttyUSB0", open: false}
	b := &stubController{port: "/dev/ttyUSB1", open: true}
	r.Register(a)
	r.Register(b)

	c, ok := r.FirstOpen()
	require.True(t, ok)
	assert.Equal(t, "/dev/ttyUSB1", c.Port())

	// first registered wins once it opens
	a.open = true
	c, _ = r.FirstOpen()
	assert.Equal(t, "/dev/ttyUSB0", c.Port())
}

func TestRegistry_Unregister(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubController{port: "/dev/ttyUSB0", open: true})
	r.Unregister("/dev/ttyUSB0")

	_, ok := r.GetController("/dev/ttyUSB0")
	assert.False(t, ok)
	assert.Empty(t, r.ListOpenControllers())

	// duplicate unregister is a no-op
	r.Unregister("/dev/ttyUSB0")
}

func TestRegistry_DuplicateRegister(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubController{port: "/dev/ttyUSB0", open: true})
	r.Register(&stubController{port: "/dev/ttyUSB0", open: true})

	assert.Len(t, r.ListOpenControllers(), 1)
}
