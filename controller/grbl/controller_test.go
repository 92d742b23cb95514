package grbl

import (
	"bytes"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsteckler/axiocnc/controller"
)

type fakePort struct {
	io.Reader

	mx  sync.Mutex
	buf bytes.Buffer
}

func (f *fakePort) Write(p []byte) (int, error) {
	f.mx.Lock()
	defer f.mx.Unlock()
	return f.buf.Write(p)
}

func (f *fakePort) Written() string {
	f.mx.Lock()
	defer f.mx.Unlock()
	return f.buf.String()
}

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newTestController(t *testing.T) (*Controller, *fakePort, io.WriteCloser, chan controller.Event) {
	pr, pw := io.Pipe()
	port := &fakePort{Reader: pr}
	c := New("/dev/ttyACM0", port, testLog())

	events := make(chan controller.Event, 100)
	c.Subscribe(func(ev controller.Event) { events <- ev })
	c.Open()
	t.Cleanup(func() { c.Close(); pw.Close() })

	return c, port, pw, events
}

func waitEvent(t *testing.T, events chan controller.Event) controller.Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestController_Events(t *testing.T) {
	_, _, pw, events := newTestController(t)

	assert.Equal(t, controller.EventOpened{Port: "/dev/ttyACM0"}, waitEvent(t, events))

	io.WriteString(pw, "Grbl 1.1h ['$' for help]\n")
	assert.Equal(t, controller.EventReset{}, waitEvent(t, events))

	io.WriteString(pw, "ok\n")
	assert.Equal(t, controller.EventAck{}, waitEvent(t, events))

	io.WriteString(pw, "error:15\n")
	ev := waitEvent(t, events)
	require.IsType(t, controller.EventError{}, ev)
	assert.Equal(t, 15, ev.(controller.EventError).Code)

	io.WriteString(pw, "<Idle|MPos:1.000,0.000,0.000|FS:0,0>\n")
	ev = waitEvent(t, events)
	require.IsType(t, controller.EventState{}, ev)
	assert.Equal(t, controller.StateIdle, ev.(controller.EventState).Status.ActiveState)

	io.WriteString(pw, "[GC:G0 G55 G17 G21 G90 G94 M5 M9 T0 F0 S0]\n")
	ev = waitEvent(t, events)
	require.IsType(t, controller.EventParserState{}, ev)
	assert.Equal(t, "G55", ev.(controller.EventParserState).Parser.Modal.WCS)
}

func TestController_StateSnapshot(t *testing.T) {
	c, _, pw, events := newTestController(t)
	waitEvent(t, events) // opened

	io.WriteString(pw, "<Run|MPos:5.000,0.000,0.000|WCO:1.000,0.000,0.000>\n")
	waitEvent(t, events)

	state := c.State()
	assert.Equal(t, controller.StateRun, state.Status.ActiveState)
	assert.Equal(t, 4.0, state.Status.WPos.X)
}

func TestController_Commands(t *testing.T) {
	c, port, _, _ := newTestController(t)

	require.NoError(t, c.Command(controller.CmdHoming))
	require.NoError(t, c.Command(controller.CmdFeedHold))
	require.NoError(t, c.Command(controller.CmdJogCancel))
	require.NoError(t, c.Writeln("G10L20P1X0"))
	assert.Error(t, c.Command("warp-drive"))

	written := port.Written()
	assert.Contains(t, written, "$H\n")
	assert.Contains(t, written, string([]byte{charFeedHold}))
	assert.Contains(t, written, string([]byte{charJogCancel}))
	assert.Contains(t, written, "G10L20P1X0\n")
}

func TestController_ClosedWrites(t *testing.T) {
	c, _, _, _ := newTestController(t)
	c.Close()

	assert.Equal(t, ErrClosed, c.Writeln("G4P0"))
	assert.Equal(t, ErrClosed, c.Command(controller.CmdReset))
	assert.False(t, c.IsOpen())
}
