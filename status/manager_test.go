package status

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsteckler/axiocnc/controller"
)

const port = "/dev/ttyUSB0"

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func report(state controller.ActiveState) controller.Status {
	return controller.Status{ActiveState: state}
}

func TestDerive_Priority(t *testing.T) {
	// alarm overrides running and homed
	r := &Record{
		Connected:     true,
		ActiveState:   controller.StateAlarm,
		WorkflowState: WorkflowRunning,
		IsHomed:       true,
	}
	assert.Equal(t, Alarm, derive(r))

	r.ActiveState = controller.StateHold
	assert.Equal(t, Hold, derive(r))

	r.ActiveState = controller.StateRun
	assert.Equal(t, Running, derive(r))

	r.WorkflowState = WorkflowIdle
	assert.Equal(t, ConnectedPostHome, derive(r))

	r.IsHomed = false
	assert.Equal(t, ConnectedPreHome, derive(r))

	r.Connected = false
	assert.Equal(t, NotConnected, derive(r))
}

func TestManager_HomingEdge(t *testing.T) {
	m := NewManager(testLog())
	m.HandleOpen(port, "grbl")
	m.HandleControllerState(port, report(controller.StateIdle))

	rec, _ := m.Record(port)
	assert.False(t, rec.IsHomed)
	assert.Equal(t, ConnectedPreHome, rec.DerivedStatus)

	m.HandleHomingStarted(port)
	rec, _ = m.Record(port)
	assert.True(t, rec.HomingInProgress)

	// idle while the homing flag is set is not enough; the Home state
	// must be observed first
	m.HandleControllerState(port, report(controller.StateIdle))
	rec, _ = m.Record(port)
	assert.False(t, rec.IsHomed)

	m.HandleControllerState(port, report(controller.StateHome))
	m.HandleControllerState(port, report(controller.StateIdle))
	rec, _ = m.Record(port)
	assert.True(t, rec.IsHomed)
	assert.False(t, rec.HomingInProgress)
	assert.Equal(t, ConnectedPostHome, rec.DerivedStatus)

	// a second Idle report does not re-trigger the edge
	m.HandleControllerState(port, report(controller.StateIdle))
	rec, _ = m.Record(port)
	assert.True(t, rec.IsHomed)
}

func TestManager_AlarmClearsHomed(t *testing.T) {
	m := NewManager(testLog())
	m.HandleOpen(port, "grbl")
	m.HandleControllerState(port, report(controller.StateHome))
	m.HandleControllerState(port, report(controller.StateIdle))

	m.HandleControllerState(port, report(controller.StateAlarm))
	rec, _ := m.Record(port)
	assert.False(t, rec.IsHomed)
	assert.Equal(t, Alarm, rec.DerivedStatus)
}

func TestManager_ResetAndUnlockClearHomed(t *testing.T) {
	m := NewManager(testLog())
	m.HandleOpen(port, "grbl")
	m.HandleControllerState(port, report(controller.StateHome))
	m.HandleControllerState(port, report(controller.StateIdle))

	m.HandleReset(port)
	rec, _ := m.Record(port)
	assert.False(t, rec.IsHomed)

	m.HandleControllerState(port, report(controller.StateHome))
	m.HandleControllerState(port, report(controller.StateIdle))
	m.HandleUnlock(port)
	rec, _ = m.Record(port)
	assert.False(t, rec.IsHomed)
}

func TestManager_DuplicateOpenPreservesTruth(t *testing.T) {
	m := NewManager(testLog())
	m.HandleOpen(port, "grbl")
	m.HandleControllerState(port, report(controller.StateHome))
	m.HandleControllerState(port, report(controller.StateIdle))
	m.SetWorkflowState(port, WorkflowRunning)

	// a second observer attaching must not reset established truth
	m.HandleOpen(port, "grbl")
	rec, _ := m.Record(port)
	assert.True(t, rec.IsHomed)
	assert.Equal(t, WorkflowRunning, rec.WorkflowState)
	assert.True(t, rec.IsJobRunning)
}

func TestManager_CloseResetsButKeepsRecord(t *testing.T) {
	m := NewManager(testLog())
	m.HandleOpen(port, "grbl")
	m.HandleControllerState(port, report(controller.StateRun))
	m.SetWorkflowState(port, WorkflowRunning)

	m.HandleClose(port)
	rec, ok := m.Record(port)
	require.True(t, ok)
	assert.False(t, rec.Connected)
	assert.Equal(t, NotConnected, rec.DerivedStatus)
	assert.Equal(t, WorkflowIdle, rec.WorkflowState)
	assert.False(t, rec.IsJobRunning)
}

func TestManager_BroadcastPerMutation(t *testing.T) {
	m := NewManager(testLog())

	var got []Record
	cancel := m.Subscribe(func(p string, rec Record) {
		assert.Equal(t, port, p)
		got = append(got, rec)
	})

	m.HandleOpen(port, "grbl")
	m.HandleControllerState(port, report(controller.StateIdle))
	m.HandleControllerState(port, report(controller.StateIdle))
	require.Len(t, got, 3)
	assert.Equal(t, ConnectedPreHome, got[2].DerivedStatus)

	cancel()
	m.HandleClose(port)
	assert.Len(t, got, 3)
}
