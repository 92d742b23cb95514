package status

import (
	"time"

	"github.com/rsteckler/axiocnc/controller"
	"github.com/rsteckler/axiocnc/coord"
)

// DerivedStatus is the coarse machine status the UI and the dispatch
// paths gate on.
type DerivedStatus string

const (
	NotConnected      DerivedStatus = "not_connected"
	Alarm             DerivedStatus = "alarm"
	Hold              DerivedStatus = "hold"
	Running           DerivedStatus = "running"
	ConnectedPostHome DerivedStatus = "connected_post_home"
	ConnectedPreHome  DerivedStatus = "connected_pre_home"
)

type WorkflowState string

const (
	WorkflowIdle    WorkflowState = "idle"
	WorkflowRunning WorkflowState = "running"
	WorkflowPaused  WorkflowState = "paused"
)

// Record is the authoritative per-port status. Records are created on
// first reference to a port and reset, never deleted, on disconnect.
type Record struct {
	Port           string
	Connected      bool
	ControllerType string

	DerivedStatus    DerivedStatus
	IsHomed          bool
	IsJobRunning     bool
	HomingInProgress bool

	ActiveState controller.ActiveState
	MPos        coord.Point
	WPos        coord.Point
	PinState    string

	WorkflowState WorkflowState
	LastUpdate    time.Time
}

// derive computes the coarse status from the record's other fields.
// The priority order is strict: each condition is only considered once
// every earlier one is ruled out.
func derive(r *Record) DerivedStatus {
	switch {
	case !r.Connected:
		return NotConnected
	case r.ActiveState == controller.StateAlarm:
		return Alarm
	case r.ActiveState == controller.StateHold:
		return Hold
	case r.WorkflowState == WorkflowRunning:
		return Running
	case r.IsHomed:
		return ConnectedPostHome
	}
	return ConnectedPreHome
}
