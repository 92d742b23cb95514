package action

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/rsteckler/axiocnc/controller"
	"github.com/rsteckler/axiocnc/gcode"
	"github.com/rsteckler/axiocnc/input"
	"github.com/rsteckler/axiocnc/status"
)

// spindleOnRPM is the default spindle speed for the spindle_on action.
const spindleOnRPM = 1000

// wcsOffsetRegister maps the modal work coordinate system to its G10
// P register.
var wcsOffsetRegister = map[string]int{
	"G54": 1,
	"G55": 2,
	"G56": 3,
	"G57": 4,
	"G58": 5,
	"G59": 6,
}

// Dispatcher consumes discrete button actions, checks the state
// precondition against the active controller and issues exactly one
// command write per successful dispatch. Failures flash the UI and
// return false; nothing is retried internally.
type Dispatcher struct {
	registry *controller.Registry
	statuses *status.Manager
	onFlash  func()
	log      *logrus.Entry
}

func NewDispatcher(registry *controller.Registry, statuses *status.Manager, log *logrus.Entry) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		statuses: statuses,
		onFlash:  func() {},
		log:      log,
	}
}

// OnFlash sets the UI flash signal for rejected actions.
func (d *Dispatcher) OnFlash(fn func()) { d.onFlash = fn }

// Dispatch runs one discrete action. It reports whether a command was
// issued.
func (d *Dispatcher) Dispatch(act input.ButtonAction) bool {
	if !act.Pressed || input.IsJogAction(act.Action) {
		return false
	}

	c, ok := d.registry.FirstOpen()
	if !ok {
		d.onFlash()
		return false
	}

	st := c.State()
	if !allowed(act.Action, st) {
		d.log.WithFields(logrus.Fields{
			"action": act.Action,
			"state":  st.Status.ActiveState,
		}).Debug("action precondition unmet")
		d.onFlash()
		return false
	}

	if err := d.issue(act.Action, c, st); err != nil {
		d.log.WithError(err).WithField("action", act.Action).Error("dispatch failed")
		return false
	}
	return true
}

// allowed implements the per-action state precondition table.
func allowed(action string, st controller.State) bool {
	as := st.Status.ActiveState
	switch action {
	case input.ActionEmergencyStop:
		return true
	case input.ActionHomeAll, input.ActionStart,
		input.ActionZeroAll, input.ActionZeroX, input.ActionZeroY, input.ActionZeroZ:
		return as == controller.StateIdle
	case input.ActionStop, input.ActionPause:
		return as == controller.StateRun
	case input.ActionResume:
		return as == controller.StateHold
	case input.ActionFeedHold:
		return as == controller.StateIdle || as == controller.StateRun
	case input.ActionSpindleOn:
		spindle := st.Parser.Modal.Spindle
		return as == controller.StateIdle && spindle != "M3" && spindle != "M4"
	case input.ActionSpindleOff:
		return as == controller.StateIdle || as == controller.StateAlarm || as == controller.StateHold
	case input.ActionUnlock:
		return as == controller.StateAlarm
	}
	return false
}

func (d *Dispatcher) issue(action string, c controller.Controller, st controller.State) error {
	port := c.Port()
	switch action {
	case input.ActionEmergencyStop:
		if err := c.Command(controller.CmdReset); err != nil {
			return err
		}
		d.statuses.HandleReset(port)
		d.statuses.SetWorkflowState(port, status.WorkflowIdle)
		return nil
	case input.ActionHomeAll:
		if err := c.Command(controller.CmdHoming); err != nil {
			return err
		}
		d.statuses.HandleHomingStarted(port)
		return nil
	case input.ActionUnlock:
		if err := c.Command(controller.CmdUnlock); err != nil {
			return err
		}
		d.statuses.HandleUnlock(port)
		return nil
	case input.ActionStart:
		if err := c.Command(controller.CmdCycleStart); err != nil {
			return err
		}
		d.statuses.SetWorkflowState(port, status.WorkflowRunning)
		return nil
	case input.ActionResume:
		if err := c.Command(controller.CmdCycleStart); err != nil {
			return err
		}
		d.statuses.SetWorkflowState(port, status.WorkflowRunning)
		return nil
	case input.ActionPause:
		if err := c.Command(controller.CmdFeedHold); err != nil {
			return err
		}
		d.statuses.SetWorkflowState(port, status.WorkflowPaused)
		return nil
	case input.ActionStop:
		if err := c.Command(controller.CmdReset); err != nil {
			return err
		}
		d.statuses.HandleReset(port)
		d.statuses.SetWorkflowState(port, status.WorkflowIdle)
		return nil
	case input.ActionFeedHold:
		return c.Command(controller.CmdFeedHold)
	case input.ActionSpindleOn:
		return c.Writeln(gcode.Block{{W: 'M', Arg: 3}, {W: 'S', Arg: spindleOnRPM}}.String())
	case input.ActionSpindleOff:
		return c.Writeln(gcode.Block{{W: 'M', Arg: 5}}.String())
	case input.ActionZeroAll:
		return d.zero(c, st, true, true, true)
	case input.ActionZeroX:
		return d.zero(c, st, true, false, false)
	case input.ActionZeroY:
		return d.zero(c, st, false, true, false)
	case input.ActionZeroZ:
		return d.zero(c, st, false, false, true)
	}
	return errors.New("unhandled action: " + action)
}

// zero sets the active work offset so the current position reads zero
// on the requested axes: G10 L20 P<register> with the axis subset.
func (d *Dispatcher) zero(c controller.Controller, st controller.State, x, y, z bool) error {
	wcs := st.Parser.Modal.WCS
	p, ok := wcsOffsetRegister[wcs]
	if !ok {
		d.onFlash()
		return errors.New("cannot resolve offset register for WCS " + wcs)
	}

	b := gcode.Block{{W: 'G', Arg: 10}, {W: 'L', Arg: 20}, {W: 'P', Arg: float64(p)}}
	if x {
		b = append(b, gcode.Word{W: 'X', Arg: 0})
	}
	if y {
		b = append(b, gcode.Word{W: 'Y', Arg: 0})
	}
	if z {
		b = append(b, gcode.Word{W: 'Z', Arg: 0})
	}
	return c.Writeln(b.String())
}
