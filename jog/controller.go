package jog

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rsteckler/axiocnc/controller"
	"github.com/rsteckler/axiocnc/coord"
	"github.com/rsteckler/axiocnc/eventloop"
	"github.com/rsteckler/axiocnc/gcode"
	"github.com/rsteckler/axiocnc/input"
)

// Controller runs the one process-wide jog session. All methods must
// be invoked on the owning event loop; timer callbacks re-enter
// through the run executor for the same reason.
type Controller struct {
	clock    eventloop.Clock
	registry *controller.Registry
	config   func() input.JoystickConfig
	run      func(func())
	log      *logrus.Entry
	onFlash  func()

	state  State
	active controller.Controller
	vec    coord.Point
	accel  []float64

	inFlight       int
	lastSent       time.Time
	waitingForSync bool
	syncPending    bool

	tickTimer    eventloop.Canceler
	tickDeadline time.Time
	syncTimer    eventloop.Canceler
	cancelTimer  eventloop.Canceler
}

// NewController builds the jog controller. run posts a callback onto
// the owning event loop; nil runs callbacks inline (tests).
func NewController(clock eventloop.Clock, registry *controller.Registry, config func() input.JoystickConfig, run func(func()), log *logrus.Entry) *Controller {
	if run == nil {
		run = func(fn func()) { fn() }
	}
	return &Controller{
		clock:    clock,
		registry: registry,
		config:   config,
		run:      run,
		log:      log,
		onFlash:  func() {},
	}
}

// OnFlash sets the UI flash signal for rejected jog starts.
func (c *Controller) OnFlash(fn func()) { c.onFlash = fn }

// SetAccelerations supplies the device's per-axis accelerations
// (mm/s^2, Grbl $120-$122). The minimum positive value feeds the safe
// interval computation.
func (c *Controller) SetAccelerations(vals ...float64) { c.accel = vals }

func (c *Controller) State() State { return c.state }

func (c *Controller) InFlight() int { return c.inFlight }

func (c *Controller) Vector() coord.Point { return c.vec }

// Destroy stops all pending timers and abandons any session.
func (c *Controller) Destroy() {
	c.stopTimers()
	c.state = StateIdle
	c.active = nil
	c.inFlight = 0
	c.waitingForSync = false
	c.syncPending = false
}

// HandleActions consumes mapped actions from the aggregator. Analog
// actions replace the whole input vector; jog buttons set or clear
// their single axis in the shared vector, merging with other held
// axes for diagonals.
func (c *Controller) HandleActions(actions []input.MappedAction, sourceID string) {
	changed := false
	for _, act := range actions {
		switch a := act.(type) {
		case input.AnalogAction:
			c.vec = coord.Point{X: a.X, Y: a.Y, Z: a.Z}
			changed = true
		case input.ButtonAction:
			if !input.IsJogAction(a.Action) {
				continue
			}
			c.applyJogButton(a)
			changed = true
		}
	}
	if changed {
		c.evaluate()
	}
}

func (c *Controller) applyJogButton(a input.ButtonAction) {
	var comp float64
	if a.Pressed {
		comp = 1
	}
	switch a.Action {
	case input.ActionJogXPlus:
		c.vec.X = comp
	case input.ActionJogXMinus:
		c.vec.X = -comp
	case input.ActionJogYPlus:
		c.vec.Y = comp
	case input.ActionJogYMinus:
		c.vec.Y = -comp
	case input.ActionJogZPlus:
		c.vec.Z = comp
	case input.ActionJogZMinus:
		c.vec.Z = -comp
	}
}

// HandleControllerEvent consumes the active controller's event stream.
func (c *Controller) HandleControllerEvent(ev controller.Event) {
	switch e := ev.(type) {
	case controller.EventAck:
		c.handleAck(nil)
	case controller.EventError:
		c.handleAck(&e)
	case controller.EventState:
		if c.state != StateJogging {
			return
		}
		switch e.Status.ActiveState {
		case controller.StateIdle, controller.StateJog:
		default:
			c.log.WithField("state", e.Status.ActiveState).Debug("controller unusable, cancelling jog")
			c.startCancel()
		}
	case controller.EventClosed, controller.EventReset:
		if c.state == StateIdle {
			return
		}
		c.log.Warn("controller lost during jog")
		c.toIdle(false)
	}
}

// handleAck folds one ok/error acknowledgement into the queue
// accounting and drives the state machine forward.
func (c *Controller) handleAck(cmdErr *controller.EventError) {
	if c.inFlight > 0 {
		c.inFlight--
	}
	if cmdErr != nil && c.state != StateIdle {
		entry := c.log.WithField("code", cmdErr.Code)
		if cmdErr.Code != controller.ErrCodeTravelExceeded {
			entry.Warn("jog command rejected: " + cmdErr.Message)
		} else {
			entry.Debug("jog command rejected at travel limit")
		}
	}

	switch c.state {
	case StateJogging:
		// capacity freed: next command goes out as soon as the safe
		// interval allows
		c.tick()
	case StateCancelling:
		if c.syncPending && c.inFlight < TargetQueueDepth {
			c.syncPending = false
			c.writeSync()
			return
		}
		if c.waitingForSync && c.inFlight == 0 {
			c.finishCancel()
		}
	}
}

// evaluate reconciles the latest input vector with the session state.
func (c *Controller) evaluate() {
	switch c.state {
	case StateIdle:
		if c.vec.IsZero(neutralThreshold) {
			return
		}
		ctrl, ok := c.registry.FirstOpen()
		if !ok || !usable(ctrl) {
			c.log.Debug("jog start rejected: no usable controller")
			c.onFlash()
			return
		}
		c.active = ctrl
		c.lastSent = time.Time{}
		c.state = StateJogging
		c.tick()
	case StateJogging:
		if c.vec.IsZero(neutralThreshold) {
			c.startCancel()
			return
		}
		c.tick()
	case StateCancelling:
		// the latest vector is re-examined when the cancel completes
	}
}

// tick sends at most one jog command, respecting queue depth and the
// minimum safe interval.
func (c *Controller) tick() {
	if c.state != StateJogging {
		return
	}
	cfg := c.config()
	v := coord.Point{
		X: c.vec.X * cfg.JogSpeedXY,
		Y: c.vec.Y * cfg.JogSpeedXY,
		Z: c.vec.Z * cfg.JogSpeedZ,
	}
	feed := v.Magnitude() // mm/min
	if feed < neutralThreshold {
		c.startCancel()
		return
	}

	if c.inFlight >= TargetQueueDepth {
		c.armTick(pollInterval)
		return
	}

	dtMin := c.minSafeInterval(feed)
	now := c.clock.Now()
	if !c.lastSent.IsZero() {
		if wait := dtMin - now.Sub(c.lastSent); wait > 0 {
			c.armTick(wait)
			return
		}
	}

	line := jogLine(v.Mul(dtMin.Minutes()), feed)
	if line == "" {
		c.armTick(pollInterval)
		return
	}
	if err := c.active.Writeln(line); err != nil {
		c.log.WithError(err).Error("jog write failed")
		c.toIdle(false)
		return
	}
	c.inFlight++
	c.lastSent = now
	c.armTick(pollInterval)
}

// minSafeInterval computes dt = v^2 / (2*a*(N-1)): the shortest
// inter-command spacing that still lets the planner decelerate to a
// stop within the queued segments. Clamped to the configured window.
func (c *Controller) minSafeInterval(feed float64) time.Duration {
	a := defaultAcceleration
	for _, v := range c.accel {
		if v > 0 && v < a {
			a = v
		}
	}
	vs := feed / 60 // mm/s
	dt := time.Duration(vs * vs / (2 * a * (plannerBufferDepth - 1)) * float64(time.Second))
	if dt < minInterval {
		return minInterval
	}
	if dt > maxInterval {
		return maxInterval
	}
	return dt
}

// jogLine renders one relative, millimeter jog command. Axes with
// negligible deltas are omitted; an empty move returns "".
func jogLine(delta coord.Point, feed float64) string {
	var b gcode.Block
	add := func(w byte, val float64) {
		if val >= minDelta || val <= -minDelta {
			b = append(b, gcode.Word{W: w, Arg: val})
		}
	}
	add('X', delta.X)
	add('Y', delta.Y)
	add('Z', delta.Z)
	if len(b) == 0 {
		return ""
	}
	b = append(b, gcode.Word{W: 'F', Arg: feed})
	return "$J=G91G21" + b.String()
}

// startCancel begins the cancellation handshake: realtime jog cancel
// now, sync probe shortly after, certified complete only when the
// probe is acknowledged with the queue otherwise empty.
func (c *Controller) startCancel() {
	if c.state != StateJogging {
		return
	}
	c.state = StateCancelling
	c.waitingForSync = false
	c.syncPending = false
	c.stopTick()

	if err := c.active.Command(controller.CmdJogCancel); err != nil {
		c.log.WithError(err).Error("jog cancel write failed")
		c.toIdle(false)
		return
	}
	c.syncTimer = c.clock.AfterFunc(cancelSyncDelay, func() { c.run(c.sendSync) })
	c.cancelTimer = c.clock.AfterFunc(cancelTimeout, func() { c.run(c.onCancelTimeout) })
}

func (c *Controller) sendSync() {
	c.syncTimer = nil
	if c.state != StateCancelling {
		return
	}
	// the probe counts against the queue bound too; with the queue
	// full it goes out on the next ack instead (the cancel timeout
	// bounds the wait)
	if c.inFlight >= TargetQueueDepth {
		c.syncPending = true
		return
	}
	c.writeSync()
}

func (c *Controller) writeSync() {
	if err := c.active.Writeln(syncLine); err != nil {
		c.log.WithError(err).Error("jog sync write failed")
		c.toIdle(false)
		return
	}
	c.inFlight++
	c.waitingForSync = true
}

func (c *Controller) onCancelTimeout() {
	c.cancelTimer = nil
	if c.state != StateCancelling {
		return
	}
	c.log.Warn("jog cancel timed out, forcing idle")
	c.toIdle(true)
}

func (c *Controller) finishCancel() {
	c.log.Debug("jog cancel complete")
	c.toIdle(true)
}

// toIdle resets the session. With reenter set, a non-neutral input
// vector at the moment of transition immediately starts a new session
// so input held during a cancel is not lost.
func (c *Controller) toIdle(reenter bool) {
	c.stopTimers()
	c.state = StateIdle
	c.active = nil
	c.inFlight = 0
	c.waitingForSync = false
	c.syncPending = false
	if reenter && !c.vec.IsZero(neutralThreshold) {
		c.evaluate()
	}
}

// armTick arms the tick timer, keeping the earliest pending deadline.
func (c *Controller) armTick(d time.Duration) {
	deadline := c.clock.Now().Add(d)
	if c.tickTimer != nil {
		if !c.tickDeadline.After(deadline) {
			return
		}
		c.tickTimer.Stop()
	}
	c.tickDeadline = deadline
	c.tickTimer = c.clock.AfterFunc(d, func() { c.run(c.onTick) })
}

func (c *Controller) onTick() {
	c.tickTimer = nil
	c.evaluate()
}

func (c *Controller) stopTick() {
	if c.tickTimer != nil {
		c.tickTimer.Stop()
		c.tickTimer = nil
	}
}

func (c *Controller) stopTimers() {
	c.stopTick()
	if c.syncTimer != nil {
		c.syncTimer.Stop()
		c.syncTimer = nil
	}
	if c.cancelTimer != nil {
		c.cancelTimer.Stop()
		c.cancelTimer = nil
	}
}
