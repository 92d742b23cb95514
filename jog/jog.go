// Package jog implements the continuous jog control loop: it turns a
// stream of normalized input vectors into a safe, rate-limited stream
// of relative jog commands against the device's finite planner buffer.
//
// Scheduling is a deliberate hybrid. Device acknowledgements drive the
// fast path (an ack frees queue capacity and triggers the next command
// almost immediately); a low-frequency timer catches pure input
// changes. Pure events would stall if acks stop while input is held;
// pure polling could violate the minimum safe interval.
package jog

import (
	"time"

	"github.com/rsteckler/axiocnc/controller"
)

const (
	// TargetQueueDepth bounds in-flight jog commands.
	TargetQueueDepth = 4

	// plannerBufferDepth is the assumed device planner depth (N in
	// the minimum-interval formula).
	plannerBufferDepth = 15

	// defaultAcceleration (mm/s^2) is used until real per-axis
	// accelerations are supplied.
	defaultAcceleration = 500.0

	// clamp window for the computed inter-command interval
	minInterval = 25 * time.Millisecond
	maxInterval = 250 * time.Millisecond

	// fallback poll period while jogging or waiting for capacity
	pollInterval = 200 * time.Millisecond

	// cancel protocol timing
	cancelSyncDelay = 50 * time.Millisecond
	cancelTimeout   = 2 * time.Second

	// input below this magnitude is neutral
	neutralThreshold = 1e-3

	// axis deltas below this (mm) are not worth sending
	minDelta = 1e-4
)

// syncLine is the zero-duration dwell whose acknowledgement certifies
// the cancel handshake.
const syncLine = "G4P0"

// State of the jog session.
type State int

const (
	StateIdle State = iota
	StateJogging
	StateCancelling
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateJogging:
		return "jogging"
	case StateCancelling:
		return "cancelling"
	}
	return "unknown"
}

// usable reports whether a controller can accept a new jog session.
func usable(c controller.Controller) bool {
	if c == nil || !c.IsOpen() {
		return false
	}
	switch c.State().Status.ActiveState {
	case controller.StateIdle, controller.StateJog:
		return true
	}
	return false
}
