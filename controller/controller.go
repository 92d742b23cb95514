package controller

import (
	"github.com/rsteckler/axiocnc/coord"
)

// ActiveState is the device-reported discrete machine state.
type ActiveState string

const (
	StateIdle  ActiveState = "Idle"
	StateRun   ActiveState = "Run"
	StateHold  ActiveState = "Hold"
	StateJog   ActiveState = "Jog"
	StateAlarm ActiveState = "Alarm"
	StateHome  ActiveState = "Home"
	StateDoor  ActiveState = "Door"
	StateCheck ActiveState = "Check"
	StateSleep ActiveState = "Sleep"
)

// Status is the last reported realtime status of the device.
type Status struct {
	ActiveState ActiveState
	MPos        coord.Point
	WPos        coord.Point
	WCO         coord.Point
	PinState    string
	Feed        float64
	Speed       float64
}

// Modal holds the modal groups this core cares about.
type Modal struct {
	WCS     string // G54..G59
	Spindle string // M3, M4 or M5
}

type ParserState struct {
	Modal Modal
}

// State is a snapshot of everything the device has told us.
type State struct {
	Status Status
	Parser ParserState
}

// Named commands understood by Command. Anything not covered here is
// written as a plain g-code line via Writeln.
const (
	CmdHoming       = "homing"
	CmdUnlock       = "unlock"
	CmdReset        = "reset"
	CmdCycleStart   = "cyclestart"
	CmdFeedHold     = "feedhold"
	CmdJogCancel    = "jogcancel"
	CmdStatusReport = "statusreport"
	CmdParserState  = "parserstate"
)

// ErrCodeTravelExceeded is the Grbl-class error code for a jog target
// outside machine travel. Routine during continuous jogging near limits.
const ErrCodeTravelExceeded = 15

// A Controller is a single open connection to a CNC device.
//
// Writeln and Command report failure through their error return;
// nothing here panics across the boundary.
type Controller interface {
	Port() string
	IsOpen() bool
	State() State

	Writeln(line string) error
	Command(name string, args ...string) error

	// Subscribe registers fn for every controller event. The returned
	// func removes the subscription.
	Subscribe(fn func(Event)) (cancel func())
}
