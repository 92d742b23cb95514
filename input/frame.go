package input

import (
	"time"
)

type SourceKind int

const (
	// SourceGamepad frames carry raw axis/button samples.
	SourceGamepad SourceKind = iota
	// SourceWidget frames come from the on-screen jog control;
	// Axes[0:3] are x,y,z with the deadzone already applied upstream.
	SourceWidget
)

// RawInputFrame is one periodic sample from one input source. The
// aggregator keeps only the latest frame per source.
type RawInputFrame struct {
	SourceID  string
	Kind      SourceKind
	Locality  Locality
	Axes      []float64
	Buttons   []bool
	Timestamp time.Time
}

// MappedAction is the tagged union of normalized post-binding actions.
type MappedAction interface{ isAction() }

// ButtonAction is a discrete action edge: Pressed true on press,
// false on release.
type ButtonAction struct {
	Action   string
	ButtonID int
	Pressed  bool
}

// AnalogAction is a normalized jog vector, each axis in [-1,1].
type AnalogAction struct {
	X, Y, Z float64
}

func (ButtonAction) isAction() {}
func (AnalogAction) isAction() {}
