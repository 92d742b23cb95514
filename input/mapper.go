package input

import (
	"math"
	"strings"

	"github.com/rsteckler/axiocnc/coord"
)

const (
	// analog output below this magnitude is treated as noise from an
	// idle gamepad and suppressed entirely
	analogEpsilon = 1e-3
	// hat axis value beyond which a synthetic D-pad button reads pressed
	dpadThreshold = 0.5
)

// MapButtons returns one Button action per held button whose binding is
// not "none", including synthetic D-pad buttons derived from the
// configured hat axes. The aggregator turns these level samples into
// press/release edges.
func MapButtons(axes []float64, buttons []bool, cfg JoystickConfig) []ButtonAction {
	var res []ButtonAction
	emit := func(id int, pressed bool) {
		if !pressed {
			return
		}
		binding := cfg.ButtonMappings[id]
		if binding == "" || binding == BindingNone {
			return
		}
		res = append(res, ButtonAction{Action: binding, ButtonID: id, Pressed: true})
	}

	for i, pressed := range buttons {
		emit(i, pressed)
	}

	if cfg.DpadXAxis >= 0 && cfg.DpadXAxis < len(axes) {
		emit(DpadLeft, axes[cfg.DpadXAxis] < -dpadThreshold)
		emit(DpadRight, axes[cfg.DpadXAxis] > dpadThreshold)
	}
	if cfg.DpadYAxis >= 0 && cfg.DpadYAxis < len(axes) {
		// negative hat values point up on a standard gamepad
		emit(DpadUp, axes[cfg.DpadYAxis] < -dpadThreshold)
		emit(DpadDown, axes[cfg.DpadYAxis] > dpadThreshold)
	}
	return res
}

// MapAnalogGamepad folds the bound stick axes into a jog vector. It
// returns nil once the post-processing magnitude drops below epsilon,
// so idle gamepads stop producing analog actions altogether.
func MapAnalogGamepad(axes []float64, cfg JoystickConfig) *AnalogAction {
	var v coord.Point
	for idx, binding := range cfg.AnalogMappings {
		if idx < 0 || idx >= len(axes) {
			continue
		}
		val := axes[idx]
		axis := binding
		if strings.HasPrefix(binding, "-") {
			val = -val
			axis = binding[1:]
		}
		switch axis {
		case "x":
			v.X += val
		case "y":
			v.Y += val
		case "z":
			v.Z += val
		}
	}
	v = v.ClampUnit()

	v.X = applyDeadzone(v.X, cfg.Deadzone)
	v.Y = applyDeadzone(v.Y, cfg.Deadzone)
	v.Z = applyDeadzone(v.Z, cfg.Deadzone)

	v = v.Mul(cfg.Sensitivity).ClampUnit()
	v = applyInversion(v, cfg)

	if v.IsZero(analogEpsilon) {
		return nil
	}
	return &AnalogAction{X: v.X, Y: v.Y, Z: v.Z}
}

// MapJogControl maps an on-screen jog widget sample. Unlike the
// gamepad path it always returns an action: the neutral (0,0,0) frame
// is the cancellation signal for continuous jogging and must never be
// suppressed.
func MapJogControl(x, y, z float64, cfg JoystickConfig) AnalogAction {
	v := coord.Point{X: x, Y: y, Z: z}.Mul(cfg.Sensitivity)
	v = applyInversion(v, cfg)
	return AnalogAction{X: v.X, Y: v.Y, Z: v.Z}
}

// applyDeadzone rescales magnitude above the threshold into [0,1]
// preserving sign; at or below the threshold it reads neutral.
func applyDeadzone(val, deadzone float64) float64 {
	if deadzone <= 0 {
		return val
	}
	if deadzone >= 1 {
		return 0
	}
	m := math.Abs(val)
	if m <= deadzone {
		return 0
	}
	out := (m - deadzone) / (1 - deadzone)
	if val < 0 {
		return -out
	}
	return out
}

func applyInversion(v coord.Point, cfg JoystickConfig) coord.Point {
	if cfg.InvertX {
		v.X = -v.X
	}
	if cfg.InvertY {
		v.Y = -v.Y
	}
	if cfg.InvertZ {
		v.Z = -v.Z
	}
	return v
}
