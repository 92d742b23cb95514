package input

import (
	"strconv"

	"github.com/rsteckler/axiocnc/settings"
)

// Locality says where an input device is physically attached.
type Locality string

const (
	LocalityServer  Locality = "server"
	LocalityBrowser Locality = "browser"
)

// BindingNone marks a button that should never produce an action.
const BindingNone = "none"

// Synthetic button ids for the D-pad hat axes. Chosen well above any
// real gamepad button index.
const (
	DpadUp    = 100
	DpadDown  = 101
	DpadLeft  = 102
	DpadRight = 103
)

// JoystickConfig is the user-tunable mapping and behavior for all
// joystick-style input. It lives in the settings store under
// "joystick." and is re-read on every settings change.
type JoystickConfig struct {
	Enabled            bool
	ConnectionLocation Locality

	Deadzone    float64
	Sensitivity float64
	InvertX     bool
	InvertY     bool
	InvertZ     bool

	// jog speed ceilings, mm/min
	JogSpeedXY float64
	JogSpeedZ  float64

	// gamepad button index (incl. synthetic D-pad ids) -> action name
	ButtonMappings map[int]string
	// gamepad axis index -> jog axis ("x","y","z", optionally "-" prefixed)
	AnalogMappings map[int]string

	// hat axes for the synthetic D-pad; -1 disables
	DpadXAxis int
	DpadYAxis int
}

func DefaultConfig() JoystickConfig {
	return JoystickConfig{
		Enabled:            true,
		ConnectionLocation: LocalityServer,
		Deadzone:           0.08,
		Sensitivity:        1,
		JogSpeedXY:         3000,
		JogSpeedZ:          500,
		ButtonMappings: map[int]string{
			DpadUp:    ActionJogYPlus,
			DpadDown:  ActionJogYMinus,
			DpadLeft:  ActionJogXMinus,
			DpadRight: ActionJogXPlus,
		},
		AnalogMappings: map[int]string{
			0: "x",
			1: "-y",
			3: "-z",
		},
		DpadXAxis: 6,
		DpadYAxis: 7,
	}
}

// ConfigFromStore reads the joystick subtree, falling back to defaults
// per field.
func ConfigFromStore(s *settings.Store) JoystickConfig {
	def := DefaultConfig()
	cfg := JoystickConfig{
		Enabled:            s.GetBool("joystick.enabled", def.Enabled),
		ConnectionLocation: Locality(s.GetString("joystick.connectionLocation", string(def.ConnectionLocation))),
		Deadzone:           s.GetFloat("joystick.deadzone", def.Deadzone),
		Sensitivity:        s.GetFloat("joystick.sensitivity", def.Sensitivity),
		InvertX:            s.GetBool("joystick.invertX", false),
		InvertY:            s.GetBool("joystick.invertY", false),
		InvertZ:            s.GetBool("joystick.invertZ", false),
		JogSpeedXY:         s.GetFloat("joystick.jogSpeedXY", def.JogSpeedXY),
		JogSpeedZ:          s.GetFloat("joystick.jogSpeedZ", def.JogSpeedZ),
		DpadXAxis:          int(s.GetFloat("joystick.dpadXAxis", float64(def.DpadXAxis))),
		DpadYAxis:          int(s.GetFloat("joystick.dpadYAxis", float64(def.DpadYAxis))),
	}

	cfg.ButtonMappings = def.ButtonMappings
	if m := s.GetStringMap("joystick.buttonMappings"); len(m) > 0 {
		cfg.ButtonMappings = indexMap(m)
	}
	cfg.AnalogMappings = def.AnalogMappings
	if m := s.GetStringMap("joystick.analogMappings"); len(m) > 0 {
		cfg.AnalogMappings = indexMap(m)
	}
	return cfg
}

func indexMap(m map[string]interface{}) map[int]string {
	res := make(map[int]string, len(m))
	for k, v := range m {
		idx, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		if str, ok := v.(string); ok {
			res[idx] = str
		}
	}
	return res
}
