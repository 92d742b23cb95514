package input

// Action names a button binding can resolve to. These are the values
// stored in JoystickConfig.ButtonMappings.
const (
	ActionEmergencyStop = "emergency_stop"
	ActionHomeAll       = "home_all"
	ActionUnlock        = "unlock"
	ActionZeroAll       = "zero_all"
	ActionZeroX         = "zero_x"
	ActionZeroY         = "zero_y"
	ActionZeroZ         = "zero_z"
	ActionStart         = "start"
	ActionStop          = "stop"
	ActionPause         = "pause"
	ActionResume        = "resume"
	ActionFeedHold      = "feed_hold"
	ActionSpindleOn     = "spindle_on"
	ActionSpindleOff    = "spindle_off"

	ActionJogXPlus  = "jog_x_plus"
	ActionJogXMinus = "jog_x_minus"
	ActionJogYPlus  = "jog_y_plus"
	ActionJogYMinus = "jog_y_minus"
	ActionJogZPlus  = "jog_z_plus"
	ActionJogZMinus = "jog_z_minus"
)

// IsJogAction reports whether the action belongs to the continuous
// jog controller rather than the discrete dispatcher.
func IsJogAction(action string) bool {
	switch action {
	case ActionJogXPlus, ActionJogXMinus,
		ActionJogYPlus, ActionJogYMinus,
		ActionJogZPlus, ActionJogZMinus:
		return true
	}
	return false
}
