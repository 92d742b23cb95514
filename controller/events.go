package controller

// Event is the tagged union of everything a controller can report.
type Event interface{ isEvent() }

// EventOpened fires once the device connection is usable.
type EventOpened struct{ Port string }

// EventClosed fires when the device connection goes away.
type EventClosed struct{ Port string }

// EventAck is a device "ok" acknowledging one queued line.
type EventAck struct{}

// EventError is a device-reported command error.
type EventError struct {
	Code    int
	Message string
}

// EventAlarm is a device alarm (hard/soft limit, probe fail, ...).
type EventAlarm struct {
	Code    int
	Message string
}

// EventState carries a parsed realtime status report.
type EventState struct{ Status Status }

// EventParserState carries parsed modal state ($G output).
type EventParserState struct{ Parser ParserState }

// EventReset fires when the device announces a (re)boot banner.
type EventReset struct{}

func (EventOpened) isEvent()      {}
func (EventClosed) isEvent()      {}
func (EventAck) isEvent()         {}
func (EventError) isEvent()       {}
func (EventAlarm) isEvent()       {}
func (EventState) isEvent()       {}
func (EventParserState) isEvent() {}
func (EventReset) isEvent()       {}
