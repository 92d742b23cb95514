package grbl

import (
	"errors"
	"strconv"
	"strings"

	"github.com/rsteckler/axiocnc/controller"
	"github.com/rsteckler/axiocnc/coord"
)

func parseCoords(data string) (p coord.Point, err error) {
	parts := strings.Split(data, ",")
	if len(parts) != 3 {
		return p, errors.New("invalid number of elements")
	}
	p.X, err = strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return p, err
	}
	p.Y, err = strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return p, err
	}
	p.Z, err = strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return p, err
	}
	return p, nil
}

// parseStatus parses a realtime status report like
// <Idle|MPos:1.000,2.000,3.000|FS:500,8000|Pn:XYZ> on top of the
// previous status. Grbl 1.1 only includes WCO periodically, so the
// missing position flavor is derived from the carried-over WCO.
func parseStatus(stat controller.Status, data string) (*controller.Status, error) {
	data = strings.TrimSpace(data)
	data = strings.TrimPrefix(data, "<")
	data = strings.TrimSuffix(data, ">")
	parts := strings.Split(data, "|")
	if parts[0] == "" {
		return nil, errors.New("empty status report")
	}

	// sub-state suffixes like Hold:0 or Door:1 fold into the base state
	stat.ActiveState = controller.ActiveState(strings.SplitN(parts[0], ":", 2)[0])
	stat.PinState = ""

	var err error
	var haveMPos, haveWPos bool
	for _, s := range parts[1:] {
		sParts := strings.SplitN(s, ":", 2)
		if len(sParts) != 2 {
			continue
		}
		switch sParts[0] {
		case "MPos":
			stat.MPos, err = parseCoords(sParts[1])
			haveMPos = true
		case "WPos":
			stat.WPos, err = parseCoords(sParts[1])
			haveWPos = true
		case "WCO":
			stat.WCO, err = parseCoords(sParts[1])
		case "Pn":
			stat.PinState = sParts[1]
		case "FS":
			fs := strings.Split(sParts[1], ",")
			if len(fs) != 2 {
				return nil, errors.New("invalid FS field")
			}
			stat.Feed, err = strconv.ParseFloat(fs[0], 64)
			if err == nil {
				stat.Speed, err = strconv.ParseFloat(fs[1], 64)
			}
		case "F":
			stat.Feed, err = strconv.ParseFloat(sParts[1], 64)
		}
		if err != nil {
			return nil, err
		}
	}

	if haveMPos && !haveWPos {
		stat.WPos = stat.MPos.Sub(stat.WCO)
	} else if haveWPos && !haveMPos {
		stat.MPos = stat.WPos.Add(stat.WCO)
	}

	return &stat, nil
}

// parseParserState parses $G output like
// [GC:G0 G54 G17 G21 G90 G94 M5 M9 T0 F0 S0].
func parseParserState(data string) (*controller.ParserState, error) {
	data = strings.TrimSpace(data)
	data = strings.TrimPrefix(data, "[")
	data = strings.TrimSuffix(data, "]")
	if !strings.HasPrefix(data, "GC:") {
		return nil, errors.New("unknown PUSH message: " + data)
	}

	var ps controller.ParserState
	for _, w := range strings.Fields(strings.TrimPrefix(data, "GC:")) {
		switch w {
		case "G54", "G55", "G56", "G57", "G58", "G59":
			ps.Modal.WCS = w
		case "M3", "M4", "M5":
			ps.Modal.Spindle = w
		}
	}
	if ps.Modal.WCS == "" {
		return nil, errors.New("parser state without coordinate system: " + data)
	}
	return &ps, nil
}

// parseErrorLine handles both numeric (Grbl 1.1 "error:15") and legacy
// text ("error: Bad number format") error reports.
func parseErrorLine(data string) controller.EventError {
	msg := strings.TrimSpace(strings.TrimPrefix(data, "error:"))
	code, err := strconv.Atoi(msg)
	if err != nil {
		return controller.EventError{Message: msg}
	}
	return controller.EventError{Code: code, Message: data}
}

func parseAlarmLine(data string) controller.EventAlarm {
	msg := strings.TrimSpace(strings.TrimPrefix(data, "ALARM:"))
	code, err := strconv.Atoi(msg)
	if err != nil {
		return controller.EventAlarm{Message: msg}
	}
	return controller.EventAlarm{Code: code, Message: data}
}
