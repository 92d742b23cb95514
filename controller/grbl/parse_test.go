package grbl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsteckler/axiocnc/controller"
	"github.com/rsteckler/axiocnc/coord"
)

func TestParseStatus(t *testing.T) {
	stat, err := parseStatus(controller.Status{}, "<Idle|MPos:1.000,2.000,3.000|FS:0,0>")
	require.NoError(t, err)
	assert.Equal(t, controller.StateIdle, stat.ActiveState)
	assert.Equal(t, coord.Point{X: 1, Y: 2, Z: 3}, stat.MPos)
	assert.Equal(t, coord.Point{X: 1, Y: 2, Z: 3}, stat.WPos)
}

func TestParseStatus_WCOCarryOver(t *testing.T) {
	stat, err := parseStatus(controller.Status{}, "<Run|MPos:10.000,0.000,0.000|WCO:4.000,0.000,-2.000>")
	require.NoError(t, err)
	assert.Equal(t, coord.Point{X: 6, Y: 0, Z: 2}, stat.WPos)

	// next report omits WCO; it must still apply
	stat, err = parseStatus(*stat, "<Run|MPos:11.000,0.000,0.000|FS:500,0>")
	require.NoError(t, err)
	assert.Equal(t, coord.Point{X: 7, Y: 0, Z: 2}, stat.WPos)
	assert.Equal(t, 500.0, stat.Feed)
}

func TestParseStatus_SubState(t *testing.T) {
	stat, err := parseStatus(controller.Status{}, "<Hold:0|MPos:0.000,0.000,0.000>")
	require.NoError(t, err)
	assert.Equal(t, controller.StateHold, stat.ActiveState)
}

func TestParseStatus_Pins(t *testing.T) {
	stat, err := parseStatus(controller.Status{}, "<Alarm|MPos:0.000,0.000,0.000|Pn:XYZ>")
	require.NoError(t, err)
	assert.Equal(t, "XYZ", stat.PinState)

	stat, err = parseStatus(*stat, "<Alarm|MPos:0.000,0.000,0.000>")
	require.NoError(t, err)
	assert.Equal(t, "", stat.PinState)
}

func TestParseStatus_Invalid(t *testing.T) {
	_, err := parseStatus(controller.Status{}, "<Idle|MPos:1.000,2.000>")
	assert.Error(t, err)
}

func TestParseParserState(t *testing.T) {
	ps, err := parseParserState("[GC:G0 G54 G17 G21 G90 G94 M5 M9 T0 F0 S0]")
	require.NoError(t, err)
	assert.Equal(t, "G54", ps.Modal.WCS)
	assert.Equal(t, "M5", ps.Modal.Spindle)

	ps, err = parseParserState("[GC:G1 G56 G17 G21 G91 G94 M3 M8 T1 F500 S8000]")
	require.NoError(t, err)
	assert.Equal(t, "G56", ps.Modal.WCS)
	assert.Equal(t, "M3", ps.Modal.Spindle)
}

func TestParseErrorLine(t *testing.T) {
	ev := parseErrorLine("error:15")
	assert.Equal(t, 15, ev.Code)

	ev = parseErrorLine("error: Bad number format")
	assert.Equal(t, 0, ev.Code)
	assert.Equal(t, "Bad number format", ev.Message)
}

func TestParseAlarmLine(t *testing.T) {
	ev := parseAlarmLine("ALARM:9")
	assert.Equal(t, 9, ev.Code)
}
