package settings

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestStore_GetSet(t *testing.T) {
	s := NewStore("", testLog())

	assert.Equal(t, 0.08, s.GetFloat("joystick.deadzone", 0.08))

	s.Set("joystick.deadzone", 0.2)
	assert.Equal(t, 0.2, s.GetFloat("joystick.deadzone", 0.08))
	assert.Equal(t, true, s.GetBool("joystick.enabled", true))

	s.Set("joystick.enabled", false)
	assert.Equal(t, false, s.GetBool("joystick.enabled", true))
}

func TestStore_WrongType(t *testing.T) {
	s := NewStore("", testLog())
	s.Set("joystick.deadzone", "not a number")

	assert.Equal(t, 0.08, s.GetFloat("joystick.deadzone", 0.08))
}

func TestStore_Watch(t *testing.T) {
	s := NewStore("", testLog())

	var fired int
	cancel := s.Watch(func() { fired++ })

	s.Set("joystick.sensitivity", 0.5)
	assert.Equal(t, 1, fired)

	cancel()
	s.Set("joystick.sensitivity", 0.7)
	assert.Equal(t, 1, fired)
}

func TestStore_Persistence(t *testing.T) {
	file := filepath.Join(t.TempDir(), "settings.json")

	s := NewStore(file, testLog())
	s.Set("joystick.jogSpeedXY", 3000.0)
	s.Replace("joystick.buttonMappings", map[string]interface{}{"0": "home_all"})

	_, err := os.Stat(file)
	require.NoError(t, err)

	s2 := NewStore(file, testLog())
	assert.Equal(t, 3000.0, s2.GetFloat("joystick.jogSpeedXY", 0))
	assert.Equal(t, "home_all", s2.GetStringMap("joystick.buttonMappings")["0"])
}
