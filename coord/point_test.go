package coord

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoint_Add(t *testing.T) {
	a := Point{X: 1, Y: 2, Z: 3}
	b := Point{X: 4, Y: 5, Z: 6}

	assert.Equal(t, Point{X: 5, Y: 7, Z: 9}, a.Add(b))
}

func TestPoint_Magnitude(t *testing.T) {
	assert.InEpsilon(t, 3.74166, Point{X: 1, Y: 2, Z: 3}.Magnitude(), .01)
	assert.Equal(t, 0.0, Point{}.Magnitude())
}

func TestPoint_ClampUnit(t *testing.T) {
	p := Point{X: 1.5, Y: -2, Z: 0.25}.ClampUnit()
	assert.Equal(t, Point{X: 1, Y: -1, Z: 0.25}, p)
}

func TestPoint_IsZero(t *testing.T) {
	assert.True(t, Point{X: 0.0001}.IsZero(0.001))
	assert.False(t, Point{X: 0.01}.IsZero(0.001))
}
