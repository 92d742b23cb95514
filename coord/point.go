package coord

import (
	"math"
)

type Point struct{ X, Y, Z float64 }

func (p Point) Equal(b Point) bool {
	return p.X == b.X && p.Y == b.Y && p.Z == b.Z
}
func (p Point) Dot(op Point) float64 {
	return p.X*op.X + p.Y*op.Y + p.Z*op.Z
}
func (p Point) Mul(val float64) Point {
	p.X *= val
	p.Y *= val
	p.Z *= val
	return p
}

// Add will add the target values to p.
func (p Point) Add(target Point) Point {
	p.X += target.X
	p.Y += target.Y
	p.Z += target.Z
	return p
}

// Sub will subtract the target values from p.
func (p Point) Sub(target Point) Point {
	p.X -= target.X
	p.Y -= target.Y
	p.Z -= target.Z
	return p
}

// Magnitude returns the vector length of p.
func (p Point) Magnitude() float64 {
	return math.Sqrt(p.Dot(p))
}

// ClampUnit limits each axis to the [-1,1] range.
func (p Point) ClampUnit() Point {
	p.X = clamp1(p.X)
	p.Y = clamp1(p.Y)
	p.Z = clamp1(p.Z)
	return p
}

func clamp1(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// IsZero reports whether the vector magnitude is below eps.
func (p Point) IsZero(eps float64) bool {
	return p.Magnitude() < eps
}
