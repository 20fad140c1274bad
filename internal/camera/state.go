// Package camera implements a Z-up spherical orbit camera: a target point,
// a distance from it, an azimuth theta around Z and a polar angle phi
// measured from +Z.
package camera

import (
	"math"
)

// Limits.
const (
	DefaultFOV = 50.0
	MinFOV     = 10.0
	MaxFOV     = 120.0

	MinDistance = 0.05
	MaxDistance = 1e5

	// phi stays off the poles so the view basis is always defined.
	MinPhi = 1e-3
	MaxPhi = math.Pi - 1e-3
)

// ClampFOV clamps f to [MinFOV, MaxFOV]. NaN yields DefaultFOV.
func ClampFOV(f float64) float64 {
	if math.IsNaN(f) {
		return DefaultFOV
	}
	return math.Max(MinFOV, math.Min(MaxFOV, f))
}

func clampDistance(d float64) float64 {
	return math.Max(MinDistance, math.Min(MaxDistance, d))
}

func clampPhi(p float64) float64 {
	return math.Max(MinPhi, math.Min(MaxPhi, p))
}

// wrapTheta maps t into [0, 2π).
func wrapTheta(t float64) float64 {
	t = math.Mod(t, 2*math.Pi)
	if t < 0 {
		t += 2 * math.Pi
	}
	return t
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Vec3 is a 3D vector.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// V3 is shorthand for Vec3{x, y, z}.
func V3(x, y, z float64) Vec3 { return Vec3{x, y, z} }

func (a Vec3) Add(b Vec3) Vec3 { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a Vec3) Sub(b Vec3) Vec3 { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (a Vec3) Scale(s float64) Vec3 { return Vec3{a.X * s, a.Y * s, a.Z * s} }
func (a Vec3) Dot(b Vec3) float64 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }
func (a Vec3) Len() float64 { return math.Sqrt(a.Dot(a)) }
func (a Vec3) Lerp(b Vec3, t float64) Vec3 {
	return Vec3{a.X + (b.X-a.X)*t, a.Y + (b.Y-a.Y)*t, a.Z + (b.Z-a.Z)*t}
}

// Cross returns a × b.
func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{a.Y*b.Z - a.Z*b.Y, a.Z*b.X - a.X*b.Z, a.X*b.Y - a.Y*b.X}
}

// Normal returns a unit vector, or the zero vector for a zero input.
func (a Vec3) Normal() Vec3 {
	l := a.Len()
	if l == 0 {
		return Vec3{}
	}
	return a.Scale(1 / l)
}

func (a Vec3) finite() bool { return finite(a.X, a.Y, a.Z) }

// Array returns the vector as [x, y, z].
func (a Vec3) Array() [3]float64 { return [3]float64{a.X, a.Y, a.Z} }

// State is the full camera state.
type State struct {
	Target   Vec3    `json:"target"`
	Distance float64 `json:"distance"`
	Theta    float64 `json:"theta"`
	Phi      float64 `json:"phi"`
	FOV      float64 `json:"fov"`
}

// DefaultState looks at the origin from a raised three-quarter view.
func DefaultState() State {
	return State{
		Distance: 10,
		Theta:    math.Pi / 4,
		Phi:      math.Pi / 3,
		FOV:      DefaultFOV,
	}
}

// Eye returns the camera position.
func (s State) Eye() Vec3 {
	sp := math.Sin(s.Phi)
	return s.Target.Add(Vec3{
		X: s.Distance * sp * math.Cos(s.Theta),
		Y: s.Distance * sp * math.Sin(s.Theta),
		Z: s.Distance * math.Cos(s.Phi),
	})
}

// Basis returns the right, up and forward unit vectors of the view.
// Forward points from the eye to the target.
func (s State) Basis() (right, up, forward Vec3) {
	forward = s.Target.Sub(s.Eye()).Normal()
	right = forward.Cross(Vec3{Z: 1}).Normal()
	if right == (Vec3{}) {
		right = Vec3{X: 1}
	}
	up = right.Cross(forward).Normal()
	return right, up, forward
}

// normalized returns s with every field within its valid range.
func (s State) normalized() State {
	s.Distance = clampDistance(s.Distance)
	s.Theta = wrapTheta(s.Theta)
	s.Phi = clampPhi(s.Phi)
	s.FOV = ClampFOV(s.FOV)
	return s
}
