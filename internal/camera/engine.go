package camera

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/Mr-Dark-debug/vantage/pkg/timeutil"
)

// ErrInvalidSpeed is returned by StartAutoOrbit for a zero or non-finite speed.
var ErrInvalidSpeed = errors.New("camera: invalid auto-orbit speed")

// TransitionDuration is the length of a smooth transition.
const TransitionDuration = 600 * time.Millisecond

const transitionEpsilon = 1e-6

// isoPhi is the polar angle of an isometric corner view.
var isoPhi = math.Acos(1 / math.Sqrt(3))

type angles struct{ theta, phi float64 }

var axisPresets = map[string]angles{
	"x+": {0, math.Pi / 2},
	"x-": {math.Pi, math.Pi / 2},
	"y+": {math.Pi / 2, math.Pi / 2},
	"y-": {3 * math.Pi / 2, math.Pi / 2},
	"z+": {math.Pi / 2, MinPhi},
	"z-": {math.Pi / 2, MaxPhi},
}

var anglePresets = map[string]angles{
	"iso-ne": {math.Pi / 4, isoPhi},
	"iso-nw": {3 * math.Pi / 4, isoPhi},
	"iso-sw": {5 * math.Pi / 4, isoPhi},
	"iso-se": {7 * math.Pi / 4, isoPhi},
}

// Presets is the cycling order of named views.
var Presets = []string{"x+", "y+", "z+", "iso-ne", "iso-nw", "iso-sw", "iso-se"}

// NextPresetName returns the preset after (direction >= 0) or before
// (direction < 0) current, wrapping around. An unknown or empty current
// counts as the start of the sequence going forward and its end going
// backward.
func NextPresetName(current string, direction int) string {
	current = strings.ToLower(strings.TrimSpace(current))
	idx := -1
	for i, p := range Presets {
		if p == current {
			idx = i
			break
		}
	}
	n := len(Presets)
	if idx < 0 {
		if direction < 0 {
			return Presets[n-1]
		}
		return Presets[0]
	}
	if direction < 0 {
		return Presets[(idx-1+n)%n]
	}
	return Presets[(idx+1)%n]
}

// Partial is a partial state update; nil fields are left alone.
type Partial struct {
	Target   *Vec3
	Distance *float64
	Theta    *float64
	Phi      *float64
	FOV      *float64
}

type transition struct {
	fromTarget, toTarget     Vec3
	fromDistance, toDistance float64
	start                    time.Time
}

type autoOrbit struct {
	speed float64 // radians per second around Z
	last  time.Time
}

// Engine holds the camera state and applies inputs to it. It does not
// know about UI state; see Controller.
type Engine struct {
	clock timeutil.Clock
	state State
	home  State

	auto *autoOrbit
	tr   *transition
}

// NewEngine creates an engine at initial, which also becomes the Reset
// pose. A nil clock uses the system clock.
func NewEngine(initial State, clock timeutil.Clock) *Engine {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	initial = initial.normalized()
	return &Engine{clock: clock, state: initial, home: initial}
}

// State returns the current state.
func (e *Engine) State() State { return e.state }

// Rotate orbits by dTheta around Z and dPhi towards the poles, in radians.
func (e *Engine) Rotate(dTheta, dPhi float64) {
	if !finite(dTheta, dPhi) {
		return
	}
	e.state.Theta = wrapTheta(e.state.Theta + dTheta)
	e.state.Phi = clampPhi(e.state.Phi + dPhi)
}

// Pan moves the target in the view plane. Deltas are fractions of the
// current distance.
func (e *Engine) Pan(dx, dy float64) {
	if !finite(dx, dy) {
		return
	}
	right, up, _ := e.state.Basis()
	d := e.state.Distance
	e.state.Target = e.state.Target.Add(right.Scale(dx * d)).Add(up.Scale(dy * d))
}

// Zoom multiplies the distance by factor (< 1 moves closer).
func (e *Engine) Zoom(factor float64) {
	if !finite(factor) || factor <= 0 {
		return
	}
	e.state.Distance = clampDistance(e.state.Distance * factor)
}

// SetState applies the non-nil fields of p. Non-finite values are ignored
// field by field.
func (e *Engine) SetState(p Partial) {
	if p.Target != nil && p.Target.finite() {
		e.state.Target = *p.Target
	}
	if p.Distance != nil && finite(*p.Distance) && *p.Distance > 0 {
		e.state.Distance = clampDistance(*p.Distance)
	}
	if p.Theta != nil && finite(*p.Theta) {
		e.state.Theta = wrapTheta(*p.Theta)
	}
	if p.Phi != nil && finite(*p.Phi) {
		e.state.Phi = clampPhi(*p.Phi)
	}
	if p.FOV != nil {
		e.SetFOV(*p.FOV)
	}
}

// Reset returns to the home pose, keeping the current fov.
func (e *Engine) Reset() {
	fov := e.state.FOV
	e.tr = nil
	e.state = e.home
	e.state.FOV = fov
}

// SnapToAxis turns to a face-on view ("x+", "x-", "y+", "y-", "z+", "z-").
// Only theta and phi change. Unknown names return false.
func (e *Engine) SnapToAxis(name string) bool {
	a, ok := axisPresets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return false
	}
	e.state.Theta, e.state.Phi = a.theta, a.phi
	return true
}

// ApplyPreset applies an axis or angle preset by name. Only theta and phi
// change. Unknown names return false.
func (e *Engine) ApplyPreset(name string) bool {
	key := strings.ToLower(strings.TrimSpace(name))
	if _, ok := axisPresets[key]; ok {
		return e.SnapToAxis(key)
	}
	a, ok := anglePresets[key]
	if !ok {
		return false
	}
	e.state.Theta, e.state.Phi = a.theta, a.phi
	return true
}

// SetFOV clamps and sets the fov. Non-finite input is ignored.
func (e *Engine) SetFOV(fov float64) bool {
	if !finite(fov) {
		return false
	}
	e.state.FOV = ClampFOV(fov)
	return true
}

// StartAutoOrbit spins the camera around Z at speed radians per second.
func (e *Engine) StartAutoOrbit(speed float64) error {
	if !finite(speed) || speed == 0 {
		return ErrInvalidSpeed
	}
	e.auto = &autoOrbit{speed: speed, last: e.clock.Now()}
	return nil
}

// StopAutoOrbit stops auto-orbit and reports whether it was running.
func (e *Engine) StopAutoOrbit() bool {
	was := e.auto != nil
	e.auto = nil
	return was
}

// AutoOrbiting reports whether auto-orbit is running.
func (e *Engine) AutoOrbiting() bool { return e.auto != nil }

// StartTransition begins a linear move of target and distance to the
// given values over TransitionDuration. Angles and fov are untouched.
func (e *Engine) StartTransition(target Vec3, distance float64) bool {
	if !target.finite() || !finite(distance) || distance <= 0 {
		return false
	}
	e.tr = &transition{
		fromTarget:   e.state.Target,
		toTarget:     target,
		fromDistance: e.state.Distance,
		toDistance:   clampDistance(distance),
		start:        e.clock.Now(),
	}
	return true
}

// Transitioning reports whether a transition is in progress.
func (e *Engine) Transitioning() bool { return e.tr != nil }

// Update advances auto-orbit and any transition to now. It reports
// whether the state changed.
func (e *Engine) Update(now time.Time) bool {
	changed := false
	if a := e.auto; a != nil {
		if dt := now.Sub(a.last).Seconds(); dt > 0 {
			e.state.Theta = wrapTheta(e.state.Theta + a.speed*dt)
			changed = true
		}
		a.last = now
	}
	if e.updateTransition(now) {
		changed = true
	}
	return changed
}

func (e *Engine) updateTransition(now time.Time) bool {
	tr := e.tr
	if tr == nil {
		return false
	}
	p := float64(now.Sub(tr.start)) / float64(TransitionDuration)
	p = math.Max(0, math.Min(1, p))
	if p >= 1-transitionEpsilon {
		e.state.Target = tr.toTarget
		e.state.Distance = tr.toDistance
		e.tr = nil
		return true
	}
	e.state.Target = tr.fromTarget.Lerp(tr.toTarget, p)
	e.state.Distance = tr.fromDistance + (tr.toDistance-tr.fromDistance)*p
	return true
}
