package camera

import (
	"time"

	"github.com/Mr-Dark-debug/vantage/internal/logging"
)

// ModeForcer returns the viewer to macro mode before auto-orbit starts.
type ModeForcer interface {
	ForceMacro()
}

// FOVWriter owns the field of view. The engine only mirrors it.
type FOVWriter interface {
	SetFOV(v any) bool
}

// Controller is the public camera surface. It is the only writer of the
// camera-auto runtime flag: every manual input stops auto-orbit, and the
// flag is raised only after auto-orbit has actually started.
type Controller struct {
	engine  *Engine
	mode    ModeForcer
	setAuto func(bool)
	fov     FOVWriter

	preset   string
	disposed bool
}

// NewController wraps engine. setAuto is the runtime flag writer; mode may
// be nil when there is no mode to force. When fov is non-nil, fov changes
// are forwarded to it and the host copies the result back into the
// engine; otherwise the engine is written directly.
func NewController(engine *Engine, mode ModeForcer, setAuto func(bool), fov FOVWriter) *Controller {
	if setAuto == nil {
		setAuto = func(bool) {}
	}
	return &Controller{engine: engine, mode: mode, setAuto: setAuto, fov: fov}
}

// State returns the current camera state.
func (c *Controller) State() State {
	if c.disposed {
		return State{}
	}
	return c.engine.State()
}

// Preset returns the last applied preset name, empty after manual input.
func (c *Controller) Preset() string { return c.preset }

// AutoOrbiting reports whether auto-orbit is running.
func (c *Controller) AutoOrbiting() bool {
	return !c.disposed && c.engine.AutoOrbiting()
}

func (c *Controller) manual() bool {
	if c.disposed {
		return false
	}
	c.StopAutoOrbit()
	return true
}

// Rotate orbits the camera.
func (c *Controller) Rotate(dTheta, dPhi float64) {
	if c.manual() {
		c.preset = ""
		c.engine.Rotate(dTheta, dPhi)
	}
}

// Pan moves the target in the view plane.
func (c *Controller) Pan(dx, dy float64) {
	if c.manual() {
		c.engine.Pan(dx, dy)
	}
}

// Zoom scales the distance.
func (c *Controller) Zoom(factor float64) {
	if c.manual() {
		c.engine.Zoom(factor)
	}
}

// SetState applies a partial state.
func (c *Controller) SetState(p Partial) {
	if c.manual() {
		if p.Theta != nil || p.Phi != nil {
			c.preset = ""
		}
		if p.FOV != nil && c.fov != nil {
			c.fov.SetFOV(*p.FOV)
			p.FOV = nil
		}
		c.engine.SetState(p)
	}
}

// Reset returns to the home pose.
func (c *Controller) Reset() {
	if c.manual() {
		c.preset = ""
		c.engine.Reset()
	}
}

// SnapToAxis turns to a face-on view.
func (c *Controller) SnapToAxis(name string) bool {
	if !c.manual() || !c.engine.SnapToAxis(name) {
		return false
	}
	c.preset = name
	return true
}

// ApplyPreset applies a named preset.
func (c *Controller) ApplyPreset(name string) bool {
	if !c.manual() || !c.engine.ApplyPreset(name) {
		return false
	}
	c.preset = name
	return true
}

// CyclePreset applies the next or previous preset and returns its name.
func (c *Controller) CyclePreset(direction int) string {
	name := NextPresetName(c.preset, direction)
	if !c.ApplyPreset(name) {
		return ""
	}
	return name
}

// FocusOn transitions the target to p, keeping angles and fov.
func (c *Controller) FocusOn(p Vec3, distance float64) bool {
	return c.manual() && c.engine.StartTransition(p, distance)
}

// SetFOV clamps and sets the fov.
func (c *Controller) SetFOV(fov float64) bool {
	if c.disposed {
		return false
	}
	if c.fov != nil {
		return finite(fov) && c.fov.SetFOV(fov)
	}
	return c.engine.SetFOV(fov)
}

// StartAutoOrbit forces macro mode and starts spinning. The runtime flag
// is set only when the engine confirms the start.
func (c *Controller) StartAutoOrbit(speed float64) error {
	if c.disposed {
		return nil
	}
	if c.mode != nil {
		c.mode.ForceMacro()
	}
	if err := c.engine.StartAutoOrbit(speed); err != nil {
		c.setAuto(false)
		return err
	}
	c.setAuto(true)
	logging.For("camera").Debug("auto-orbit started", "speed", speed)
	return nil
}

// StopAutoOrbit stops spinning and clears the runtime flag.
func (c *Controller) StopAutoOrbit() {
	if c.disposed {
		return
	}
	if c.engine.StopAutoOrbit() {
		logging.For("camera").Debug("auto-orbit stopped")
	}
	c.setAuto(false)
}

// ToggleAutoOrbit starts or stops auto-orbit and reports whether it runs.
func (c *Controller) ToggleAutoOrbit(speed float64) (bool, error) {
	if c.AutoOrbiting() {
		c.StopAutoOrbit()
		return false, nil
	}
	if err := c.StartAutoOrbit(speed); err != nil {
		return false, err
	}
	return c.AutoOrbiting(), nil
}

// Update advances the engine to now.
func (c *Controller) Update(now time.Time) bool {
	if c.disposed {
		return false
	}
	return c.engine.Update(now)
}

// Dispose stops auto-orbit and detaches the controller. Later calls are
// no-ops.
func (c *Controller) Dispose() {
	if c.disposed {
		return
	}
	c.StopAutoOrbit()
	c.disposed = true
	c.mode = nil
}
