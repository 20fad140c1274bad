package core

import (
	"strings"

	"github.com/Mr-Dark-debug/vantage/internal/camera"
	"github.com/Mr-Dark-debug/vantage/pkg/jsonutil"
)

// Micro FX profiles.
const (
	ProfileSubtle = "subtle"
	ProfileNormal = "normal"
	ProfileStrong = "strong"
)

var profiles = map[string]bool{ProfileSubtle: true, ProfileNormal: true, ProfileStrong: true}

// RenderSettings are renderer toggles.
type RenderSettings struct {
	Labels bool `json:"labels" toml:"labels"`
	Grid   bool `json:"grid" toml:"grid"`
	Axes   bool `json:"axes" toml:"axes"`
}

// MicroFXSettings configure the micro-mode focus effect.
type MicroFXSettings struct {
	Profile string `json:"profile" toml:"profile"`
}

// FXSettings groups effect settings.
type FXSettings struct {
	Micro MicroFXSettings `json:"micro" toml:"micro"`
}

// CameraSettings holds user camera preferences.
type CameraSettings struct {
	FOV float64 `json:"fov" toml:"fov"`
}

// ViewerSettings are the user-facing viewer preferences.
type ViewerSettings struct {
	Render RenderSettings `json:"render" toml:"render"`
	FX     FXSettings     `json:"fx" toml:"fx"`
	Camera CameraSettings `json:"camera" toml:"camera"`
}

// DefaultViewerSettings returns the stock settings.
func DefaultViewerSettings() ViewerSettings {
	return ViewerSettings{
		Render: RenderSettings{Labels: false, Grid: true, Axes: true},
		FX:     FXSettings{Micro: MicroFXSettings{Profile: ProfileNormal}},
		Camera: CameraSettings{FOV: camera.DefaultFOV},
	}
}

func (v ViewerSettings) clone() ViewerSettings {
	if !profiles[v.FX.Micro.Profile] {
		v.FX.Micro.Profile = ProfileNormal
	}
	return v
}

// ViewerSettingsController is the only writer of viewer settings.
type ViewerSettingsController struct {
	s *UIState
}

// Get returns a copy of the current settings.
func (c *ViewerSettingsController) Get() ViewerSettings {
	if c.s.Discarded() {
		return ViewerSettings{}
	}
	return c.s.settings
}

// Revision increments on every settings change.
func (c *ViewerSettingsController) Revision() uint64 {
	return c.s.settingsRev
}

// FOVRevision increments only when the field of view changes.
func (c *ViewerSettingsController) FOVRevision() uint64 {
	return c.s.fovRev
}

// SetFOV sets the field of view. v may be any numeric value or numeric
// string; it is clamped to the valid range. A value that fails numeric
// coercion is ignored and false is returned.
func (c *ViewerSettingsController) SetFOV(v any) bool {
	if c.s.Discarded() {
		return false
	}
	f, ok := jsonutil.AsFloat(v)
	if !ok {
		return false
	}
	f = camera.ClampFOV(f)
	if f != c.s.settings.Camera.FOV {
		c.s.settings.Camera.FOV = f
		c.s.settingsRev++
		c.s.fovRev++
	}
	return true
}

// SetMicroProfile selects the micro FX profile. Unknown names are rejected.
func (c *ViewerSettingsController) SetMicroProfile(name string) bool {
	if c.s.Discarded() {
		return false
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if !profiles[name] {
		return false
	}
	if name != c.s.settings.FX.Micro.Profile {
		c.s.settings.FX.Micro.Profile = name
		c.s.settingsRev++
	}
	return true
}

// CycleMicroProfile advances subtle → normal → strong → subtle.
func (c *ViewerSettingsController) CycleMicroProfile() string {
	order := []string{ProfileSubtle, ProfileNormal, ProfileStrong}
	cur := c.Get().FX.Micro.Profile
	next := order[0]
	for i, p := range order {
		if p == cur {
			next = order[(i+1)%len(order)]
			break
		}
	}
	c.SetMicroProfile(next)
	return c.Get().FX.Micro.Profile
}

// SetRender sets a render toggle by name ("labels", "grid", "axes").
func (c *ViewerSettingsController) SetRender(key string, on bool) bool {
	if c.s.Discarded() {
		return false
	}
	r := &c.s.settings.Render
	var field *bool
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "labels":
		field = &r.Labels
	case "grid":
		field = &r.Grid
	case "axes":
		field = &r.Axes
	default:
		return false
	}
	if *field != on {
		*field = on
		c.s.settingsRev++
	}
	return true
}

// ToggleRender flips a render toggle and reports the new value.
func (c *ViewerSettingsController) ToggleRender(key string) bool {
	cur := c.Get().Render
	var on bool
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "labels":
		on = !cur.Labels
	case "grid":
		on = !cur.Grid
	case "axes":
		on = !cur.Axes
	default:
		return false
	}
	if !c.SetRender(key, on) {
		return false
	}
	return on
}
