package main

import (
	"github.com/Mr-Dark-debug/vantage/internal/camera"
	"github.com/Mr-Dark-debug/vantage/internal/core"
	"github.com/Mr-Dark-debug/vantage/internal/database"
	"github.com/Mr-Dark-debug/vantage/internal/hub"
	"github.com/Mr-Dark-debug/vantage/internal/selection"
)

// captureSession records what the viewer shows now.
func captureSession(h *hub.Hub) database.SessionState {
	snap := h.Snapshot()
	return database.SessionState{
		Mode:      snap.Mode,
		Selection: snap.Selection,
		Locked:    snap.Locked,
		Frame:     snap.Frame,
		Filters:   h.Core().Visibility.Filters(),
		Camera:    snap.Camera,
		Settings:  snap.Settings,
	}
}

// restoreSeed overlays a saved session on the configured seed. The mode
// stays macro: micro needs a focus target, restored by restoreSelection.
func restoreSeed(base core.Seed, st database.SessionState) core.Seed {
	filters := base.Filters.Clone()
	for k, on := range st.Filters.Types {
		if k.Valid() {
			filters.Types[k] = on
		}
	}
	for name, on := range st.Filters.AuxModules {
		filters.AuxModules[name] = on
	}

	settings := *base.ViewerSettings
	if st.Settings.FX.Micro.Profile != "" {
		settings = st.Settings
	}

	seed := core.Seed{
		Mode:           core.ModeMacro,
		Filters:        &filters,
		ViewerSettings: &settings,
		ActiveFrame:    base.ActiveFrame,
	}
	if st.Frame != nil {
		f := *st.Frame
		seed.ActiveFrame = &f
	}
	return seed
}

// restoreCamera returns the saved camera when one was recorded.
func restoreCamera(st database.SessionState) (camera.State, bool) {
	if st.Camera.Distance <= 0 {
		return camera.State{}, false
	}
	return st.Camera, true
}

// restoreSelection reapplies the selection, micro mode and lock. Entities
// that no longer exist are ignored.
func restoreSelection(h *hub.Hub, st database.SessionState) {
	if st.Selection.Empty() {
		return
	}
	api := h.Core()
	req := selection.Request{UUID: st.Selection.UUID, Kind: st.Selection.Kind}
	if st.Mode == core.ModeMicro {
		api.Mode.Focus(req)
	} else {
		api.Selection.Select(req)
	}
	if st.Locked && !api.Selection.Get().Empty() {
		api.Lock.Set(true)
	}
}
