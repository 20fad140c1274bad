package hub

import (
	"github.com/Mr-Dark-debug/vantage/internal/camera"
	"github.com/Mr-Dark-debug/vantage/internal/core"
	"github.com/Mr-Dark-debug/vantage/internal/scene"
	"github.com/Mr-Dark-debug/vantage/internal/selection"
)

// Snapshot is a read-only, JSON-friendly view of the hub for diagnostics.
type Snapshot struct {
	Title     string              `json:"title,omitempty"`
	Mode      core.Mode           `json:"mode"`
	Selection selection.Selection `json:"selection"`
	Locked    bool                `json:"locked"`
	Frame     *int                `json:"frame,omitempty"`
	Frames    []int               `json:"frames,omitempty"`
	Types     map[scene.Kind]bool `json:"types"`
	Modules   map[string]bool     `json:"modules,omitempty"`
	Visible   map[scene.Kind]int  `json:"visible"`
	Camera    camera.State        `json:"camera"`
	Preset    string              `json:"preset,omitempty"`
	Runtime   core.Runtime        `json:"runtime"`
	Settings  core.ViewerSettings `json:"settings"`
	Viewport  Viewport            `json:"viewport"`
	Running   bool                `json:"running"`
	Disposed  bool                `json:"disposed"`
	Stats     Stats               `json:"stats"`
}

// Snapshot captures the current state.
func (h *Hub) Snapshot() Snapshot {
	snap := Snapshot{
		Mode:     h.state.Mode(),
		Disposed: h.disposed,
		Stats:    h.stats,
	}
	if h.disposed {
		return snap
	}

	api := h.api
	filters := api.Visibility.Filters()
	visible := h.state.VisibleSet()
	snap.Title = h.doc.Title()
	snap.Selection = api.Selection.Get()
	snap.Locked = api.Lock.Get()
	if f, ok := api.Visibility.Frame(); ok {
		snap.Frame = &f
	}
	snap.Frames = h.state.Index().Frames()
	snap.Types = filters.Types
	snap.Modules = make(map[string]bool)
	for _, m := range api.Visibility.Modules() {
		snap.Modules[m] = filters.ModuleEnabled(m)
	}
	snap.Visible = make(map[scene.Kind]int, len(scene.Kinds))
	for _, k := range scene.Kinds {
		snap.Visible[k] = len(visible.Of(k))
	}
	snap.Camera = api.Camera.State()
	snap.Preset = api.Camera.Preset()
	snap.Runtime = h.state.Runtime()
	snap.Settings = api.Settings.Get()
	snap.Viewport = h.viewport
	snap.Running = h.Running()
	return snap
}
