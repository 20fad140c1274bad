package hub

import (
	"time"

	"github.com/Mr-Dark-debug/vantage/internal/camera"
	"github.com/Mr-Dark-debug/vantage/internal/core"
	"github.com/Mr-Dark-debug/vantage/internal/scene"
	"github.com/Mr-Dark-debug/vantage/internal/selection"
	"github.com/Mr-Dark-debug/vantage/internal/structindex"
	"github.com/Mr-Dark-debug/vantage/internal/visibility"
)

// Hit is a renderer hit-test result.
type Hit struct {
	UUID     string     `json:"uuid"`
	Kind     scene.Kind `json:"kind"`
	Distance float64    `json:"distance,omitempty"`
}

// Renderer draws the scene. The hub never constructs one; it is injected.
//
// ApplySelectionHighlight and ApplyMicroFX are mutually exclusive: each
// call supersedes whatever the other one last applied.
type Renderer interface {
	Resize(width, height int, dpr float64)
	UpdateCamera(state camera.State)
	ApplyFrame(visible visibility.Set)
	ApplySelectionHighlight(sel selection.Selection)
	ApplyMicroFX(state core.MicroState)
	Render()
	// PickObjectAt hit-tests normalized device coordinates in [-1, 1].
	// It returns nil for a miss.
	PickObjectAt(ndcX, ndcY float64) *Hit
	Dispose()
}

// DocumentLoader is implemented by renderers that build geometry from the
// document. The hub calls it after every load.
type DocumentLoader interface {
	LoadDocument(doc *scene.Document, idx *structindex.Index)
}

// SettingsApplier is implemented by renderers that honour viewer
// settings (labels, grid, axes).
type SettingsApplier interface {
	ApplySettings(settings core.ViewerSettings)
}

// FrameScheduler is the host's per-frame primitive. RequestFrame runs fn
// once, on the host's loop, at the next frame; cancel drops a pending
// request.
type FrameScheduler interface {
	RequestFrame(fn func(now time.Time)) (cancel func())
}
