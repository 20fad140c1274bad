// Package hub orchestrates one viewer instance: it owns the UI state, the
// camera and the render loop, and drives an injected Renderer.
//
// Per frame the hub resolves the camera, then visibility, then either the
// selection highlight (macro) or the micro FX (micro), and finally draws.
// Everything runs on the host's loop goroutine; the hub is not safe for
// concurrent use.
package hub

import (
	"errors"
	"fmt"
	"time"

	"github.com/Mr-Dark-debug/vantage/internal/camera"
	"github.com/Mr-Dark-debug/vantage/internal/core"
	"github.com/Mr-Dark-debug/vantage/internal/logging"
	"github.com/Mr-Dark-debug/vantage/internal/scene"
	"github.com/Mr-Dark-debug/vantage/internal/structindex"
	"github.com/Mr-Dark-debug/vantage/pkg/timeutil"
)

var (
	// ErrNilRenderer is returned by New without a renderer.
	ErrNilRenderer = errors.New("hub: nil renderer")
	// ErrNilScheduler is returned by New without a frame scheduler.
	ErrNilScheduler = errors.New("hub: nil frame scheduler")
)

// DefaultAutoOrbitSpeed is the auto-orbit speed in radians per second.
const DefaultAutoOrbitSpeed = 0.35

type options struct {
	seed      core.Seed
	camera    camera.State
	clock     timeutil.Clock
	autoSpeed float64
}

// Option configures New.
type Option func(*options)

// WithSeed sets the initial UI state.
func WithSeed(seed core.Seed) Option {
	return func(o *options) { o.seed = seed }
}

// WithCamera sets the initial camera pose.
func WithCamera(s camera.State) Option {
	return func(o *options) { o.camera = s }
}

// WithClock sets the clock used for camera timing.
func WithClock(c timeutil.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithAutoOrbitSpeed sets the speed used by ToggleAutoOrbit.
func WithAutoOrbitSpeed(radPerSec float64) Option {
	return func(o *options) { o.autoSpeed = radPerSec }
}

// Viewport is the drawing surface size.
type Viewport struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	DPR    float64 `json:"dpr"`
}

// Stats are render-loop counters.
type Stats struct {
	Frames        uint64        `json:"frames"`
	CameraPushes  uint64        `json:"camera_pushes"`
	FramePushes   uint64        `json:"frame_pushes"`
	PicksRejected uint64        `json:"picks_rejected"`
	LastFrameAt   time.Time     `json:"last_frame_at"`
	LastFrameTime time.Duration `json:"last_frame_time"`
}

// Core is the allow-listed mutation surface handed to host and UI code.
type Core struct {
	Selection  *core.SelectionController
	Mode       *core.ModeController
	Visibility *core.VisibilityController
	Lock       *core.LockController
	Settings   *core.ViewerSettingsController
	Camera     *camera.Controller
}

// Hub is one viewer instance.
type Hub struct {
	renderer  Renderer
	scheduler FrameScheduler
	clock     timeutil.Clock

	state  *core.UIState
	engine *camera.Engine
	api    *Core
	doc    *scene.Document

	running  bool
	disposed bool
	cancel   func()

	viewport  Viewport
	autoSpeed float64
	stats     Stats

	// last values pushed to the renderer
	pushed struct {
		valid       bool
		camera      camera.State
		visibleRev  uint64
		selRev      uint64
		settingsRev uint64
		fovRev      uint64
	}
}

// New builds a hub around renderer and scheduler and loads doc, which may
// be nil. Missing collaborators or an invalid seed fail here.
func New(doc *scene.Document, renderer Renderer, scheduler FrameScheduler, opts ...Option) (*Hub, error) {
	if renderer == nil {
		return nil, ErrNilRenderer
	}
	if scheduler == nil {
		return nil, ErrNilScheduler
	}
	o := options{
		seed:      core.DefaultSeed(),
		camera:    camera.DefaultState(),
		clock:     timeutil.SystemClock{},
		autoSpeed: DefaultAutoOrbitSpeed,
	}
	for _, opt := range opts {
		opt(&o)
	}

	state, err := core.NewUIState(o.seed)
	if err != nil {
		return nil, fmt.Errorf("creating ui state: %w", err)
	}
	ctl := core.NewControllers(state)

	writeAuto, err := state.ClaimCameraAutoWriter()
	if err != nil {
		return nil, fmt.Errorf("claiming camera auto flag: %w", err)
	}
	o.camera.FOV = ctl.Settings.Get().Camera.FOV
	engine := camera.NewEngine(o.camera, o.clock)

	h := &Hub{
		renderer:  renderer,
		scheduler: scheduler,
		clock:     o.clock,
		state:     state,
		autoSpeed: o.autoSpeed,
		api: &Core{
			Selection:  ctl.Selection,
			Mode:       ctl.Mode,
			Visibility: ctl.Visibility,
			Lock:       ctl.Lock,
			Settings:   ctl.Settings,
			Camera:     camera.NewController(engine, ctl.Mode, writeAuto, ctl.Settings),
		},
		engine: engine,
	}
	h.pushed.fovRev = ctl.Settings.FOVRevision()
	h.LoadDocument(doc)
	return h, nil
}

// MustNew is New that panics on error.
func MustNew(doc *scene.Document, renderer Renderer, scheduler FrameScheduler, opts ...Option) *Hub {
	h, err := New(doc, renderer, scheduler, opts...)
	if err != nil {
		panic(err)
	}
	return h
}

// Core returns the controller namespace. After Dispose the controllers
// are inert.
func (h *Hub) Core() *Core { return h.api }

// State exposes read-only UI state getters.
func (h *Hub) State() core.View { return h.state.View() }

// Document returns the loaded document.
func (h *Hub) Document() *scene.Document {
	if h.disposed {
		return nil
	}
	return h.doc
}

// Running reports whether the render loop is scheduled.
func (h *Hub) Running() bool { return h.running && !h.disposed }

// Disposed reports whether Dispose was called.
func (h *Hub) Disposed() bool { return h.disposed }

// Stats returns the render-loop counters.
func (h *Hub) Stats() Stats { return h.stats }

// Viewport returns the last size passed to Resize.
func (h *Hub) Viewport() Viewport { return h.viewport }

// AutoOrbitSpeed is the speed ToggleAutoOrbit uses.
func (h *Hub) AutoOrbitSpeed() float64 { return h.autoSpeed }

// ToggleAutoOrbit starts or stops auto-orbit at the configured speed.
func (h *Hub) ToggleAutoOrbit() (bool, error) {
	if h.disposed {
		return false, nil
	}
	return h.api.Camera.ToggleAutoOrbit(h.autoSpeed)
}

// LoadDocument replaces the document. The index is rebuilt, the UI state
// reset to it and the renderer, if it is a DocumentLoader, reloaded.
func (h *Hub) LoadDocument(doc *scene.Document) {
	if h.disposed {
		return
	}
	idx := structindex.Build(doc)
	h.doc = doc
	h.state.LoadIndex(idx)
	if loader, ok := h.renderer.(DocumentLoader); ok {
		loader.LoadDocument(doc, idx)
	}
	h.pushed.valid = false
	logging.For("hub").Info("document loaded",
		"title", doc.Title(), "entities", idx.Len(), "frames", len(idx.Frames()))
}

// Start schedules the render loop. Calling it while running, or after
// Dispose, does nothing.
func (h *Hub) Start() {
	if h.disposed || h.running {
		return
	}
	h.running = true
	h.schedule()
	logging.For("hub").Info("render loop started")
}

// Stop unschedules the render loop. A frame in progress completes.
func (h *Hub) Stop() {
	if h.disposed || !h.running {
		return
	}
	h.running = false
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	logging.For("hub").Info("render loop stopped")
}

// Dispose stops the loop, releases the renderer and discards the UI
// state. Every method is a no-op afterwards.
func (h *Hub) Dispose() {
	if h.disposed {
		return
	}
	h.Stop()
	h.disposed = true
	h.api.Camera.Dispose()
	h.state.Discard()
	h.renderer.Dispose()
	h.renderer = nil
	h.scheduler = nil
	h.doc = nil
	logging.For("hub").Info("hub disposed", "frames", h.stats.Frames)
}

// Resize forwards the new size to the renderer and pushes the camera.
func (h *Hub) Resize(width, height int, dpr float64) {
	if h.disposed {
		return
	}
	if dpr <= 0 {
		dpr = 1
	}
	h.viewport = Viewport{Width: width, Height: height, DPR: dpr}
	h.renderer.Resize(width, height, dpr)
	h.pushCamera(h.api.Camera.State())
}

// PickObjectAt hit-tests at normalized device coordinates. A hit on an
// entity that is not currently visible is discarded.
func (h *Hub) PickObjectAt(ndcX, ndcY float64) *Hit {
	if h.disposed {
		return nil
	}
	hit := h.renderer.PickObjectAt(ndcX, ndcY)
	if hit == nil {
		return nil
	}
	visible := h.state.VisibleSet()
	kind, ok := visible.KindOf(hit.UUID)
	if !ok {
		h.stats.PicksRejected++
		logging.For("hub").Debug("pick rejected", "uuid", hit.UUID)
		return nil
	}
	if !visible.Of(hit.Kind).Has(hit.UUID) {
		hit.Kind = kind
	}
	return hit
}

func (h *Hub) schedule() {
	h.cancel = h.scheduler.RequestFrame(h.frame)
}

func (h *Hub) frame(now time.Time) {
	if h.disposed || !h.running {
		return
	}
	h.cancel = nil
	h.step(now)
	if h.running && !h.disposed {
		h.schedule()
	}
}

// RenderNow runs one frame outside the loop, for hosts that draw on
// demand.
func (h *Hub) RenderNow() {
	if h.disposed {
		return
	}
	h.step(h.clock.Now())
}

// step runs one frame: camera, visibility, highlight or micro FX, render.
func (h *Hub) step(now time.Time) {
	started := h.clock.Now()
	force := !h.pushed.valid
	settings := h.api.Settings

	// camera; settings own the fov
	if rev := settings.FOVRevision(); rev != h.pushed.fovRev {
		h.pushed.fovRev = rev
		h.engine.SetFOV(settings.Get().Camera.FOV)
	}
	h.api.Camera.Update(now)
	if cs := h.api.Camera.State(); force || cs != h.pushed.camera {
		h.pushCamera(cs)
	}

	// visibility
	visChanged := h.state.VisibleRevision() != h.pushed.visibleRev
	if force || visChanged {
		h.pushed.visibleRev = h.state.VisibleRevision()
		h.renderer.ApplyFrame(h.state.VisibleSet())
		h.stats.FramePushes++
	}

	if applier, ok := h.renderer.(SettingsApplier); ok {
		if rev := settings.Revision(); force || rev != h.pushed.settingsRev {
			applier.ApplySettings(settings.Get())
		}
	}

	// highlight xor micro FX
	selRev := h.state.SelectionRevision()
	if force || visChanged || selRev != h.pushed.selRev || settings.Revision() != h.pushed.settingsRev {
		if ms, ok := core.MicroFX(h.state); ok {
			h.renderer.ApplyMicroFX(ms)
		} else {
			h.renderer.ApplySelectionHighlight(h.state.Selection())
		}
	}
	h.pushed.selRev = selRev
	h.pushed.settingsRev = settings.Revision()
	h.pushed.valid = true

	h.renderer.Render()

	h.stats.Frames++
	h.stats.LastFrameAt = now
	h.stats.LastFrameTime = h.clock.Now().Sub(started)
}

func (h *Hub) pushCamera(cs camera.State) {
	h.pushed.camera = cs
	h.renderer.UpdateCamera(cs)
	h.stats.CameraPushes++
}
