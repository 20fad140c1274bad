package tui

import (
	"fmt"
	"math"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Mr-Dark-debug/vantage/internal/camera"
	"github.com/Mr-Dark-debug/vantage/internal/core"
	"github.com/Mr-Dark-debug/vantage/internal/debugbridge"
	"github.com/Mr-Dark-debug/vantage/internal/hub"
	"github.com/Mr-Dark-debug/vantage/internal/scene"
	"github.com/Mr-Dark-debug/vantage/internal/selection"
	"github.com/Mr-Dark-debug/vantage/internal/termrender"
)

// Camera input steps.
const (
	rotateStep = math.Pi / 36
	panStep    = 0.05
	zoomStep   = 1.15
	fovStep    = 5.0
)

// Model is the root BubbleTea model. It hosts one hub and maps input to
// the hub's controller namespace; it never touches state directly.
type Model struct {
	hub      *hub.Hub
	renderer *termrender.Renderer
	sched    *Scheduler
	help     help.Model

	bridge <-chan *debugbridge.Request
	reload <-chan Reload
	source string
	onQuit func(*hub.Hub)

	// UI state
	width, height int
	viewW, viewH  int
	showDetail    bool
	showHelp      bool
	moduleCursor  int

	// Status
	statusMsg string
	err       error
}

// Option configures a Model.
type Option func(*Model)

// WithBridge drains debug bridge requests on the UI goroutine.
func WithBridge(requests <-chan *debugbridge.Request) Option {
	return func(m *Model) { m.bridge = requests }
}

// Reload is one hot-reload event: a new document or the error that
// prevented loading it.
type Reload struct {
	Doc *scene.Document
	Err error
}

// WithReload replaces the document whenever one arrives on events.
func WithReload(events <-chan Reload) Option {
	return func(m *Model) { m.reload = events }
}

// WithSource names where the document came from, for the header.
func WithSource(name string) Option {
	return func(m *Model) { m.source = name }
}

// WithQuitHook runs fn on quit while the hub is still live.
func WithQuitHook(fn func(*hub.Hub)) Option {
	return func(m *Model) { m.onQuit = fn }
}

// NewModel creates the viewer around h, which must have been built with
// renderer and sched.
func NewModel(h *hub.Hub, renderer *termrender.Renderer, sched *Scheduler, opts ...Option) Model {
	m := Model{
		hub:        h,
		renderer:   renderer,
		sched:      sched,
		help:       help.New(),
		showDetail: true,
		statusMsg:  "Ready",
	}
	for _, o := range opts {
		o(&m)
	}
	return m
}

// ────────────────────────────────────────────────────────────
// Messages
// ────────────────────────────────────────────────────────────

type bridgeMsg struct{ req *debugbridge.Request }
type reloadMsg Reload

func waitBridge(ch <-chan *debugbridge.Request) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		req, ok := <-ch
		if !ok {
			return nil
		}
		return bridgeMsg{req}
	}
}

func waitReload(ch <-chan Reload) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return reloadMsg(ev)
	}
}

// ────────────────────────────────────────────────────────────
// Init
// ────────────────────────────────────────────────────────────

func (m Model) Init() tea.Cmd {
	m.hub.Start()
	return tea.Batch(m.sched.cmd(), waitBridge(m.bridge), waitReload(m.reload))
}

// ────────────────────────────────────────────────────────────
// Update
// ────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.layout()

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			if m.onQuit != nil && !m.hub.Disposed() {
				m.onQuit(m.hub)
			}
			m.hub.Dispose()
			return m, tea.Quit
		}
		m = m.handleKey(msg)

	case tea.MouseMsg:
		m = m.handleMouse(msg)

	case frameMsg:
		m.sched.fire(msg)

	case bridgeMsg:
		msg.req.Respond(debugbridge.Dispatch(m.hub, msg.req))
		cmd = waitBridge(m.bridge)

	case reloadMsg:
		if msg.Err != nil {
			m.err = msg.Err
			m.statusMsg = fmt.Sprintf("Reload failed: %v", msg.Err)
		} else if msg.Doc != nil {
			m.hub.LoadDocument(msg.Doc)
			m.err = nil
			m.moduleCursor = 0
			m.statusMsg = fmt.Sprintf("Reloaded %s", m.title())
		}
		cmd = waitReload(m.reload)
	}

	return m, tea.Batch(cmd, m.sched.cmd())
}

// layout sizes the scene viewport from the window and pane toggles.
func (m *Model) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	helpH := 0
	if m.showHelp {
		helpH = lipgloss.Height(m.help.FullHelpView(keys.FullHelp()))
	}
	m.viewW = m.width - m.detailWidth()
	m.viewH = max(m.height-2-helpH, 1)
	m.hub.Resize(m.viewW, m.viewH, 1)
}

func (m Model) detailWidth() int {
	if !m.showDetail || m.width < 70 {
		return 0
	}
	return min(44, m.width/3)
}

// handleKey routes keyboard input to the hub's controllers.
func (m Model) handleKey(msg tea.KeyMsg) Model {
	api := m.hub.Core()
	m.err = nil

	switch {
	// ── Camera ──
	case key.Matches(msg, keys.RotateLeft):
		api.Camera.Rotate(-rotateStep, 0)
	case key.Matches(msg, keys.RotateRight):
		api.Camera.Rotate(rotateStep, 0)
	case key.Matches(msg, keys.RotateUp):
		api.Camera.Rotate(0, -rotateStep)
	case key.Matches(msg, keys.RotateDown):
		api.Camera.Rotate(0, rotateStep)
	case key.Matches(msg, keys.PanLeft):
		api.Camera.Pan(-panStep, 0)
	case key.Matches(msg, keys.PanRight):
		api.Camera.Pan(panStep, 0)
	case key.Matches(msg, keys.PanUp):
		api.Camera.Pan(0, panStep)
	case key.Matches(msg, keys.PanDown):
		api.Camera.Pan(0, -panStep)
	case key.Matches(msg, keys.ZoomIn):
		api.Camera.Zoom(1 / zoomStep)
	case key.Matches(msg, keys.ZoomOut):
		api.Camera.Zoom(zoomStep)
	case key.Matches(msg, keys.FOVUp):
		api.Settings.SetFOV(api.Settings.Get().Camera.FOV + fovStep)
		m.statusMsg = fmt.Sprintf("FOV %.0f°", api.Settings.Get().Camera.FOV)
	case key.Matches(msg, keys.FOVDown):
		api.Settings.SetFOV(api.Settings.Get().Camera.FOV - fovStep)
		m.statusMsg = fmt.Sprintf("FOV %.0f°", api.Settings.Get().Camera.FOV)
	case key.Matches(msg, keys.Preset):
		m.statusMsg = "View " + api.Camera.CyclePreset(1)
	case key.Matches(msg, keys.PresetBack):
		m.statusMsg = "View " + api.Camera.CyclePreset(-1)
	case key.Matches(msg, keys.SnapX):
		api.Camera.SnapToAxis("x+")
	case key.Matches(msg, keys.SnapY):
		api.Camera.SnapToAxis("y+")
	case key.Matches(msg, keys.SnapZ):
		api.Camera.SnapToAxis("z+")
	case key.Matches(msg, keys.Reset):
		api.Camera.Reset()
		m.statusMsg = "View reset"
	case key.Matches(msg, keys.Orbit):
		on, err := m.hub.ToggleAutoOrbit()
		switch {
		case err != nil:
			m.err = err
			m.statusMsg = fmt.Sprintf("Error: %v", err)
		case on:
			m.statusMsg = "Auto-orbit on"
		default:
			m.statusMsg = "Auto-orbit off"
		}

	// ── Selection & mode ──
	case key.Matches(msg, keys.Next):
		m.cycle(1)
	case key.Matches(msg, keys.Prev):
		m.cycle(-1)
	case key.Matches(msg, keys.Focus):
		m.focus()
	case key.Matches(msg, keys.Back):
		switch {
		case api.Mode.Get() == core.ModeMicro:
			api.Mode.Exit()
		case api.Lock.Get():
			m.statusMsg = "Selection locked"
		default:
			api.Selection.Clear()
		}
	case key.Matches(msg, keys.Lock):
		switch {
		case api.Lock.Toggle():
			m.statusMsg = "Selection locked"
		case api.Selection.Get().Empty():
			m.statusMsg = "Nothing to lock"
		default:
			m.statusMsg = "Selection unlocked"
		}

	// ── Visibility ──
	case key.Matches(msg, keys.Points):
		api.Visibility.ToggleType(scene.KindPoints)
	case key.Matches(msg, keys.Lines):
		api.Visibility.ToggleType(scene.KindLines)
	case key.Matches(msg, keys.Aux):
		api.Visibility.ToggleType(scene.KindAux)
	case key.Matches(msg, keys.Module):
		mods := api.Visibility.Modules()
		if len(mods) == 0 {
			m.statusMsg = "No aux modules"
			break
		}
		name := mods[m.moduleCursor%len(mods)]
		m.moduleCursor++
		api.Visibility.ToggleAuxModule(name)
		m.statusMsg = fmt.Sprintf("Module %s %s", name, onOff(api.Visibility.ModuleEnabled(name)))
	case key.Matches(msg, keys.FrameNext):
		m.stepFrame(1)
	case key.Matches(msg, keys.FramePrev):
		m.stepFrame(-1)
	case key.Matches(msg, keys.FrameClear):
		api.Visibility.ClearFrame()
		m.statusMsg = "All frames"

	// ── Settings & panes ──
	case key.Matches(msg, keys.Profile):
		m.statusMsg = "Micro profile " + api.Settings.CycleMicroProfile()
	case key.Matches(msg, keys.Grid):
		m.statusMsg = "Grid " + onOff(api.Settings.ToggleRender("grid"))
	case key.Matches(msg, keys.Axes):
		m.statusMsg = "Axes " + onOff(api.Settings.ToggleRender("axes"))
	case key.Matches(msg, keys.Labels):
		m.statusMsg = "Labels " + onOff(api.Settings.ToggleRender("labels"))
	case key.Matches(msg, keys.Detail):
		m.showDetail = !m.showDetail
		m.layout()
	case key.Matches(msg, keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		m.layout()
	}
	return m
}

func (m *Model) cycle(dir int) {
	api := m.hub.Core()
	sel, ok := api.Selection.Cycle(dir)
	switch {
	case ok:
		m.statusMsg = fmt.Sprintf("%s %s", sel.Kind, sel.UUID)
	case api.Lock.Get():
		m.statusMsg = "Selection locked"
	default:
		m.statusMsg = "Nothing visible"
	}
}

// focus enters micro mode on the selection and moves the camera to it.
func (m *Model) focus() {
	api := m.hub.Core()
	sel := api.Selection.Get()
	if sel.Empty() {
		m.statusMsg = "Nothing selected"
		return
	}
	if !api.Mode.Focus(selection.Request{UUID: sel.UUID, Kind: sel.Kind}) {
		if api.Camera.AutoOrbiting() {
			m.statusMsg = "Stop auto-orbit to focus"
		} else {
			m.statusMsg = "Cannot focus " + sel.UUID
		}
		return
	}
	if p, ok := entityCenter(m.hub.State(), sel.UUID); ok {
		api.Camera.FocusOn(p, api.Camera.State().Distance)
	}
	m.statusMsg = "Focus " + sel.UUID
}

func (m *Model) stepFrame(dir int) {
	f, ok := m.hub.Core().Visibility.StepFrame(dir)
	if !ok {
		m.statusMsg = "No frames"
		return
	}
	m.statusMsg = fmt.Sprintf("Frame %d", f)
}

// handleMouse picks on left click and zooms on the wheel. Only the
// scene viewport reacts.
func (m Model) handleMouse(msg tea.MouseMsg) Model {
	col, row := msg.X, msg.Y-1 // below the header
	if col < 0 || row < 0 || col >= m.viewW || row >= m.viewH {
		return m
	}
	api := m.hub.Core()

	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		api.Camera.Zoom(1 / zoomStep)
	case msg.Button == tea.MouseButtonWheelDown:
		api.Camera.Zoom(zoomStep)
	case msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress:
		x, y := m.renderer.CellToNDC(col, row)
		hit := m.hub.PickObjectAt(x, y)
		if hit == nil {
			if !api.Lock.Get() {
				api.Selection.Clear()
			}
			return m
		}
		if _, ok := api.Selection.Select(selection.Request{UUID: hit.UUID, Kind: hit.Kind}); ok {
			m.statusMsg = fmt.Sprintf("%s %s", hit.Kind, hit.UUID)
		}
	}
	return m
}

// ────────────────────────────────────────────────────────────
// View
// ────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}
	if m.hub.Disposed() {
		return ""
	}

	header := renderHeader(&m)
	footer := renderFooter(&m)

	body := m.renderer.View()
	if w := m.detailWidth(); w > 0 {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, renderDetailPanel(&m, w, m.viewH))
	}

	parts := []string{header, body, footer}
	if m.showHelp {
		parts = append(parts, m.help.View(keys))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) title() string {
	if t := m.hub.Document().Title(); t != "" {
		return t
	}
	if m.source != "" {
		return m.source
	}
	return "untitled"
}

// entityCenter is where the camera looks when focusing uuid: a point's
// or aux entity's position, or the midpoint of a line's resolvable ends.
func entityCenter(state core.View, uuid string) (camera.Vec3, bool) {
	idx := state.Index()
	e, ok := idx.Entity(uuid)
	if !ok {
		return camera.Vec3{}, false
	}
	if p, ok := e.Position(); ok {
		return camera.V3(p[0], p[1], p[2]), true
	}
	end := func(name string) (camera.Vec3, bool) {
		if c, ok := e.EndPosition(name); ok {
			return camera.V3(c[0], c[1], c[2]), true
		}
		if ref, ok := e.EndRef(name); ok {
			if re, ok := idx.Entity(ref); ok {
				if p, ok := re.Position(); ok {
					return camera.V3(p[0], p[1], p[2]), true
				}
			}
		}
		return camera.Vec3{}, false
	}
	a, okA := end("end_a")
	b, okB := end("end_b")
	if !okA || !okB {
		return camera.Vec3{}, false
	}
	return a.Lerp(b, 0.5), true
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
