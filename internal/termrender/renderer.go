// Package termrender draws a scene onto a character grid with lipgloss.
// It implements the hub's Renderer and DocumentLoader contracts and is a
// reference renderer for terminals; it is not part of the state core.
package termrender

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Mr-Dark-debug/vantage/internal/camera"
	"github.com/Mr-Dark-debug/vantage/internal/core"
	"github.com/Mr-Dark-debug/vantage/internal/hub"
	"github.com/Mr-Dark-debug/vantage/internal/logging"
	"github.com/Mr-Dark-debug/vantage/internal/scene"
	"github.com/Mr-Dark-debug/vantage/internal/selection"
	"github.com/Mr-Dark-debug/vantage/internal/structindex"
	"github.com/Mr-Dark-debug/vantage/internal/visibility"
)

// cellAspect is the height of a terminal cell relative to its width.
const cellAspect = 2.0

// pickRadius is the hit-test radius in cell widths.
const pickRadius = 2.5

const nearPlane = 0.05

var (
	_ hub.Renderer        = (*Renderer)(nil)
	_ hub.DocumentLoader  = (*Renderer)(nil)
	_ hub.SettingsApplier = (*Renderer)(nil)
)

type cell struct {
	r     rune
	ink   ink
	depth float64
}

// sample is a projected, pickable position of an entity.
type sample struct {
	uuid  string
	kind  scene.Kind
	x, y  float64 // ndc
	depth float64
}

// Renderer rasterizes the scene. Buffers are kept between frames and
// reused; a Renderer is not safe for concurrent use.
type Renderer struct {
	width, height int
	dpr           float64

	cam      camera.State
	geometry []primitive
	visible  visibility.Set
	sel      selection.Selection
	micro    *core.MicroState
	related  map[string]bool
	settings core.ViewerSettings

	styles  [inkCount]lipgloss.Style
	cells   []cell
	samples []sample
	out     string
	stale   bool
	renders int
}

// New creates a renderer of the given size in cells.
func New(width, height int) *Renderer {
	r := &Renderer{
		cam:      camera.DefaultState(),
		visible:  visibility.NewSet(),
		settings: core.DefaultViewerSettings(),
		styles:   styleTable(),
		stale:    true,
	}
	r.Resize(width, height, 1)
	return r
}

// Resize sets the grid size in cells.
func (r *Renderer) Resize(width, height int, dpr float64) {
	r.width, r.height, r.dpr = max(width, 1), max(height, 1), dpr
	r.stale = true
}

// Size returns the grid size in cells.
func (r *Renderer) Size() (int, int) { return r.width, r.height }

// UpdateCamera sets the camera used for projection.
func (r *Renderer) UpdateCamera(state camera.State) {
	r.cam = state
	r.stale = true
}

// LoadDocument rebuilds the geometry.
func (r *Renderer) LoadDocument(doc *scene.Document, idx *structindex.Index) {
	r.geometry = buildGeometry(doc, idx)
	r.sel = selection.None
	r.micro = nil
	r.stale = true
	logging.For("termrender").Debug("geometry built", "primitives", len(r.geometry))
}

// ApplyFrame sets the visible set.
func (r *Renderer) ApplyFrame(visible visibility.Set) {
	r.visible = visible
	r.stale = true
}

// ApplySelectionHighlight highlights sel and clears any micro FX.
func (r *Renderer) ApplySelectionHighlight(sel selection.Selection) {
	r.sel = sel
	r.micro = nil
	r.related = nil
	r.stale = true
}

// ApplyMicroFX focuses one entity and clears the selection highlight.
func (r *Renderer) ApplyMicroFX(state core.MicroState) {
	r.sel = selection.None
	r.micro = &state
	r.related = make(map[string]bool, len(state.Related))
	for _, id := range state.Related {
		r.related[id] = true
	}
	r.stale = true
}

// ApplySettings applies render toggles.
func (r *Renderer) ApplySettings(settings core.ViewerSettings) {
	r.settings = settings
	r.stale = true
}

// Render rasterizes the current frame if anything changed.
func (r *Renderer) Render() {
	if r.stale {
		r.rasterize()
	}
}

// View returns the last rendered frame.
func (r *Renderer) View() string {
	r.Render()
	return r.out
}

// Renders counts rasterizations.
func (r *Renderer) Renders() int { return r.renders }

// PickObjectAt returns the entity drawn nearest to (ndcX, ndcY), within
// a small radius. Points win ties over lines.
func (r *Renderer) PickObjectAt(ndcX, ndcY float64) *hub.Hit {
	r.Render()
	best := -1
	bestScore := math.Inf(1)
	for i, s := range r.samples {
		dx := (s.x - ndcX) * float64(r.width) / 2
		dy := (s.y - ndcY) * float64(r.height) / 2 * cellAspect
		d := math.Hypot(dx, dy)
		if d > pickRadius {
			continue
		}
		score := d + s.depth*1e-6
		if s.kind != scene.KindLines {
			score -= 0.5
		}
		if score < bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return nil
	}
	s := r.samples[best]
	return &hub.Hit{UUID: s.uuid, Kind: s.kind, Distance: s.depth}
}

// CellToNDC converts a cell position to normalized device coordinates.
func (r *Renderer) CellToNDC(col, row int) (float64, float64) {
	x := (float64(col)+0.5)/float64(r.width)*2 - 1
	y := 1 - (float64(row)+0.5)/float64(r.height)*2
	return x, y
}

// Dispose drops every buffer.
func (r *Renderer) Dispose() {
	r.geometry = nil
	r.cells = nil
	r.samples = nil
	r.out = ""
}

// view is the per-frame projection.
type view struct {
	eye, right, up, fwd camera.Vec3
	f, aspect           float64
}

func (r *Renderer) newView() view {
	right, up, fwd := r.cam.Basis()
	fov := camera.ClampFOV(r.cam.FOV) * math.Pi / 180
	return view{
		eye:    r.cam.Eye(),
		right:  right,
		up:     up,
		fwd:    fwd,
		f:      1 / math.Tan(fov/2),
		aspect: float64(r.width) / (float64(r.height) * cellAspect),
	}
}

// project maps a world point to ndc. ok is false behind the near plane.
func (v view) project(p camera.Vec3) (x, y, depth float64, ok bool) {
	d := p.Sub(v.eye)
	depth = d.Dot(v.fwd)
	if depth <= nearPlane {
		return 0, 0, depth, false
	}
	x = d.Dot(v.right) * v.f / v.aspect / depth
	y = d.Dot(v.up) * v.f / depth
	return x, y, depth, true
}

// Project maps a world point to ndc with the current camera.
func (r *Renderer) Project(p camera.Vec3) (x, y float64, ok bool) {
	x, y, _, ok = r.newView().project(p)
	return x, y, ok
}

func (r *Renderer) toCell(x, y float64) (int, int, bool) {
	col := int(math.Floor((x + 1) / 2 * float64(r.width)))
	row := int(math.Floor((1 - y) / 2 * float64(r.height)))
	if col < 0 || row < 0 || col >= r.width || row >= r.height {
		return 0, 0, false
	}
	return col, row, true
}

func (r *Renderer) plot(x, y, depth float64, ch rune, k ink) {
	col, row, ok := r.toCell(x, y)
	if !ok {
		return
	}
	c := &r.cells[row*r.width+col]
	if c.ink != inkNone && c.depth < depth {
		return
	}
	*c = cell{r: ch, ink: k, depth: depth}
}

func (r *Renderer) segment(v view, a, b camera.Vec3, ch rune, k ink, pick *sample) {
	ax, ay, _, okA := v.project(a)
	bx, by, _, okB := v.project(b)
	if !okA && !okB {
		return
	}
	cols := math.Abs(bx-ax) * float64(r.width) / 2
	rows := math.Abs(by-ay) * float64(r.height) / 2
	steps := int(math.Min(512, math.Max(2, math.Max(cols, rows)*1.5)))
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x, y, d, ok := v.project(a.Lerp(b, t))
		if !ok {
			continue
		}
		r.plot(x, y, d, ch, k)
		if pick != nil {
			s := *pick
			s.x, s.y, s.depth = x, y, d
			r.samples = append(r.samples, s)
		}
	}
}

// inkFor picks the style of an entity. inkNone means do not draw.
func (r *Renderer) inkFor(id string, base ink) ink {
	if m := r.micro; m != nil {
		switch {
		case id == m.Focus.UUID:
			return inkFocus
		case r.related[id]:
			return inkRelated
		}
		switch m.Profile {
		case core.ProfileSubtle:
			return base
		case core.ProfileStrong:
			return inkNone
		}
		return inkDimmed
	}
	if id == r.sel.UUID {
		return inkSelected
	}
	return base
}

func (r *Renderer) rasterize() {
	n := r.width * r.height
	if cap(r.cells) < n {
		r.cells = make([]cell, n)
	}
	r.cells = r.cells[:n]
	for i := range r.cells {
		r.cells[i] = cell{}
	}
	r.samples = r.samples[:0]
	v := r.newView()

	if r.settings.Render.Grid {
		for i := -10; i <= 10; i += 2 {
			f := float64(i)
			r.segment(v, camera.V3(f, -10, 0), camera.V3(f, 10, 0), glyphGrid, inkGrid, nil)
			r.segment(v, camera.V3(-10, f, 0), camera.V3(10, f, 0), glyphGrid, inkGrid, nil)
		}
	}
	if r.settings.Render.Axes {
		r.segment(v, camera.Vec3{}, camera.V3(3, 0, 0), glyphAxis, inkAxisX, nil)
		r.segment(v, camera.Vec3{}, camera.V3(0, 3, 0), glyphAxis, inkAxisY, nil)
		r.segment(v, camera.Vec3{}, camera.V3(0, 0, 3), glyphAxis, inkAxisZ, nil)
	}

	for _, p := range r.geometry {
		if !r.visible.Of(p.kind).Has(p.uuid) {
			continue
		}
		base := inkPoint
		switch p.kind {
		case scene.KindLines:
			base = inkLine
		case scene.KindAux:
			base = inkAux
		}
		k := r.inkFor(p.uuid, base)
		if k == inkNone {
			continue
		}
		pick := &sample{uuid: p.uuid, kind: p.kind}
		if p.segment {
			r.segment(v, p.a, p.b, glyphLine, k, pick)
			continue
		}
		x, y, d, ok := v.project(p.a)
		if !ok {
			continue
		}
		ch := glyphPoint
		switch {
		case p.kind == scene.KindAux:
			ch = glyphAux
		case k == inkSelected || k == inkFocus:
			ch = glyphSelected
		}
		r.plot(x, y, d, ch, k)
		pick.x, pick.y, pick.depth = x, y, d
		r.samples = append(r.samples, *pick)
		if r.settings.Render.Labels && p.kind == scene.KindPoints {
			r.label(x, y, d, p.uuid)
		}
	}

	r.out = r.compose()
	r.stale = false
	r.renders++
}

func (r *Renderer) label(x, y, depth float64, text string) {
	col, row, ok := r.toCell(x, y)
	if !ok {
		return
	}
	if len(text) > 12 {
		text = text[:12]
	}
	for i, ch := range []rune(" " + text) {
		c := col + 1 + i
		if c >= r.width {
			return
		}
		cl := &r.cells[row*r.width+c]
		if cl.ink != inkNone {
			return
		}
		*cl = cell{r: ch, ink: inkLabel, depth: depth}
	}
}

// compose renders the grid, one lipgloss call per run of equal ink.
func (r *Renderer) compose() string {
	var b strings.Builder
	var run strings.Builder
	for row := 0; row < r.height; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		cur := inkNone
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if cur == inkNone {
				b.WriteString(run.String())
			} else {
				b.WriteString(r.styles[cur].Render(run.String()))
			}
			run.Reset()
		}
		for col := 0; col < r.width; col++ {
			c := r.cells[row*r.width+col]
			if c.ink != cur {
				flush()
				cur = c.ink
			}
			if c.ink == inkNone {
				run.WriteByte(' ')
			} else {
				run.WriteRune(c.r)
			}
		}
		flush()
	}
	return b.String()
}
