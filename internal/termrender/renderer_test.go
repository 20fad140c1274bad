package termrender

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mr-Dark-debug/vantage/internal/camera"
	"github.com/Mr-Dark-debug/vantage/internal/core"
	"github.com/Mr-Dark-debug/vantage/internal/hub"
	"github.com/Mr-Dark-debug/vantage/internal/scene"
	"github.com/Mr-Dark-debug/vantage/internal/selection"
	"github.com/Mr-Dark-debug/vantage/internal/structindex"
	"github.com/Mr-Dark-debug/vantage/internal/visibility"
)

const sceneDoc = `{
  "points": [
    {"meta": {"uuid": "origin"}, "appearance": {"position": [0, 0, 0]}},
    {"meta": {"uuid": "east"},   "appearance": {"position": [0, 4, 0]}}
  ],
  "lines": [
    {"meta": {"uuid": "bar"}, "end_a": {"ref": "origin"}, "end_b": {"coord": [0, -4, 0]}},
    {"meta": {"uuid": "dangling"}, "end_a": {"ref": "nowhere"}, "end_b": {"ref": "east"}}
  ]
}`

// frontView looks down -X at the origin.
func frontView() camera.State {
	return camera.State{Distance: 10, Theta: 0, Phi: math.Pi / 2, FOV: 90}
}

func loaded(t *testing.T) (*Renderer, *structindex.Index) {
	t.Helper()
	doc, err := scene.Parse([]byte(sceneDoc))
	require.NoError(t, err)
	idx := structindex.Build(doc)

	r := New(80, 24)
	r.ApplySettings(core.ViewerSettings{})
	r.UpdateCamera(frontView())
	r.LoadDocument(doc, idx)
	r.ApplyFrame(visibility.Compute(idx, core.DefaultSeed().Filters.Clone(), nil))
	return r, idx
}

func TestProject(t *testing.T) {
	r := New(80, 24)
	r.UpdateCamera(frontView())

	x, y, ok := r.Project(camera.Vec3{})
	require.True(t, ok)
	assert.InDelta(t, 0, x, 1e-9)
	assert.InDelta(t, 0, y, 1e-9)

	x, _, ok = r.Project(camera.V3(0, 1, 0))
	require.True(t, ok)
	assert.Greater(t, x, 0.0, "+Y is to the right when looking down -X")

	_, y, _ = r.Project(camera.V3(0, 0, 1))
	assert.Greater(t, y, 0.0, "+Z is up")

	_, _, ok = r.Project(camera.V3(20, 0, 0))
	assert.False(t, ok, "behind the camera")
}

func TestGeometry_DropsUnplaceableLines(t *testing.T) {
	r, _ := loaded(t)
	var ids []string
	for _, p := range r.geometry {
		ids = append(ids, p.uuid)
	}
	assert.ElementsMatch(t, []string{"origin", "east", "bar"}, ids)
}

func TestPickObjectAt(t *testing.T) {
	r, _ := loaded(t)

	hit := r.PickObjectAt(0, 0)
	require.NotNil(t, hit)
	assert.Equal(t, "origin", hit.UUID)
	assert.Equal(t, scene.KindPoints, hit.Kind)

	ex, ey, ok := r.Project(camera.V3(0, 4, 0))
	require.True(t, ok)
	hit = r.PickObjectAt(ex, ey)
	require.NotNil(t, hit)
	assert.Equal(t, "east", hit.UUID)

	bx, by, _ := r.Project(camera.V3(0, -2, 0))
	hit = r.PickObjectAt(bx, by)
	require.NotNil(t, hit)
	assert.Equal(t, "bar", hit.UUID)
	assert.Equal(t, scene.KindLines, hit.Kind)

	assert.Nil(t, r.PickObjectAt(0.9, 0.9))
}

func TestRender_HonoursVisibility(t *testing.T) {
	r, idx := loaded(t)
	assert.Contains(t, r.View(), string(glyphPoint))

	filters := core.DefaultSeed().Filters.Clone()
	filters.Types[scene.KindPoints] = false
	r.ApplyFrame(visibility.Compute(idx, filters, nil))

	assert.NotContains(t, r.View(), string(glyphPoint))
	hit := r.PickObjectAt(0, 0)
	if hit != nil {
		assert.Equal(t, "bar", hit.UUID)
	}
}

func TestRender_SelectionAndMicroFX(t *testing.T) {
	r, _ := loaded(t)

	r.ApplySelectionHighlight(selection.Selection{UUID: "origin", Kind: scene.KindPoints})
	assert.Contains(t, r.View(), string(glyphSelected))

	r.ApplyMicroFX(core.MicroState{
		Focus:   selection.Selection{UUID: "east", Kind: scene.KindPoints},
		Profile: core.ProfileStrong,
	})
	view := r.View()
	assert.Contains(t, view, string(glyphSelected))
	assert.NotContains(t, view, string(glyphLine), "strong profile hides unrelated entities")

	hit := r.PickObjectAt(0, 0)
	assert.Nil(t, hit, "hidden entities are not pickable")

	r.ApplySelectionHighlight(selection.None)
	assert.Contains(t, r.View(), string(glyphLine))
}

func TestRender_ReusesBuffers(t *testing.T) {
	r, _ := loaded(t)
	r.Render()
	before := cap(r.cells)
	n := r.Renders()

	r.Render()
	assert.Equal(t, n, r.Renders(), "no change, no rasterize")

	r.UpdateCamera(frontView())
	r.Render()
	assert.Equal(t, n+1, r.Renders())
	assert.Equal(t, before, cap(r.cells))

	lines := strings.Split(r.View(), "\n")
	assert.Len(t, lines, 24)
}

func TestRender_GridAndAxes(t *testing.T) {
	r := New(60, 20)
	r.UpdateCamera(camera.DefaultState())
	r.ApplySettings(core.DefaultViewerSettings())
	view := r.View()
	assert.Contains(t, view, string(glyphGrid))
	assert.Contains(t, view, string(glyphAxis))
}

func TestCellToNDC(t *testing.T) {
	r := New(10, 10)
	x, y := r.CellToNDC(0, 0)
	assert.InDelta(t, -0.9, x, 1e-9)
	assert.InDelta(t, 0.9, y, 1e-9)
	col, row, ok := r.toCell(x, y)
	require.True(t, ok)
	assert.Equal(t, 0, col)
	assert.Equal(t, 0, row)
}

type tickScheduler struct{ fn func(time.Time) }

func (s *tickScheduler) RequestFrame(fn func(time.Time)) func() {
	s.fn = fn
	return func() { s.fn = nil }
}

// TestWithHub drives the renderer through the hub.
func TestWithHub(t *testing.T) {
	doc, err := scene.Parse([]byte(sceneDoc))
	require.NoError(t, err)
	r := New(80, 24)
	h, err := hub.New(doc, r, &tickScheduler{}, hub.WithCamera(frontView()))
	require.NoError(t, err)

	h.RenderNow()
	assert.Contains(t, r.View(), string(glyphPoint))

	hit := h.PickObjectAt(0, 0)
	require.NotNil(t, hit)
	assert.Equal(t, "origin", hit.UUID)

	h.Dispose()
	assert.Empty(t, r.View())
}
