package core

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mr-Dark-debug/vantage/internal/scene"
	"github.com/Mr-Dark-debug/vantage/internal/selection"
	"github.com/Mr-Dark-debug/vantage/internal/structindex"
	"github.com/Mr-Dark-debug/vantage/internal/visibility"
)

const testDoc = `{
  "points": [
    {"meta": {"uuid": "p1"}, "appearance": {"frames": [1]}},
    {"meta": {"uuid": "p2"}}
  ],
  "lines": [
    {"meta": {"uuid": "l1"}, "end_a": {"ref": "p1"}, "end_b": {"ref": "p2"}, "frames": [1, 2]}
  ],
  "aux": [
    {"meta": {"uuid": "g"}, "appearance": {"module": "grid"}}
  ]
}`

func newState(t *testing.T) (*UIState, *Controllers) {
	t.Helper()
	s, err := NewUIState(DefaultSeed())
	require.NoError(t, err)
	doc, err := scene.Parse([]byte(testDoc))
	require.NoError(t, err)
	s.LoadIndex(structindex.Build(doc))
	return s, NewControllers(s)
}

// TestNewUIState_FailsFast verifies missing required sub-structures are
// rejected at construction.
func TestNewUIState_FailsFast(t *testing.T) {
	settings := DefaultViewerSettings()
	cases := map[string]Seed{
		"nil filters":  {ViewerSettings: &settings},
		"nil types":    {Filters: &visibility.Filters{}, ViewerSettings: &settings},
		"missing aux":  {Filters: &visibility.Filters{Types: map[scene.Kind]bool{scene.KindPoints: true, scene.KindLines: true}}, ViewerSettings: &settings},
		"nil settings": {Filters: DefaultSeed().Filters},
		"micro seed":   {Mode: ModeMicro, Filters: DefaultSeed().Filters, ViewerSettings: &settings},
		"unknown mode": {Mode: "zoomed", Filters: DefaultSeed().Filters, ViewerSettings: &settings},
	}
	for name, seed := range cases {
		t.Run(name, func(t *testing.T) {
			s, err := NewUIState(seed)
			assert.Nil(t, s)
			assert.True(t, errors.Is(err, ErrInvalidState), "got %v", err)
		})
	}
}

// TestNewUIState_CopiesSeed verifies the seed is not aliased.
func TestNewUIState_CopiesSeed(t *testing.T) {
	seed := DefaultSeed()
	s, err := NewUIState(seed)
	require.NoError(t, err)
	seed.Filters.Types[scene.KindPoints] = false
	assert.True(t, s.filters.TypeEnabled(scene.KindPoints))
}

func TestSelect_NormalizesAgainstVisibleSet(t *testing.T) {
	_, c := newState(t)

	sel, ok := c.Selection.Select(selection.Request{UUID: "l1", Kind: scene.KindPoints})
	require.True(t, ok)
	assert.Equal(t, selection.Selection{UUID: "l1", Kind: scene.KindLines}, sel)

	sel, ok = c.Selection.Select(selection.FromUUID("ghost"))
	assert.False(t, ok)
	assert.Equal(t, "l1", sel.UUID, "previous selection kept")
	assert.Equal(t, "l1", c.Selection.Get().UUID)
}

func TestCycle_Wraps(t *testing.T) {
	_, c := newState(t)

	var got []string
	for i := 0; i < 5; i++ {
		sel, ok := c.Selection.Cycle(1)
		require.True(t, ok)
		got = append(got, sel.UUID)
	}
	assert.Equal(t, []string{"p1", "p2", "l1", "g", "p1"}, got)

	sel, _ := c.Selection.Cycle(-1)
	assert.Equal(t, "g", sel.UUID)
}

func TestFocus(t *testing.T) {
	s, c := newState(t)

	assert.True(t, c.Mode.Focus(selection.FromUUID("p1")))
	assert.Equal(t, ModeMicro, c.Mode.Get())

	assert.False(t, c.Mode.Focus(selection.FromUUID("ghost")))
	assert.Equal(t, ModeMacro, c.Mode.Get())
	assert.True(t, c.Selection.Get().Empty())

	// Exit leaves the selection alone.
	c.Mode.Focus(selection.FromUUID("p2"))
	c.Mode.Exit()
	assert.Equal(t, ModeMacro, s.Mode())
	assert.Equal(t, "p2", c.Selection.Get().UUID)
}

// TestFocus_RefusedDuringAutoOrbit verifies micro cannot be entered while
// the camera auto-orbits.
func TestFocus_RefusedDuringAutoOrbit(t *testing.T) {
	s, c := newState(t)
	write, err := s.ClaimCameraAutoWriter()
	require.NoError(t, err)
	write(true)

	assert.False(t, c.Mode.CanEnter(ModeMicro))
	assert.True(t, c.Mode.CanEnter(ModeMacro))
	assert.False(t, c.Mode.Focus(selection.FromUUID("p1")))
	assert.Equal(t, ModeMacro, c.Mode.Get())
	assert.Equal(t, "p1", c.Selection.Get().UUID)

	write(false)
	assert.True(t, c.Mode.Focus(selection.FromUUID("p1")))
}

func TestClaimCameraAutoWriter_Once(t *testing.T) {
	s, _ := newState(t)
	w, err := s.ClaimCameraAutoWriter()
	require.NoError(t, err)
	require.NotNil(t, w)

	_, err = s.ClaimCameraAutoWriter()
	assert.ErrorIs(t, err, ErrWriterClaimed)

	w(true)
	assert.True(t, s.Runtime().IsCameraAuto)
}

func TestVisibility_FrameAndRevalidation(t *testing.T) {
	_, c := newState(t)

	rev := c.Visibility.Revision()
	require.True(t, c.Visibility.SetFrame(2))
	assert.Greater(t, c.Visibility.Revision(), rev)

	vs := c.Visibility.VisibleSet()
	assert.False(t, vs.Points.Has("p1"))
	assert.True(t, vs.Points.Has("p2"))
	assert.True(t, vs.Lines.Has("l1"))

	// Focused entity filtered away: selection cleared, back to macro.
	require.True(t, c.Mode.Focus(selection.FromUUID("l1")))
	c.Visibility.SetType(scene.KindLines, false)
	assert.True(t, c.Selection.Get().Empty())
	assert.Equal(t, ModeMacro, c.Mode.Get())

	// Same input twice leaves the revision alone.
	rev = c.Visibility.Revision()
	c.Visibility.SetType(scene.KindLines, false)
	assert.Equal(t, rev, c.Visibility.Revision())

	require.True(t, c.Visibility.ClearFrame())
	_, ok := c.Visibility.Frame()
	assert.False(t, ok)
	assert.True(t, c.Visibility.VisibleSet().Points.Has("p1"))
}

func TestVisibility_StepFrame(t *testing.T) {
	_, c := newState(t)

	f, ok := c.Visibility.StepFrame(1)
	require.True(t, ok)
	assert.Equal(t, 1, f)
	f, _ = c.Visibility.StepFrame(1)
	assert.Equal(t, 2, f)
	f, _ = c.Visibility.StepFrame(1)
	assert.Equal(t, 1, f)
	f, _ = c.Visibility.StepFrame(-1)
	assert.Equal(t, 2, f)

	c.Visibility.SetFrame(50)
	f, _ = c.Visibility.StepFrame(-1)
	assert.Equal(t, 2, f)
}

func TestVisibility_AuxModules(t *testing.T) {
	_, c := newState(t)
	assert.Equal(t, []string{"grid"}, c.Visibility.Modules())
	assert.False(t, c.Visibility.ToggleAuxModule("grid"))
	assert.False(t, c.Visibility.VisibleSet().Aux.Has("g"))
	assert.True(t, c.Visibility.ToggleAuxModule("grid"))
	assert.True(t, c.Visibility.VisibleSet().Aux.Has("g"))
	assert.False(t, c.Visibility.SetType("meshes", true))
}

func TestLock(t *testing.T) {
	_, c := newState(t)

	assert.False(t, c.Lock.Set(true), "nothing to lock")
	c.Selection.Select(selection.FromUUID("p2"))
	assert.True(t, c.Lock.Toggle())

	_, ok := c.Selection.Select(selection.FromUUID("l1"))
	assert.False(t, ok)
	assert.False(t, c.Selection.Clear())
	assert.False(t, c.Mode.Focus(selection.FromUUID("l1")))
	assert.True(t, c.Mode.Focus(selection.FromUUID("p2")))

	assert.False(t, c.Lock.Toggle())
	assert.True(t, c.Selection.Clear())
}

func TestSettings(t *testing.T) {
	_, c := newState(t)

	assert.True(t, c.Settings.SetFOV(500))
	assert.Equal(t, 120.0, c.Settings.Get().Camera.FOV)
	assert.True(t, c.Settings.SetFOV("45"))
	assert.Equal(t, 45.0, c.Settings.Get().Camera.FOV)

	rev := c.Settings.Revision()
	assert.False(t, c.Settings.SetFOV("wide"))
	assert.False(t, c.Settings.SetFOV(nil))
	assert.Equal(t, 45.0, c.Settings.Get().Camera.FOV)
	assert.Equal(t, rev, c.Settings.Revision())

	fovRev := c.Settings.FOVRevision()
	assert.False(t, c.Settings.SetMicroProfile("loud"))
	assert.True(t, c.Settings.SetMicroProfile("Strong"))
	assert.True(t, c.Settings.SetRender("grid", false))
	assert.Equal(t, fovRev, c.Settings.FOVRevision())
	assert.Greater(t, c.Settings.Revision(), rev)
	assert.Equal(t, ProfileSubtle, c.Settings.CycleMicroProfile())

	assert.True(t, c.Settings.ToggleRender("labels"))
	assert.False(t, c.Settings.SetRender("fog", true))
}

func TestMicroFX(t *testing.T) {
	s, c := newState(t)

	_, ok := MicroFX(s)
	assert.False(t, ok, "macro mode")

	require.True(t, c.Mode.Focus(selection.FromUUID("p1")))
	ms, ok := MicroFX(s)
	require.True(t, ok)
	assert.Equal(t, "p1", ms.Focus.UUID)
	assert.Equal(t, ProfileNormal, ms.Profile)
	assert.Equal(t, []string{"l1", "p2"}, ms.Related)

	c.Visibility.SetType(scene.KindPoints, true)
	c.Visibility.SetFrame(1)
	c.Visibility.SetType(scene.KindLines, false)
	ms, _ = MicroFX(s)
	assert.Equal(t, []string{"p2"}, ms.Related, "hidden lines still link endpoints")
}

func TestDiscard(t *testing.T) {
	s, c := newState(t)
	c.Selection.Select(selection.FromUUID("p1"))
	s.Discard()
	s.Discard()

	assert.True(t, c.Selection.Get().Empty())
	_, ok := c.Selection.Select(selection.FromUUID("p2"))
	assert.False(t, ok)
	assert.False(t, c.Visibility.SetFrame(1))
	assert.False(t, c.Settings.SetFOV(30))
	assert.False(t, c.Lock.Toggle())
	assert.Equal(t, 0, c.Visibility.VisibleSet().Len())
	s.LoadIndex(structindex.Build(nil))
	assert.Nil(t, s.Index())
}

// snapshot captures every UIState region by name.
func snapshot(s *UIState) map[string]any {
	var frame any
	if s.activeFrame != nil {
		frame = *s.activeFrame
	}
	return map[string]any{
		"mode":      s.mode,
		"selection": s.selection,
		"locked":    s.locked,
		"filters":   s.filters.Clone(),
		"frame":     frame,
		"visible":   s.visible.Sorted(),
		"runtime":   s.runtime,
		"settings":  s.settings,
	}
}

// TestControllers_WriteOnlyTheirRegion checks that each verb mutates only
// the regions its controller owns, and that no UIState field is
// reachable from outside the package.
func TestControllers_WriteOnlyTheirRegion(t *testing.T) {
	typ := reflect.TypeOf(UIState{})
	for i := 0; i < typ.NumField(); i++ {
		assert.False(t, typ.Field(i).IsExported(), "UIState.%s is exported", typ.Field(i).Name)
	}

	derived := []string{"visible", "selection", "mode", "locked"}
	cases := []struct {
		name    string
		prepare func(c *Controllers)
		verb    func(s *UIState, c *Controllers)
		allowed []string
	}{
		{"select", nil, func(_ *UIState, c *Controllers) { c.Selection.Select(selection.FromUUID("p2")) }, []string{"selection"}},
		{"clear", func(c *Controllers) { c.Mode.Focus(selection.FromUUID("p2")) }, func(_ *UIState, c *Controllers) { c.Selection.Clear() }, []string{"selection", "mode"}},
		{"cycle", nil, func(_ *UIState, c *Controllers) { c.Selection.Cycle(1) }, []string{"selection"}},
		{"focus", nil, func(_ *UIState, c *Controllers) { c.Mode.Focus(selection.FromUUID("l1")) }, []string{"selection", "mode"}},
		{"exit", func(c *Controllers) { c.Mode.Focus(selection.FromUUID("l1")) }, func(_ *UIState, c *Controllers) { c.Mode.Exit() }, []string{"mode"}},
		{"lock", func(c *Controllers) { c.Selection.Select(selection.FromUUID("l1")) }, func(_ *UIState, c *Controllers) { c.Lock.Toggle() }, []string{"locked"}},
		{"set type", func(c *Controllers) { c.Mode.Focus(selection.FromUUID("l1")) }, func(_ *UIState, c *Controllers) { c.Visibility.SetType(scene.KindLines, false) }, append([]string{"filters"}, derived...)},
		{"module", nil, func(_ *UIState, c *Controllers) { c.Visibility.ToggleAuxModule("grid") }, append([]string{"filters"}, derived...)},
		{"frame", func(c *Controllers) { c.Selection.Select(selection.FromUUID("p1")) }, func(_ *UIState, c *Controllers) { c.Visibility.SetFrame(2) }, append([]string{"frame"}, derived...)},
		{"fov", nil, func(_ *UIState, c *Controllers) { c.Settings.SetFOV(33) }, []string{"settings"}},
		{"profile", nil, func(_ *UIState, c *Controllers) { c.Settings.SetMicroProfile(ProfileStrong) }, []string{"settings"}},
		{"auto writer", nil, func(s *UIState, _ *Controllers) {
			w, _ := s.ClaimCameraAutoWriter()
			w(true)
		}, []string{"runtime"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, c := newState(t)
			if tc.prepare != nil {
				tc.prepare(c)
			}
			before := snapshot(s)
			tc.verb(s, c)
			after := snapshot(s)

			allowed := make(map[string]bool)
			for _, a := range tc.allowed {
				allowed[a] = true
			}
			changed := 0
			for region := range before {
				if !reflect.DeepEqual(before[region], after[region]) {
					changed++
					assert.True(t, allowed[region], "%s changed %s", tc.name, region)
				}
			}
			assert.Positive(t, changed, "%s changed nothing", tc.name)
		})
	}
}
