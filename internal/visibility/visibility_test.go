package visibility

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mr-Dark-debug/vantage/internal/scene"
	"github.com/Mr-Dark-debug/vantage/internal/structindex"
)

func allOn() Filters {
	return Filters{Types: map[scene.Kind]bool{
		scene.KindPoints: true, scene.KindLines: true, scene.KindAux: true,
	}}
}

func frame(n int) *int { return &n }

func build(t *testing.T, src string) *structindex.Index {
	t.Helper()
	doc, err := scene.Parse([]byte(src))
	require.NoError(t, err)
	return structindex.Build(doc)
}

func TestCompute_FrameScenario(t *testing.T) {
	idx := build(t, `{
	  "points": [{"meta": {"uuid": "pt"}, "appearance": {"frames": [2, 4]}}],
	  "lines":  [{"meta": {"uuid": "theLine"}}]
	}`)

	vs := Compute(idx, allOn(), frame(3))

	assert.Empty(t, vs.Points)
	assert.Equal(t, structindex.NewSet("theLine"), vs.Lines)
	assert.Empty(t, vs.Aux)

	vs = Compute(idx, allOn(), frame(4))
	assert.True(t, vs.Points.Has("pt"))
}

func TestCompute_NoActiveFrameShowsAllFrames(t *testing.T) {
	idx := build(t, `{"points": [
	  {"meta": {"uuid": "a"}, "frames": [1]},
	  {"meta": {"uuid": "b"}, "frames": [9]}
	]}`)
	vs := Compute(idx, allOn(), nil)
	assert.Equal(t, structindex.NewSet("a", "b"), vs.Points)
}

func TestCompute_DisabledTypeIsEmpty(t *testing.T) {
	idx := build(t, `{
	  "points": [{"meta": {"uuid": "p"}}, {"meta": {"uuid": "q"}, "frames": [1]}],
	  "aux": [{"meta": {"uuid": "x"}, "appearance": {"module": "grid"}}]
	}`)
	f := allOn()
	f.Types[scene.KindPoints] = false
	f.AuxModules = map[string]bool{"grid": true}

	for _, active := range []*int{nil, frame(1), frame(77)} {
		vs := Compute(idx, f, active)
		assert.Empty(t, vs.Points)
		assert.True(t, vs.Aux.Has("x"))
	}
}

func TestCompute_UnrestrictedVisibleEverywhere(t *testing.T) {
	idx := build(t, `{"lines": [
	  {"meta": {"uuid": "none"}},
	  {"meta": {"uuid": "empty"}, "frames": []},
	  {"meta": {"uuid": "range"}, "frames": {"start": 0, "end": 3}},
	  {"meta": {"uuid": "framed"}, "frames": [5]}
	]}`)

	for _, active := range []int{-1, 0, 5, 1000} {
		vs := Compute(idx, allOn(), frame(active))
		for _, id := range []string{"none", "empty", "range"} {
			assert.True(t, vs.Lines.Has(id), "%s at frame %d", id, active)
		}
		assert.Equal(t, active == 5, vs.Lines.Has("framed"))
	}
}

func TestCompute_AuxModules(t *testing.T) {
	idx := build(t, `{"aux": [
	  {"meta": {"uuid": "g"}, "appearance": {"module": "grid"}},
	  {"meta": {"uuid": "ax"}, "appearance": {"module": "axis"}},
	  {"meta": {"uuid": "plain"}}
	]}`)
	f := allOn()
	f.AuxModules = map[string]bool{"grid": false}

	vs := Compute(idx, f, nil)
	assert.False(t, vs.Aux.Has("g"))
	assert.True(t, vs.Aux.Has("ax"), "modules without a flag stay enabled")
	assert.True(t, vs.Aux.Has("plain"))
}

func TestCompute_Degraded(t *testing.T) {
	legacy := &structindex.Index{
		UUIDToKind: map[string]scene.Kind{"p": scene.KindPoints, "l": scene.KindLines, "bad": "meshes"},
	}
	f := allOn()
	f.Types[scene.KindLines] = false

	require.NotPanics(t, func() {
		vs := Compute(legacy, f, frame(3))
		assert.Equal(t, structindex.NewSet("p"), vs.Points)
		assert.Empty(t, vs.Lines)
		assert.Equal(t, 1, vs.Len())
	})

	assert.Equal(t, 0, Compute(nil, f, nil).Len())
}

func TestSet_KindOfAndEqual(t *testing.T) {
	a := Set{Points: structindex.NewSet("x"), Lines: structindex.NewSet("y")}
	k, ok := a.KindOf("y")
	require.True(t, ok)
	assert.Equal(t, scene.KindLines, k)
	assert.False(t, a.Contains("z"))

	b := Set{Points: structindex.NewSet("x"), Lines: structindex.NewSet("y"), Aux: structindex.NewSet()}
	assert.True(t, a.Equal(b))
	b.Aux.Add("z")
	assert.False(t, a.Equal(b))
	assert.Equal(t, []string{"x", "y", "z"}, b.Sorted())
}
