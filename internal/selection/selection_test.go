package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Mr-Dark-debug/vantage/internal/scene"
	"github.com/Mr-Dark-debug/vantage/internal/structindex"
	"github.com/Mr-Dark-debug/vantage/internal/visibility"
)

func visibleSet() *visibility.Set {
	return &visibility.Set{
		Points: structindex.NewSet("p1"),
		Lines:  structindex.NewSet("X"),
		Aux:    structindex.NewSet(),
	}
}

func TestNormalize_KindCorrectedToVisibleKind(t *testing.T) {
	got := Normalize(Request{UUID: "X", Kind: scene.KindPoints}, visibleSet(), nil)
	assert.Equal(t, Selection{UUID: "X", Kind: scene.KindLines}, got)

	got = Normalize(FromUUID("X"), visibleSet(), nil)
	assert.Equal(t, Selection{UUID: "X", Kind: scene.KindLines}, got)
}

func TestNormalize_GhostRejected(t *testing.T) {
	for _, vs := range []*visibility.Set{visibleSet(), {}} {
		got := Normalize(Request{UUID: "ghost", Kind: scene.KindPoints}, vs, nil)
		assert.Equal(t, None, got)
		assert.True(t, got.Empty())
	}
}

func TestNormalize_BlankUUID(t *testing.T) {
	assert.Equal(t, None, Normalize(FromUUID(""), visibleSet(), nil))
	assert.Equal(t, None, Normalize(FromUUID("  "), nil, nil))
}

func TestNormalize_NoVisibleSet(t *testing.T) {
	// A valid kind is trusted.
	got := Normalize(Request{UUID: "anything", Kind: scene.KindAux}, nil, nil)
	assert.Equal(t, Selection{UUID: "anything", Kind: scene.KindAux}, got)

	// An invalid kind falls through to inference.
	src := map[string]scene.Kind{"q": scene.KindPoints}
	got = Normalize(Request{UUID: "q", Kind: "meshes"}, nil, src)
	assert.Equal(t, Selection{UUID: "q", Kind: scene.KindPoints}, got)

	// Nothing resolves.
	assert.Equal(t, None, Normalize(FromUUID("q"), nil, nil))
	assert.Equal(t, None, Normalize(FromUUID("zz"), nil, src))
}

func TestNormalize_Pure(t *testing.T) {
	vs := visibleSet()
	before := vs.Sorted()
	req := Request{UUID: "X", Kind: scene.KindPoints}

	a := Normalize(req, vs, nil)
	b := Normalize(req, vs, nil)

	assert.Equal(t, a, b)
	assert.Equal(t, before, vs.Sorted())
	assert.Equal(t, scene.KindPoints, req.Kind)
}
