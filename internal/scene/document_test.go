package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `{
  "document_meta": {"title": "sample"},
  "points": [
    {"meta": {"uuid": "p1"}, "appearance": {"position": [1, 2, 3], "frames": [2, 4]}},
    {"uuid": "p2", "frames": 1}
  ],
  "lines": [
    {"meta": {"uuid": "l1"}, "end_a": {"ref": "p1"}, "end_b": {"coord": [0, 0, 1]}}
  ],
  "aux": [
    {"meta": {"uuid": "a1"}, "appearance": {"module": {"grid": {"size": 10}}}},
    {"meta": {"uuid": "a2"}, "appearance": {"module": "axis"}}
  ]
}`

func TestParse(t *testing.T) {
	doc, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)

	assert.Equal(t, "sample", doc.Title())
	assert.Equal(t, map[Kind]int{KindPoints: 2, KindLines: 1, KindAux: 2}, doc.Counts())
	assert.Equal(t, []string{"axis", "grid"}, doc.ModuleNames())
}

func TestEntityAccessors(t *testing.T) {
	doc, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)

	id, ok := doc.Points[0].UUID()
	require.True(t, ok)
	assert.Equal(t, "p1", id)

	id, ok = doc.Points[1].UUID()
	require.True(t, ok)
	assert.Equal(t, "p2", id)

	frames, ok := doc.Points[0].FrameSpec()
	require.True(t, ok)
	assert.Len(t, frames, 2)

	pos, ok := doc.Points[0].Position()
	require.True(t, ok)
	assert.Equal(t, [3]float64{1, 2, 3}, pos)

	assert.Equal(t, []string{"p1"}, doc.Lines[0].Refs())
	end, ok := doc.Lines[0].EndPosition("end_b")
	require.True(t, ok)
	assert.Equal(t, [3]float64{0, 0, 1}, end)

	mod, ok := doc.Aux[0].Module()
	require.True(t, ok)
	assert.Equal(t, "grid", mod)
}

func TestEntityBlankUUID(t *testing.T) {
	e := Entity{"meta": map[string]any{"uuid": "   "}}
	_, ok := e.UUID()
	assert.False(t, ok)
}

func TestFind(t *testing.T) {
	doc, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)

	_, kind, ok := doc.Find("l1")
	require.True(t, ok)
	assert.Equal(t, KindLines, kind)

	_, _, ok = doc.Find("ghost")
	assert.False(t, ok)
}

func TestParseKind(t *testing.T) {
	k, ok := ParseKind("lines")
	assert.True(t, ok)
	assert.Equal(t, KindLines, k)

	_, ok = ParseKind("meshes")
	assert.False(t, ok)
}
