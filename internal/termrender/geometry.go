package termrender

import (
	"math"

	"github.com/Mr-Dark-debug/vantage/internal/camera"
	"github.com/Mr-Dark-debug/vantage/internal/scene"
	"github.com/Mr-Dark-debug/vantage/internal/structindex"
)

// primitive is one drawable entity: a point marker, or a segment for lines.
type primitive struct {
	uuid    string
	kind    scene.Kind
	a, b    camera.Vec3
	segment bool
}

// layoutRadius is the sphere radius entities without a position are
// spread over.
const layoutRadius = 5.0

// fibonacciPoint places item i of n on a sphere so unpositioned entities
// stay apart and keep their place across frames.
func fibonacciPoint(i, n int) camera.Vec3 {
	if n <= 1 {
		return camera.Vec3{}
	}
	golden := math.Pi * (3 - math.Sqrt(5))
	z := 1 - 2*(float64(i)+0.5)/float64(n)
	r := math.Sqrt(1 - z*z)
	t := golden * float64(i)
	return camera.V3(r*math.Cos(t), r*math.Sin(t), z).Scale(layoutRadius)
}

func vec(a [3]float64) camera.Vec3 { return camera.V3(a[0], a[1], a[2]) }

// buildGeometry resolves positions for every indexed entity. Points and
// aux use their own position or a layout slot; lines join their endpoint
// references or coordinates and are dropped when an end cannot be placed.
func buildGeometry(doc *scene.Document, idx *structindex.Index) []primitive {
	if doc == nil || idx == nil {
		return nil
	}

	var placed []primitive
	positions := make(map[string]camera.Vec3)
	unplaced := 0
	for _, k := range []scene.Kind{scene.KindPoints, scene.KindAux} {
		for _, e := range doc.Collection(k) {
			if _, ok := e.Position(); !ok {
				unplaced++
			}
		}
	}

	slot := 0
	for _, k := range []scene.Kind{scene.KindPoints, scene.KindAux} {
		for _, e := range doc.Collection(k) {
			id, ok := e.UUID()
			if !ok || idx.UUIDToKind[id] != k {
				continue
			}
			if _, dup := positions[id]; dup {
				continue
			}
			var p camera.Vec3
			if pos, ok := e.Position(); ok {
				p = vec(pos)
			} else {
				p = fibonacciPoint(slot, unplaced)
				slot++
			}
			positions[id] = p
			placed = append(placed, primitive{uuid: id, kind: k, a: p})
		}
	}

	var out []primitive
	for _, e := range doc.Lines {
		id, ok := e.UUID()
		if !ok || idx.UUIDToKind[id] != scene.KindLines {
			continue
		}
		a, okA := lineEnd(e, "end_a", positions)
		b, okB := lineEnd(e, "end_b", positions)
		if !okA || !okB {
			continue
		}
		out = append(out, primitive{uuid: id, kind: scene.KindLines, a: a, b: b, segment: true})
	}
	// Points and aux last so they draw over lines.
	return append(out, placed...)
}

func lineEnd(e scene.Entity, end string, positions map[string]camera.Vec3) (camera.Vec3, bool) {
	if c, ok := e.EndPosition(end); ok {
		return vec(c), true
	}
	if ref, ok := e.EndRef(end); ok {
		p, ok := positions[ref]
		return p, ok
	}
	return camera.Vec3{}, false
}
