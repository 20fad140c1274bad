// Package scene defines the structured 3D-scene document consumed by
// Vantage: three ordered entity collections (points, lines, aux).
//
// Entities are opaque payloads. This package only knows where a few
// identifying fields live; drawing attributes are left to renderers.
package scene

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/Mr-Dark-debug/vantage/pkg/jsonutil"
)

// Kind is the entity kind implied by the collection it appears in.
type Kind string

const (
	KindPoints Kind = "points"
	KindLines  Kind = "lines"
	KindAux    Kind = "aux"
)

// Kinds lists every kind in canonical order. Whenever a uuid could belong
// to more than one kind, the first kind in this order wins.
var Kinds = [...]Kind{KindPoints, KindLines, KindAux}

// Valid reports whether k is one of the three known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindPoints, KindLines, KindAux:
		return true
	}
	return false
}

// ParseKind converts a string to a Kind.
func ParseKind(s string) (Kind, bool) {
	k := Kind(s)
	return k, k.Valid()
}

// Entity is one decoded document entity.
type Entity map[string]any

// UUID returns the entity's identifier: meta.uuid, falling back to a
// top-level uuid field. Blank values do not count.
func (e Entity) UUID() (string, bool) {
	if v, ok := jsonutil.Lookup(map[string]any(e), "meta", "uuid"); ok {
		if s, ok := jsonutil.AsString(v); ok {
			return s, true
		}
	}
	if s, ok := jsonutil.AsString(e["uuid"]); ok {
		return s, true
	}
	return "", false
}

// FrameSpec returns the raw frame-membership specification, if any:
// appearance.frames, falling back to a top-level frames field.
func (e Entity) FrameSpec() (any, bool) {
	if v, ok := jsonutil.Lookup(map[string]any(e), "appearance", "frames"); ok && v != nil {
		return v, true
	}
	if v, ok := e["frames"]; ok && v != nil {
		return v, true
	}
	return nil, false
}

// Module returns the aux module name. appearance.module may be a string
// or an object with exactly one key (the module name).
func (e Entity) Module() (string, bool) {
	if v, ok := jsonutil.Lookup(map[string]any(e), "appearance", "module"); ok {
		if name, ok := moduleName(v); ok {
			return name, true
		}
	}
	return moduleName(e["module"])
}

func moduleName(v any) (string, bool) {
	if s, ok := jsonutil.AsString(v); ok {
		return s, true
	}
	obj, ok := jsonutil.AsObject(v)
	if !ok || len(obj) != 1 {
		return "", false
	}
	for k := range obj {
		return k, k != ""
	}
	return "", false
}

// Refs returns the uuids a line references through end_a.ref / end_b.ref,
// in that order. Missing ends are omitted.
func (e Entity) Refs() []string {
	var refs []string
	for _, end := range []string{"end_a", "end_b"} {
		if ref, ok := e.EndRef(end); ok {
			refs = append(refs, ref)
		}
	}
	return refs
}

// EndRef returns the uuid one line end ("end_a" or "end_b") references.
func (e Entity) EndRef(end string) (string, bool) {
	v, ok := jsonutil.Lookup(map[string]any(e), end, "ref")
	if !ok {
		v, ok = jsonutil.Lookup(map[string]any(e), "appearance", end, "ref")
	}
	if !ok {
		return "", false
	}
	return jsonutil.AsString(v)
}

// Position reads an [x, y, z] position from appearance.position or
// position. Renderers use it; the core does not.
func (e Entity) Position() ([3]float64, bool) {
	v, ok := jsonutil.Lookup(map[string]any(e), "appearance", "position")
	if !ok {
		v, ok = e["position"]
	}
	if !ok {
		return [3]float64{}, false
	}
	return vec3(v)
}

// EndPosition reads a literal coordinate for a line end ("end_a" or
// "end_b") when the end is given as coordinates instead of a ref.
func (e Entity) EndPosition(end string) ([3]float64, bool) {
	v, ok := jsonutil.Lookup(map[string]any(e), end, "coord")
	if !ok {
		v, ok = jsonutil.Lookup(map[string]any(e), "appearance", end, "coord")
	}
	if !ok {
		return [3]float64{}, false
	}
	return vec3(v)
}

func vec3(v any) ([3]float64, bool) {
	var out [3]float64
	list, ok := jsonutil.AsList(v)
	if !ok || len(list) < 3 {
		return out, false
	}
	for i := 0; i < 3; i++ {
		f, ok := jsonutil.AsFloat(list[i])
		if !ok {
			return out, false
		}
		out[i] = f
	}
	return out, true
}

// Document is a decoded scene document.
type Document struct {
	Points []Entity       `json:"points"`
	Lines  []Entity       `json:"lines"`
	Aux    []Entity       `json:"aux"`
	Meta   map[string]any `json:"document_meta,omitempty"`
}

// Collection returns the entities of one kind.
func (d *Document) Collection(k Kind) []Entity {
	if d == nil {
		return nil
	}
	switch k {
	case KindPoints:
		return d.Points
	case KindLines:
		return d.Lines
	case KindAux:
		return d.Aux
	}
	return nil
}

// Counts returns the number of entities in each collection.
func (d *Document) Counts() map[Kind]int {
	counts := make(map[Kind]int, len(Kinds))
	for _, k := range Kinds {
		counts[k] = len(d.Collection(k))
	}
	return counts
}

// Title returns document_meta.title, if present.
func (d *Document) Title() string {
	if d == nil {
		return ""
	}
	if s, ok := jsonutil.AsString(d.Meta["title"]); ok {
		return s
	}
	return ""
}

// Find returns the entity with the given uuid by scanning the collections
// in canonical order. Use a structindex for repeated lookups.
func (d *Document) Find(uuid string) (Entity, Kind, bool) {
	for _, k := range Kinds {
		for _, e := range d.Collection(k) {
			if id, ok := e.UUID(); ok && id == uuid {
				return e, k, true
			}
		}
	}
	return nil, "", false
}

// Parse decodes a JSON scene document. Numbers are decoded as float64.
// Null collections decode as empty.
func Parse(data []byte) (*Document, error) {
	var doc Document
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding scene document: %w", err)
	}
	return &doc, nil
}

// Load reads and parses a scene document from disk.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scene document %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// ModuleNames returns the sorted set of aux module names in the document.
func (d *Document) ModuleNames() []string {
	seen := make(map[string]struct{})
	for _, e := range d.Collection(KindAux) {
		if name, ok := e.Module(); ok {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
