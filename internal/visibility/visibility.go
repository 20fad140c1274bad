// Package visibility derives the set of currently visible uuids from a
// structural index, the type and aux-module filters, and the active frame.
//
// Compute is a pure function. The caller owns the result and is
// expected to replace it wholesale on every input change.
package visibility

import (
	"github.com/Mr-Dark-debug/vantage/internal/scene"
	"github.com/Mr-Dark-debug/vantage/internal/structindex"
)

// Set holds one uuid set per kind.
type Set struct {
	Points structindex.Set
	Lines  structindex.Set
	Aux    structindex.Set
}

// NewSet returns a Set with empty, non-nil members.
func NewSet() Set {
	return Set{
		Points: make(structindex.Set),
		Lines:  make(structindex.Set),
		Aux:    make(structindex.Set),
	}
}

// Of returns the member set for kind k.
func (s Set) Of(k scene.Kind) structindex.Set {
	switch k {
	case scene.KindPoints:
		return s.Points
	case scene.KindLines:
		return s.Lines
	case scene.KindAux:
		return s.Aux
	}
	return nil
}

func (s *Set) set(k scene.Kind, members structindex.Set) {
	switch k {
	case scene.KindPoints:
		s.Points = members
	case scene.KindLines:
		s.Lines = members
	case scene.KindAux:
		s.Aux = members
	}
}

// KindOf returns the first kind (canonical order) whose set holds id.
func (s Set) KindOf(id string) (scene.Kind, bool) {
	for _, k := range scene.Kinds {
		if s.Of(k).Has(id) {
			return k, true
		}
	}
	return "", false
}

// Contains reports whether id is visible under any kind.
func (s Set) Contains(id string) bool {
	_, ok := s.KindOf(id)
	return ok
}

// Len returns the total number of visible uuids.
func (s Set) Len() int {
	return len(s.Points) + len(s.Lines) + len(s.Aux)
}

// Equal reports whether both sets hold the same members per kind.
func (s Set) Equal(o Set) bool {
	for _, k := range scene.Kinds {
		a, b := s.Of(k), o.Of(k)
		if len(a) != len(b) {
			return false
		}
		for id := range a {
			if !b.Has(id) {
				return false
			}
		}
	}
	return true
}

// Sorted returns the visible uuids of every kind, kinds in canonical
// order and uuids lexically within a kind.
func (s Set) Sorted() []string {
	out := make([]string, 0, s.Len())
	for _, k := range scene.Kinds {
		out = append(out, s.Of(k).Sorted()...)
	}
	return out
}

// Filters are the user-controlled visibility inputs.
type Filters struct {
	// Types enables or disables a whole kind.
	Types map[scene.Kind]bool
	// AuxModules enables or disables aux entities by module name.
	// A module with no entry is enabled.
	AuxModules map[string]bool
}

// TypeEnabled reports whether kind k is enabled.
func (f Filters) TypeEnabled(k scene.Kind) bool {
	return f.Types[k]
}

// ModuleEnabled reports whether an aux module is enabled.
func (f Filters) ModuleEnabled(name string) bool {
	on, ok := f.AuxModules[name]
	return !ok || on
}

// Clone returns a deep copy.
func (f Filters) Clone() Filters {
	c := Filters{
		Types:      make(map[scene.Kind]bool, len(f.Types)),
		AuxModules: make(map[string]bool, len(f.AuxModules)),
	}
	for k, v := range f.Types {
		c.Types[k] = v
	}
	for k, v := range f.AuxModules {
		c.AuxModules[k] = v
	}
	return c
}

// Compute derives the visible set.
//
// Per kind: a disabled type yields an empty set. Otherwise the result is
// the unrestricted bucket plus either the active frame's bucket or, with
// no active frame, every frame bucket. Aux entities are further filtered
// by their module's flag.
//
// When idx does not satisfy the minimal contract (see Index.Complete),
// every entity it knows through UUIDToKind is treated as unrestricted;
// type and module flags still apply. A nil index yields an empty set.
func Compute(idx *structindex.Index, filters Filters, activeFrame *int) Set {
	out := NewSet()
	if idx == nil {
		return out
	}
	if !idx.Complete() {
		return computeDegraded(idx, filters)
	}

	for _, kind := range scene.Kinds {
		if !filters.TypeEnabled(kind) {
			continue
		}
		members := make(structindex.Set)
		for id := range idx.UUIDsWithoutFramesByKind[kind] {
			members.Add(id)
		}
		buckets := idx.FrameIndex[kind]
		if activeFrame != nil {
			for id := range buckets[*activeFrame] {
				members.Add(id)
			}
		} else {
			for _, set := range buckets {
				for id := range set {
					members.Add(id)
				}
			}
		}
		if kind == scene.KindAux {
			filterModules(members, idx.AuxModules, filters)
		}
		out.set(kind, members)
	}
	return out
}

func computeDegraded(idx *structindex.Index, filters Filters) Set {
	out := NewSet()
	for id, kind := range idx.UUIDToKind {
		if !kind.Valid() || !filters.TypeEnabled(kind) {
			continue
		}
		out.Of(kind).Add(id)
	}
	filterModules(out.Aux, idx.AuxModules, filters)
	return out
}

func filterModules(members structindex.Set, modules map[string]string, filters Filters) {
	if len(filters.AuxModules) == 0 {
		return
	}
	for id := range members {
		mod, ok := modules[id]
		if ok && !filters.ModuleEnabled(mod) {
			delete(members, id)
		}
	}
}
