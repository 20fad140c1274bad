// Package structindex builds the structural index over a loaded scene
// document: uuid lookups, uuid→kind, and a per-kind frame index.
//
// An index is immutable once built. Loading a new document means
// building a new index; nothing here patches an existing one.
package structindex

import (
	"fmt"
	"sort"

	"github.com/Mr-Dark-debug/vantage/internal/logging"
	"github.com/Mr-Dark-debug/vantage/internal/scene"
)

// Set is a set of uuids.
type Set map[string]struct{}

// NewSet creates a set holding ids.
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set. A nil set has nothing.
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id.
func (s Set) Add(id string) { s[id] = struct{}{} }

// Sorted returns the members in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Index is the structural index of one document.
type Index struct {
	// ByUUID maps every indexed uuid to its entity payload.
	ByUUID map[string]scene.Entity
	// UUIDToKind maps every indexed uuid to the collection it came from.
	UUIDToKind map[string]scene.Kind
	// FrameIndex maps kind → frame number → uuids present in that frame.
	// Only entities with a resolvable discrete frame list appear here.
	FrameIndex map[scene.Kind]map[int]Set
	// UUIDsWithoutFramesByKind holds entities visible in every frame:
	// no frame spec, an empty or all-invalid list, or a range spec.
	UUIDsWithoutFramesByKind map[scene.Kind]Set

	// AuxModules maps aux uuid → module name, for aux entities that have one.
	AuxModules map[string]string
	// LineRefs maps line uuid → referenced point uuids.
	LineRefs map[string][]string
	// ReferencedBy maps a referenced uuid → lines referencing it.
	ReferencedBy map[string][]string

	// Skipped counts entities dropped for lack of a usable uuid, per kind.
	Skipped map[scene.Kind]int
	// Duplicates counts entities whose uuid was already indexed.
	Duplicates int

	frames []int
}

func newIndex() *Index {
	idx := &Index{
		ByUUID:                   make(map[string]scene.Entity),
		UUIDToKind:               make(map[string]scene.Kind),
		FrameIndex:               make(map[scene.Kind]map[int]Set, len(scene.Kinds)),
		UUIDsWithoutFramesByKind: make(map[scene.Kind]Set, len(scene.Kinds)),
		AuxModules:               make(map[string]string),
		LineRefs:                 make(map[string][]string),
		ReferencedBy:             make(map[string][]string),
		Skipped:                  make(map[scene.Kind]int, len(scene.Kinds)),
	}
	for _, k := range scene.Kinds {
		idx.FrameIndex[k] = make(map[int]Set)
		idx.UUIDsWithoutFramesByKind[k] = make(Set)
	}
	return idx
}

// Build indexes doc. Entities without a usable uuid are skipped; a nil
// document yields an empty, valid index. Build never fails.
func Build(doc *scene.Document) *Index {
	log := logging.For("structindex")
	idx := newIndex()
	allFrames := make(map[int]struct{})

	for _, kind := range scene.Kinds {
		for i, e := range doc.Collection(kind) {
			id, ok := e.UUID()
			if !ok {
				idx.Skipped[kind]++
				log.Debug("skipping entity without uuid", "kind", kind, "position", i)
				continue
			}
			if _, dup := idx.ByUUID[id]; dup {
				idx.Duplicates++
				log.Debug("skipping duplicate uuid", "kind", kind, "uuid", id)
				continue
			}

			idx.ByUUID[id] = e
			idx.UUIDToKind[id] = kind

			spec, _ := e.FrameSpec()
			frames, indexed := ClassifyFrames(spec)
			if indexed {
				buckets := idx.FrameIndex[kind]
				for _, f := range frames {
					set, ok := buckets[f]
					if !ok {
						set = make(Set)
						buckets[f] = set
					}
					set.Add(id)
					allFrames[f] = struct{}{}
				}
			} else {
				idx.UUIDsWithoutFramesByKind[kind].Add(id)
			}

			switch kind {
			case scene.KindAux:
				if mod, ok := e.Module(); ok {
					idx.AuxModules[id] = mod
				}
			case scene.KindLines:
				if refs := e.Refs(); len(refs) > 0 {
					idx.LineRefs[id] = refs
					for _, ref := range refs {
						idx.ReferencedBy[ref] = append(idx.ReferencedBy[ref], id)
					}
				}
			}
		}
	}

	idx.frames = make([]int, 0, len(allFrames))
	for f := range allFrames {
		idx.frames = append(idx.frames, f)
	}
	sort.Ints(idx.frames)

	log.Debug("index built",
		"entities", len(idx.ByUUID),
		"frames", len(idx.frames),
		"duplicates", idx.Duplicates)
	return idx
}

// KindOf returns the kind of an indexed uuid.
func (idx *Index) KindOf(id string) (scene.Kind, bool) {
	if idx == nil || idx.UUIDToKind == nil {
		return "", false
	}
	k, ok := idx.UUIDToKind[id]
	return k, ok
}

// Entity returns the payload of an indexed uuid.
func (idx *Index) Entity(id string) (scene.Entity, bool) {
	if idx == nil || idx.ByUUID == nil {
		return nil, false
	}
	e, ok := idx.ByUUID[id]
	return e, ok
}

// Frames returns every frame number referenced by any entity, ascending.
func (idx *Index) Frames() []int {
	if idx == nil {
		return nil
	}
	out := make([]int, len(idx.frames))
	copy(out, idx.frames)
	return out
}

// Len returns the number of indexed entities.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.ByUUID)
}

// Complete reports whether idx satisfies the minimal index contract:
// all four canonical maps are present, with a bucket entry for every kind.
// Consumers fall back to a degraded policy when this is false.
func (idx *Index) Complete() bool {
	if idx == nil || idx.ByUUID == nil || idx.UUIDToKind == nil ||
		idx.FrameIndex == nil || idx.UUIDsWithoutFramesByKind == nil {
		return false
	}
	for _, k := range scene.Kinds {
		if idx.FrameIndex[k] == nil || idx.UUIDsWithoutFramesByKind[k] == nil {
			return false
		}
	}
	return true
}

// Degraded reports whether idx falls short of the minimal contract.
func (idx *Index) Degraded() bool { return !idx.Complete() }

// Validate checks the index invariants: every uuid in byUuid has a kind,
// and sits either in one or more frame buckets of its kind or in the
// unrestricted bucket of its kind, never both and never elsewhere.
func (idx *Index) Validate() error {
	if !idx.Complete() {
		return fmt.Errorf("structindex: index does not satisfy the minimal contract")
	}
	if len(idx.ByUUID) != len(idx.UUIDToKind) {
		return fmt.Errorf("structindex: byUuid has %d entries, uuidToKind has %d",
			len(idx.ByUUID), len(idx.UUIDToKind))
	}

	framed := make(map[string]scene.Kind)
	for kind, buckets := range idx.FrameIndex {
		for f, set := range buckets {
			for id := range set {
				if other, ok := framed[id]; ok && other != kind {
					return fmt.Errorf("structindex: %s framed under %s and %s", id, other, kind)
				}
				if idx.UUIDToKind[id] != kind {
					return fmt.Errorf("structindex: %s in %s frame %d but has kind %q", id, kind, f, idx.UUIDToKind[id])
				}
				framed[id] = kind
			}
		}
	}
	for kind, set := range idx.UUIDsWithoutFramesByKind {
		for id := range set {
			if _, ok := framed[id]; ok {
				return fmt.Errorf("structindex: %s is both framed and unrestricted", id)
			}
			if idx.UUIDToKind[id] != kind {
				return fmt.Errorf("structindex: %s unrestricted under %s but has kind %q", id, kind, idx.UUIDToKind[id])
			}
			framed[id] = kind
		}
	}
	for id := range idx.ByUUID {
		if _, ok := framed[id]; !ok {
			return fmt.Errorf("structindex: %s is in no bucket", id)
		}
	}
	return nil
}
