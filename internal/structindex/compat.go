package structindex

import (
	"github.com/Mr-Dark-debug/vantage/internal/scene"
	"github.com/Mr-Dark-debug/vantage/pkg/jsonutil"
)

// KindResolver is the canonical lookup contract. *Index implements it.
type KindResolver interface {
	KindOf(uuid string) (scene.Kind, bool)
}

// InferKind resolves the kind of uuid from source, which may be the
// canonical index or one of the older, partial shapes that callers still
// hand around:
//
//   - KindResolver (including *Index)
//   - map[string]scene.Kind              (a bare uuidToKind map)
//   - map[scene.Kind]Set                 (per-kind uuid sets)
//   - map[scene.Kind][]string            (per-kind uuid lists)
//   - map[string]scene.Entity            (a bare byUuid map; kind read from the entity's "kind" field)
//
// This is the only place such shapes are understood. It returns false
// when nothing resolves.
func InferKind(source any, uuid string) (scene.Kind, bool) {
	if uuid == "" || source == nil {
		return "", false
	}
	switch src := source.(type) {
	case KindResolver:
		return src.KindOf(uuid)
	case map[string]scene.Kind:
		k, ok := src[uuid]
		if !ok || !k.Valid() {
			return "", false
		}
		return k, true
	case map[scene.Kind]Set:
		for _, k := range scene.Kinds {
			if src[k].Has(uuid) {
				return k, true
			}
		}
	case map[scene.Kind][]string:
		for _, k := range scene.Kinds {
			for _, id := range src[k] {
				if id == uuid {
					return k, true
				}
			}
		}
	case map[string]scene.Entity:
		e, ok := src[uuid]
		if !ok {
			return "", false
		}
		if s, ok := jsonutil.AsString(e["kind"]); ok {
			return scene.ParseKind(s)
		}
	}
	return "", false
}
