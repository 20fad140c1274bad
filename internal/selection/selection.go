// Package selection reconciles a requested selection against what is
// actually visible and indexed.
//
// Normalize is pure: it never mutates its inputs, performs no I/O and
// returns the same result for the same inputs.
package selection

import (
	"strings"

	"github.com/Mr-Dark-debug/vantage/internal/scene"
	"github.com/Mr-Dark-debug/vantage/internal/structindex"
	"github.com/Mr-Dark-debug/vantage/internal/visibility"
)

// Selection is a resolved {uuid, kind} pair. Both fields are set or
// both are empty; a uuid with an unresolved kind never escapes Normalize.
type Selection struct {
	UUID string     `json:"uuid"`
	Kind scene.Kind `json:"kind"`
}

// None is the empty selection.
var None = Selection{}

// Empty reports whether nothing is selected.
func (s Selection) Empty() bool {
	return s.UUID == "" || s.Kind == ""
}

// Request is a caller's selection intent. Kind is optional.
type Request struct {
	UUID string
	Kind scene.Kind
}

// FromUUID builds a request from a bare uuid.
func FromUUID(uuid string) Request {
	return Request{UUID: uuid}
}

// Normalize validates req.
//
//  1. The uuid must be a non-empty string, else None.
//  2. With a visible set, the uuid must be visible under some kind, else
//     None. A requested kind under which the uuid is visible is kept;
//     otherwise the first kind it is visible under wins.
//  3. Without a visible set, a valid requested kind is trusted; otherwise
//     the kind is inferred from source (see structindex.InferKind), and an
//     unresolvable kind yields None.
func Normalize(req Request, visible *visibility.Set, source any) Selection {
	uuid := strings.TrimSpace(req.UUID)
	if uuid == "" {
		return None
	}

	if visible != nil {
		if req.Kind.Valid() && visible.Of(req.Kind).Has(uuid) {
			return Selection{UUID: uuid, Kind: req.Kind}
		}
		kind, ok := visible.KindOf(uuid)
		if !ok {
			return None
		}
		return Selection{UUID: uuid, Kind: kind}
	}

	if req.Kind.Valid() {
		return Selection{UUID: uuid, Kind: req.Kind}
	}
	kind, ok := structindex.InferKind(source, uuid)
	if !ok {
		return None
	}
	return Selection{UUID: uuid, Kind: kind}
}
