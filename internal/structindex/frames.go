package structindex

import (
	"sort"
	"strings"

	"github.com/Mr-Dark-debug/vantage/pkg/jsonutil"
)

// ClassifyFrames resolves a raw frame specification.
//
// indexed is true when spec resolves to a non-empty discrete set of
// integer frames, returned ascending and de-duplicated. A single value,
// a list, or coercible scalars ("3", 3.0) all qualify; invalid list
// entries are dropped.
//
// indexed is false (the entity is unrestricted) for: no spec, an empty
// list, a list whose entries are all invalid, or any range-style spec
// (an object such as {"start":1,"end":5} or a string such as "1..5").
func ClassifyFrames(spec any) (frames []int, indexed bool) {
	switch v := spec.(type) {
	case nil:
		return nil, false
	case []any:
		seen := make(map[int]struct{}, len(v))
		for _, item := range v {
			f, ok := jsonutil.AsInt(item)
			if !ok {
				continue
			}
			if _, dup := seen[f]; dup {
				continue
			}
			seen[f] = struct{}{}
			frames = append(frames, f)
		}
		if len(frames) == 0 {
			return nil, false
		}
		sort.Ints(frames)
		return frames, true
	case []int:
		items := make([]any, len(v))
		for i, f := range v {
			items[i] = f
		}
		return ClassifyFrames(items)
	case map[string]any:
		return nil, false
	case string:
		if isRangeString(v) {
			return nil, false
		}
	}
	if f, ok := jsonutil.AsInt(spec); ok {
		return []int{f}, true
	}
	return nil, false
}

// isRangeString recognises "1..5", "1-5" and "1:5" style specs.
func isRangeString(s string) bool {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "..") || strings.Contains(s, ":") {
		return true
	}
	// "1-5" is a range, "-3" is a negative frame number.
	return strings.Contains(strings.TrimPrefix(s, "-"), "-")
}
