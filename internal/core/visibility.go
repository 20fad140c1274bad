package core

import (
	"sort"
	"strings"

	"github.com/Mr-Dark-debug/vantage/internal/scene"
	"github.com/Mr-Dark-debug/vantage/internal/visibility"
)

// VisibilityController owns filters and the active frame. Every change
// recomputes the visible set immediately.
type VisibilityController struct {
	s *UIState
}

// Filters returns a copy of the current filters.
func (c *VisibilityController) Filters() visibility.Filters {
	if c.s.Discarded() {
		return visibility.Filters{}
	}
	return c.s.filters.Clone()
}

// TypeEnabled reports whether kind k is enabled.
func (c *VisibilityController) TypeEnabled(k scene.Kind) bool {
	return !c.s.Discarded() && c.s.filters.TypeEnabled(k)
}

// SetType enables or disables a kind. Unknown kinds are rejected.
func (c *VisibilityController) SetType(k scene.Kind, on bool) bool {
	s := c.s
	if s.Discarded() || !k.Valid() {
		return false
	}
	if s.filters.Types[k] != on {
		s.filters.Types[k] = on
		s.recompute()
	}
	return true
}

// ToggleType flips a kind and returns its new state.
func (c *VisibilityController) ToggleType(k scene.Kind) bool {
	on := !c.TypeEnabled(k)
	if !c.SetType(k, on) {
		return false
	}
	return on
}

// Modules returns the aux module names known to the index, sorted.
func (c *VisibilityController) Modules() []string {
	idx := c.s.Index()
	if idx == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, m := range idx.AuxModules {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out
}

// ModuleEnabled reports whether an aux module is enabled.
func (c *VisibilityController) ModuleEnabled(name string) bool {
	return !c.s.Discarded() && c.s.filters.ModuleEnabled(name)
}

// SetAuxModule enables or disables an aux module by name.
func (c *VisibilityController) SetAuxModule(name string, on bool) bool {
	s := c.s
	name = strings.TrimSpace(name)
	if s.Discarded() || name == "" {
		return false
	}
	if s.filters.ModuleEnabled(name) != on {
		s.filters.AuxModules[name] = on
		s.recompute()
	}
	return true
}

// ToggleAuxModule flips an aux module and returns its new state.
func (c *VisibilityController) ToggleAuxModule(name string) bool {
	on := !c.ModuleEnabled(name)
	if !c.SetAuxModule(name, on) {
		return false
	}
	return on
}

// Frame returns the active frame, if any.
func (c *VisibilityController) Frame() (int, bool) {
	s := c.s
	if s.Discarded() || s.activeFrame == nil {
		return 0, false
	}
	return *s.activeFrame, true
}

// SetFrame makes n the active frame. Any integer is accepted; a frame no
// entity belongs to shows only unrestricted entities.
func (c *VisibilityController) SetFrame(n int) bool {
	s := c.s
	if s.Discarded() {
		return false
	}
	if s.activeFrame != nil && *s.activeFrame == n {
		return true
	}
	s.activeFrame = &n
	s.recompute()
	return true
}

// ClearFrame removes the active frame so every frame is shown.
func (c *VisibilityController) ClearFrame() bool {
	s := c.s
	if s.Discarded() {
		return false
	}
	if s.activeFrame != nil {
		s.activeFrame = nil
		s.recompute()
	}
	return true
}

// StepFrame moves to the next (dir > 0) or previous (dir < 0) frame the
// document uses, wrapping around. With no active frame it starts at the
// first or last. It returns the new frame, or false when the document has
// no framed entities.
func (c *VisibilityController) StepFrame(dir int) (int, bool) {
	frames := c.s.Index().Frames()
	if len(frames) == 0 || dir == 0 {
		return 0, false
	}
	cur, ok := c.Frame()
	var next int
	switch {
	case !ok && dir > 0:
		next = frames[0]
	case !ok:
		next = frames[len(frames)-1]
	default:
		i := sort.SearchInts(frames, cur)
		if dir > 0 {
			if i < len(frames) && frames[i] == cur {
				i++
			}
			next = frames[i%len(frames)]
		} else {
			i--
			if i < 0 {
				i = len(frames) - 1
			}
			next = frames[i]
		}
	}
	if !c.SetFrame(next) {
		return 0, false
	}
	return next, true
}

// VisibleSet returns the current visible set.
func (c *VisibilityController) VisibleSet() visibility.Set {
	return c.s.VisibleSet()
}

// Revision increments every time the visible set changes.
func (c *VisibilityController) Revision() uint64 {
	return c.s.VisibleRevision()
}
