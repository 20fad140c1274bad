package core

import (
	"sort"

	"github.com/Mr-Dark-debug/vantage/internal/selection"
)

// MicroState describes the micro-mode focus effect for the renderer.
type MicroState struct {
	Focus   selection.Selection `json:"focus"`
	Profile string              `json:"profile"`
	// Related are visible uuids linked to the focus through line
	// endpoint references: the endpoints of a focused line, or the lines
	// touching a focused point plus their other endpoints.
	Related []string `json:"related,omitempty"`
}

// MicroFX computes the micro state of s.
func (s *UIState) MicroFX() (MicroState, bool) { return MicroFX(s) }

// MicroFX computes the micro state. It returns false outside micro mode.
func MicroFX(s *UIState) (MicroState, bool) {
	if s.Discarded() || s.mode != ModeMicro || s.selection.Empty() {
		return MicroState{}, false
	}
	out := MicroState{Focus: s.selection, Profile: s.settings.FX.Micro.Profile}
	idx := s.index
	if idx == nil {
		return out, true
	}

	focus := s.selection.UUID
	related := make(map[string]bool)
	add := func(id string) {
		if id != focus && s.visible.Contains(id) {
			related[id] = true
		}
	}
	for _, ref := range idx.LineRefs[focus] {
		add(ref)
	}
	for _, line := range idx.ReferencedBy[focus] {
		add(line)
		for _, ref := range idx.LineRefs[line] {
			add(ref)
		}
	}
	for id := range related {
		out.Related = append(out.Related, id)
	}
	sort.Strings(out.Related)
	return out, true
}
