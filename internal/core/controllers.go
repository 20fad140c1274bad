package core

import (
	"github.com/Mr-Dark-debug/vantage/internal/selection"
)

// Controllers is the verb-only namespace over one UIState.
type Controllers struct {
	Selection  *SelectionController
	Mode       *ModeController
	Visibility *VisibilityController
	Lock       *LockController
	Settings   *ViewerSettingsController
}

// NewControllers binds the controllers to s.
func NewControllers(s *UIState) *Controllers {
	return &Controllers{
		Selection:  &SelectionController{s: s},
		Mode:       &ModeController{s: s},
		Visibility: &VisibilityController{s: s},
		Lock:       &LockController{s: s},
		Settings:   &ViewerSettingsController{s: s},
	}
}

// SelectionController is the only writer of the selection.
type SelectionController struct {
	s *UIState
}

// Get returns the current selection.
func (c *SelectionController) Get() selection.Selection {
	return c.s.Selection()
}

// Select normalizes req against the visible set and index and makes it
// the selection. It returns false, leaving the selection unchanged, when
// the request does not resolve or the selection is locked.
func (c *SelectionController) Select(req selection.Request) (selection.Selection, bool) {
	s := c.s
	if s.Discarded() || s.locked {
		return s.Selection(), false
	}
	visible := s.visible
	sel := selection.Normalize(req, &visible, s.index)
	if sel.Empty() {
		return s.selection, false
	}
	s.setSelection(sel)
	return sel, true
}

// Clear drops the selection. Micro mode has no target without one, so
// it also returns to macro. Refused while locked.
func (c *SelectionController) Clear() bool {
	s := c.s
	if s.Discarded() || s.locked {
		return false
	}
	s.setSelection(selection.None)
	s.setMode(ModeMacro)
	return true
}

// Cycle selects the next (dir > 0) or previous (dir < 0) visible uuid in
// kind order, wrapping around. With nothing selected it starts at the
// first or last visible uuid.
func (c *SelectionController) Cycle(dir int) (selection.Selection, bool) {
	s := c.s
	if s.Discarded() || s.locked || dir == 0 {
		return s.Selection(), false
	}
	ids := s.visible.Sorted()
	if len(ids) == 0 {
		return s.selection, false
	}

	next := 0
	if dir < 0 {
		next = len(ids) - 1
	}
	if cur := s.selection.UUID; cur != "" {
		for i, id := range ids {
			if id == cur {
				step := 1
				if dir < 0 {
					step = -1
				}
				next = (i + step + len(ids)) % len(ids)
				break
			}
		}
	}
	return c.Select(selection.FromUUID(ids[next]))
}

// ModeController drives the macro ⇄ micro state machine.
type ModeController struct {
	s *UIState
}

// Get returns the current mode.
func (c *ModeController) Get() Mode {
	return c.s.Mode()
}

// CanEnter reports whether m may be entered now. Micro is refused while
// the camera auto-orbits.
func (c *ModeController) CanEnter(m Mode) bool {
	if c.s.Discarded() {
		return false
	}
	switch m {
	case ModeMacro:
		return true
	case ModeMicro:
		return !c.s.runtime.IsCameraAuto
	}
	return false
}

// Focus enters micro mode on the entity req resolves to.
//
// An unresolvable request returns to macro and clears the selection. A
// resolvable one while micro is not enterable (auto-orbit) becomes the
// selection but the mode stays macro. While locked, only the locked
// entity can be focused.
func (c *ModeController) Focus(req selection.Request) bool {
	s := c.s
	if s.Discarded() {
		return false
	}
	visible := s.visible
	sel := selection.Normalize(req, &visible, s.index)
	if s.locked && sel != s.selection {
		return false
	}
	if sel.Empty() {
		s.setSelection(selection.None)
		s.setMode(ModeMacro)
		return false
	}
	s.setSelection(sel)
	if !c.CanEnter(ModeMicro) {
		s.setMode(ModeMacro)
		return false
	}
	s.setMode(ModeMicro)
	return true
}

// Exit returns to macro, leaving the selection as is.
func (c *ModeController) Exit() {
	if c.s.Discarded() {
		return
	}
	c.s.setMode(ModeMacro)
}

// ForceMacro is Exit for callers that must guarantee macro before acting,
// such as the camera controller before starting auto-orbit.
func (c *ModeController) ForceMacro() {
	c.Exit()
}

// LockController pins the current selection. While locked, Select,
// Clear, Cycle and Focus on another entity are refused.
type LockController struct {
	s *UIState
}

// Get reports whether the selection is locked.
func (c *LockController) Get() bool {
	return !c.s.Discarded() && c.s.locked
}

// Set locks or unlocks. Locking with nothing selected is refused.
func (c *LockController) Set(on bool) bool {
	s := c.s
	if s.Discarded() {
		return false
	}
	if on && s.selection.Empty() {
		return false
	}
	s.locked = on
	return true
}

// Toggle flips the lock and returns the new value.
func (c *LockController) Toggle() bool {
	c.Set(!c.Get())
	return c.Get()
}
