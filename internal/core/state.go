// Package core owns the viewer's UI state and the controllers that are
// its only mutation path.
//
// UIState fields are unexported. Code outside this package reads state
// through getters and changes it through controller verbs (Select,
// Focus, SetType, Toggle, ...). Each region has one writer:
//
//	selection, mode      SelectionController / ModeController
//	filters, frame       VisibilityController (visible set is derived)
//	lock                 LockController
//	viewer settings      ViewerSettingsController
//	runtime.isCameraAuto whoever holds the writer from ClaimCameraAutoWriter
//
// Nothing in this package imports rendering or UI code.
package core

import (
	"errors"
	"fmt"

	"github.com/Mr-Dark-debug/vantage/internal/camera"
	"github.com/Mr-Dark-debug/vantage/internal/logging"
	"github.com/Mr-Dark-debug/vantage/internal/scene"
	"github.com/Mr-Dark-debug/vantage/internal/selection"
	"github.com/Mr-Dark-debug/vantage/internal/structindex"
	"github.com/Mr-Dark-debug/vantage/internal/visibility"
)

// ErrInvalidState reports a missing or malformed UI state sub-structure.
// It is an integration error and surfaces at construction time.
var ErrInvalidState = errors.New("core: invalid ui state")

// ErrWriterClaimed is returned when the camera-auto writer is claimed twice.
var ErrWriterClaimed = errors.New("core: camera auto writer already claimed")

// Mode is the viewer mode.
type Mode string

const (
	// ModeMacro is the overview mode.
	ModeMacro Mode = "macro"
	// ModeMicro focuses a single entity.
	ModeMicro Mode = "micro"
)

// Runtime holds runtime flags. Read-only outside their writers.
type Runtime struct {
	IsCameraAuto bool `json:"is_camera_auto"`
}

// Seed is the initial UI state. Filters and ViewerSettings are required.
type Seed struct {
	Mode           Mode
	Filters        *visibility.Filters
	ViewerSettings *ViewerSettings
	ActiveFrame    *int
}

// DefaultSeed returns a seed with every kind enabled and default settings.
func DefaultSeed() Seed {
	filters := visibility.Filters{
		Types: map[scene.Kind]bool{
			scene.KindPoints: true,
			scene.KindLines:  true,
			scene.KindAux:    true,
		},
		AuxModules: map[string]bool{},
	}
	settings := DefaultViewerSettings()
	return Seed{Mode: ModeMacro, Filters: &filters, ViewerSettings: &settings}
}

// View is the read-only face of a UIState handed to hosts. Mutation
// goes through the controllers.
type View interface {
	Discarded() bool
	Index() *structindex.Index
	Mode() Mode
	Selection() selection.Selection
	VisibleSet() visibility.Set
	VisibleRevision() uint64
	SelectionRevision() uint64
	Runtime() Runtime
	MicroFX() (MicroState, bool)
}

// View returns a read-only view of s. The view cannot be asserted back
// to the state.
func (s *UIState) View() View { return stateView{s} }

type stateView struct{ s *UIState }

func (v stateView) Discarded() bool { return v.s.Discarded() }
func (v stateView) Index() *structindex.Index { return v.s.Index() }
func (v stateView) Mode() Mode { return v.s.Mode() }
func (v stateView) Selection() selection.Selection { return v.s.Selection() }
func (v stateView) VisibleSet() visibility.Set { return v.s.VisibleSet() }
func (v stateView) VisibleRevision() uint64 { return v.s.VisibleRevision() }
func (v stateView) SelectionRevision() uint64 { return v.s.SelectionRevision() }
func (v stateView) Runtime() Runtime { return v.s.Runtime() }
func (v stateView) MicroFX() (MicroState, bool) { return MicroFX(v.s) }

// UIState is the single mutable state aggregate of one viewer instance.
type UIState struct {
	mode      Mode
	selection selection.Selection
	locked    bool

	filters     visibility.Filters
	activeFrame *int
	index       *structindex.Index
	visible     visibility.Set
	visibleRev  uint64

	runtime      Runtime
	autoClaimed  bool
	settings     ViewerSettings
	settingsRev  uint64
	fovRev       uint64
	selectionRev uint64
	discarded    bool
}

// NewUIState validates seed and builds the state. A nil or incomplete
// Filters (any kind missing from Types) or nil ViewerSettings fails.
func NewUIState(seed Seed) (*UIState, error) {
	if seed.Filters == nil {
		return nil, fmt.Errorf("%w: filters missing", ErrInvalidState)
	}
	if seed.Filters.Types == nil {
		return nil, fmt.Errorf("%w: filters.types missing", ErrInvalidState)
	}
	for _, k := range scene.Kinds {
		if _, ok := seed.Filters.Types[k]; !ok {
			return nil, fmt.Errorf("%w: filters.types has no entry for %q", ErrInvalidState, k)
		}
	}
	if seed.ViewerSettings == nil {
		return nil, fmt.Errorf("%w: viewer settings missing", ErrInvalidState)
	}
	switch seed.Mode {
	case "", ModeMacro:
	case ModeMicro:
		return nil, fmt.Errorf("%w: cannot start in micro mode without a focus target", ErrInvalidState)
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidState, seed.Mode)
	}

	s := &UIState{
		mode:     ModeMacro,
		filters:  seed.Filters.Clone(),
		settings: seed.ViewerSettings.clone(),
		visible:  visibility.NewSet(),
	}
	s.settings.Camera.FOV = camera.ClampFOV(s.settings.Camera.FOV)
	if seed.ActiveFrame != nil {
		f := *seed.ActiveFrame
		s.activeFrame = &f
	}
	return s, nil
}

// LoadIndex replaces the structural index after a document load. The
// selection is cleared, the mode returns to macro and visibility is
// recomputed. Filters, frame, lock and settings carry over.
func (s *UIState) LoadIndex(idx *structindex.Index) {
	if s == nil || s.discarded {
		return
	}
	s.index = idx
	s.locked = false
	s.setSelection(selection.None)
	s.setMode(ModeMacro)
	s.recompute()
	logging.For("core").Info("index loaded", "entities", idx.Len())
}

// Discard ends the state's life. Every controller becomes a no-op and
// every getter returns a zero value.
func (s *UIState) Discard() {
	if s == nil || s.discarded {
		return
	}
	s.discarded = true
	s.index = nil
	s.visible = visibility.NewSet()
	s.selection = selection.None
}

// Discarded reports whether Discard was called.
func (s *UIState) Discarded() bool { return s == nil || s.discarded }

// Index returns the current structural index (nil before a load).
func (s *UIState) Index() *structindex.Index {
	if s.Discarded() {
		return nil
	}
	return s.index
}

// Mode returns the current mode.
func (s *UIState) Mode() Mode {
	if s.Discarded() {
		return ModeMacro
	}
	return s.mode
}

// Selection returns the current selection.
func (s *UIState) Selection() selection.Selection {
	if s.Discarded() {
		return selection.None
	}
	return s.selection
}

// VisibleSet returns the current visible set. Callers must treat the
// member sets as read-only; they are replaced, never edited, on change.
func (s *UIState) VisibleSet() visibility.Set {
	if s.Discarded() {
		return visibility.NewSet()
	}
	return s.visible
}

// VisibleRevision increments every time the visible set is recomputed
// with a different result.
func (s *UIState) VisibleRevision() uint64 {
	if s == nil {
		return 0
	}
	return s.visibleRev
}

// SelectionRevision increments on every selection or mode change.
func (s *UIState) SelectionRevision() uint64 {
	if s == nil {
		return 0
	}
	return s.selectionRev
}

// Runtime returns a copy of the runtime flags.
func (s *UIState) Runtime() Runtime {
	if s.Discarded() {
		return Runtime{}
	}
	return s.runtime
}

// ClaimCameraAutoWriter hands out the only writer for
// runtime.isCameraAuto. The camera controller claims it at construction;
// any later claim fails.
func (s *UIState) ClaimCameraAutoWriter() (func(bool), error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil state", ErrInvalidState)
	}
	if s.autoClaimed {
		return nil, ErrWriterClaimed
	}
	s.autoClaimed = true
	return func(on bool) {
		if s.discarded {
			return
		}
		s.runtime.IsCameraAuto = on
	}, nil
}

func (s *UIState) setSelection(sel selection.Selection) {
	if sel != s.selection {
		s.selection = sel
		s.selectionRev++
	}
}

func (s *UIState) setMode(m Mode) {
	if m != s.mode {
		s.mode = m
		s.selectionRev++
	}
}

// recompute derives the visible set from the current inputs and drops a
// selection that is no longer visible.
func (s *UIState) recompute() {
	next := visibility.Compute(s.index, s.filters, s.activeFrame)
	if !next.Equal(s.visible) || s.visibleRev == 0 {
		s.visibleRev++
	}
	s.visible = next

	if !s.selection.Empty() && !next.Of(s.selection.Kind).Has(s.selection.UUID) {
		s.locked = false
		s.setSelection(selection.None)
		s.setMode(ModeMacro)
	}
}
