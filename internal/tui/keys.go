package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	RotateLeft  key.Binding
	RotateRight key.Binding
	RotateUp    key.Binding
	RotateDown  key.Binding
	PanLeft     key.Binding
	PanRight    key.Binding
	PanUp       key.Binding
	PanDown     key.Binding
	ZoomIn      key.Binding
	ZoomOut     key.Binding
	FOVUp       key.Binding
	FOVDown     key.Binding

	Next   key.Binding
	Prev   key.Binding
	Focus  key.Binding
	Back   key.Binding
	Lock   key.Binding
	Points key.Binding
	Lines  key.Binding
	Aux    key.Binding
	Module key.Binding

	FrameNext  key.Binding
	FramePrev  key.Binding
	FrameClear key.Binding

	Preset     key.Binding
	PresetBack key.Binding
	SnapX      key.Binding
	SnapY      key.Binding
	SnapZ      key.Binding
	Orbit      key.Binding
	Reset      key.Binding

	Profile key.Binding
	Grid    key.Binding
	Axes    key.Binding
	Labels  key.Binding
	Detail  key.Binding
	Help    key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	RotateLeft:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "orbit left")),
	RotateRight: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "orbit right")),
	RotateUp:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "orbit up")),
	RotateDown:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "orbit down")),
	PanLeft:     key.NewBinding(key.WithKeys("shift+left", "H"), key.WithHelp("H", "pan left")),
	PanRight:    key.NewBinding(key.WithKeys("shift+right", "L"), key.WithHelp("L", "pan right")),
	PanUp:       key.NewBinding(key.WithKeys("shift+up", "K"), key.WithHelp("K", "pan up")),
	PanDown:     key.NewBinding(key.WithKeys("shift+down", "J"), key.WithHelp("J", "pan down")),
	ZoomIn:      key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom in")),
	ZoomOut:     key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "zoom out")),
	FOVUp:       key.NewBinding(key.WithKeys("."), key.WithHelp(".", "widen fov")),
	FOVDown:     key.NewBinding(key.WithKeys(","), key.WithHelp(",", "narrow fov")),

	Next:   key.NewBinding(key.WithKeys("tab", "n"), key.WithHelp("tab", "next entity")),
	Prev:   key.NewBinding(key.WithKeys("shift+tab", "N"), key.WithHelp("shift+tab", "prev entity")),
	Focus:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "focus")),
	Back:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Lock:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "lock")),
	Points: key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "points")),
	Lines:  key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "lines")),
	Aux:    key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "aux")),
	Module: key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "aux module")),

	FrameNext:  key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next frame")),
	FramePrev:  key.NewBinding(key.WithKeys("["), key.WithHelp("[", "prev frame")),
	FrameClear: key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "all frames")),

	Preset:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "next view")),
	PresetBack: key.NewBinding(key.WithKeys("P"), key.WithHelp("P", "prev view")),
	SnapX:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "snap x+")),
	SnapY:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "snap y+")),
	SnapZ:      key.NewBinding(key.WithKeys("z"), key.WithHelp("z", "snap z+")),
	Orbit:      key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "auto-orbit")),
	Reset:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset view")),

	Profile: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "micro profile")),
	Grid:    key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "grid")),
	Axes:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "axes")),
	Labels:  key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "labels")),
	Detail:  key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "detail")),
	Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Focus, k.Back, k.Orbit, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.RotateLeft, k.RotateRight, k.RotateUp, k.RotateDown, k.ZoomIn, k.ZoomOut},
		{k.PanLeft, k.PanRight, k.PanUp, k.PanDown, k.FOVUp, k.FOVDown},
		{k.Next, k.Prev, k.Focus, k.Back, k.Lock, k.Detail},
		{k.Points, k.Lines, k.Aux, k.Module, k.FramePrev, k.FrameNext, k.FrameClear},
		{k.Preset, k.PresetBack, k.SnapX, k.SnapY, k.SnapZ, k.Orbit, k.Reset},
		{k.Profile, k.Grid, k.Axes, k.Labels, k.Help, k.Quit},
	}
}
