// Package tui implements the Vantage terminal viewer.
//
// The model hosts a hub.Hub and is the UI layer only: every input is
// mapped to a call on the hub's controller namespace, and the scene is
// drawn by termrender.
//
// Component architecture:
//
//	model.go    : root model, message routing, Init/Update/View
//	scheduler.go: hub.FrameScheduler on top of tea.Tick
//	keys.go     : key bindings and help groups
//	theme.go    : centralized color + style definitions
//	header.go   : top bar with document and mode, bottom status bar
//	detail.go   : selected entity metadata + payload
package tui
