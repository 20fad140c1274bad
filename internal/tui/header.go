package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Mr-Dark-debug/vantage/internal/core"
	"github.com/Mr-Dark-debug/vantage/internal/scene"
	"github.com/Mr-Dark-debug/vantage/pkg/jsonutil"
	"github.com/Mr-Dark-debug/vantage/pkg/timeutil"
)

// renderHeader produces the top bar:
//
//	VANTAGE │ harbour scan │ MACRO │ points lines aux │ frame 3/12 │ orbit
func renderHeader(m *Model) string {
	snap := m.hub.Snapshot()
	sep := headerSepStyle.Render(" │ ")

	parts := []string{
		headerBrandStyle.Render("VANTAGE"),
		sep,
		headerMetaStyle.Render(jsonutil.TruncateString(m.title(), 32)),
		sep,
	}

	if snap.Mode == core.ModeMicro {
		parts = append(parts, modeMicroStyle.Render("MICRO"))
	} else {
		parts = append(parts, modeMacroStyle.Render("MACRO"))
	}

	var kinds []string
	for _, k := range scene.Kinds {
		label := fmt.Sprintf("%s %d", k, snap.Visible[k])
		if snap.Types[k] {
			kinds = append(kinds, flagOnStyle.Render(label))
		} else {
			kinds = append(kinds, flagOffStyle.Render(string(k)))
		}
	}
	parts = append(parts, sep, strings.Join(kinds, " "))

	if len(snap.Frames) > 0 {
		frame := "all"
		if snap.Frame != nil {
			frame = fmt.Sprintf("%d", *snap.Frame)
		}
		parts = append(parts, sep, headerMetaStyle.Render(
			fmt.Sprintf("frame %s/%d", frame, len(snap.Frames))))
	}

	if snap.Locked {
		parts = append(parts, sep, lockStyle.Render("locked"))
	}
	if snap.Runtime.IsCameraAuto {
		parts = append(parts, sep, orbitStyle.Render("orbit"))
	}

	return headerBarStyle.Width(m.width).MaxHeight(1).Render(strings.Join(parts, ""))
}

// renderFooter produces the bottom status bar: status on the left, view
// and frame timing on the right.
func renderFooter(m *Model) string {
	left := statusStyle.Render(m.statusMsg)
	if m.err != nil {
		left = statusErrStyle.Render(m.statusMsg)
	}

	stats := m.hub.Stats()
	cam := m.hub.Core().Camera.State()
	right := statusAccentStyle.Render(fmt.Sprintf("%s  d=%.1f  fov %.0f°  %s",
		presetLabel(m.hub.Core().Camera.Preset()), cam.Distance, cam.FOV,
		timeutil.FormatFrameTime(stats.LastFrameTime)))
	if !m.showHelp {
		right = statusStyle.Render(m.help.ShortHelpView(keys.ShortHelp())) + right
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return lipgloss.NewStyle().
		Background(colorBgSurface).
		Width(m.width).
		MaxHeight(1).
		Render(bar)
}

func presetLabel(name string) string {
	if name == "" {
		return "free"
	}
	return name
}
