package termrender

import "github.com/charmbracelet/lipgloss"

// ────────────────────────────────────────────────────────────
// Palette
// ────────────────────────────────────────────────────────────

var (
	colorText      = lipgloss.Color("#e6edf3")
	colorTextDim   = lipgloss.Color("#8b949e")
	colorTextMuted = lipgloss.Color("#484f58")

	colorBlue   = lipgloss.Color("#58a6ff")
	colorGreen  = lipgloss.Color("#3fb950")
	colorRed    = lipgloss.Color("#f85149")
	colorYellow = lipgloss.Color("#d29922")
	colorPurple = lipgloss.Color("#bc8cff")
	colorCyan   = lipgloss.Color("#76e3ea")
)

// ink is a cell's style class. The zero value is blank space.
type ink uint8

const (
	inkNone ink = iota
	inkGrid
	inkAxisX
	inkAxisY
	inkAxisZ
	inkPoint
	inkLine
	inkAux
	inkLabel
	inkDimmed
	inkSelected
	inkFocus
	inkRelated
	inkCount
)

// styleTable maps every ink to its lipgloss style.
func styleTable() [inkCount]lipgloss.Style {
	var t [inkCount]lipgloss.Style
	base := lipgloss.NewStyle()
	t[inkNone] = base
	t[inkGrid] = base.Foreground(colorTextMuted)
	t[inkAxisX] = base.Foreground(colorRed)
	t[inkAxisY] = base.Foreground(colorGreen)
	t[inkAxisZ] = base.Foreground(colorBlue)
	t[inkPoint] = base.Foreground(colorCyan)
	t[inkLine] = base.Foreground(colorText)
	t[inkAux] = base.Foreground(colorTextDim)
	t[inkLabel] = base.Foreground(colorTextDim).Italic(true)
	t[inkDimmed] = base.Foreground(colorTextMuted).Faint(true)
	t[inkSelected] = base.Foreground(colorYellow).Bold(true)
	t[inkFocus] = base.Foreground(colorPurple).Bold(true)
	t[inkRelated] = base.Foreground(colorYellow)
	return t
}

// Glyphs.
const (
	glyphPoint    = '●'
	glyphSelected = '◉'
	glyphLine     = '·'
	glyphAux      = '+'
	glyphGrid     = '.'
	glyphAxis     = '∙'
)
