package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Mr-Dark-debug/vantage/pkg/jsonutil"
)

// renderDetail renders the selected entity: its identity, where it
// sits in the index, and its raw payload.
func renderDetail(m *Model, width, height int) string {
	title := panelTitleStyle.Render("Detail")

	state := m.hub.State()
	sel := state.Selection()
	if sel.Empty() {
		return title + "\n" +
			emptyStateStyle.Render("Click an entity or press tab.")
	}

	var lines []string
	lines = append(lines, title, "")
	lines = append(lines, detailRow("UUID", jsonutil.TruncateString(sel.UUID, width-6)))
	lines = append(lines, detailRow("Kind", string(sel.Kind)))
	lines = append(lines, detailRow("Mode", string(state.Mode())))

	idx := state.Index()
	e, ok := idx.Entity(sel.UUID)
	if ok {
		if spec, has := e.FrameSpec(); has {
			lines = append(lines, detailRow("Frames", jsonutil.TruncateString(jsonutil.CompactJSON(jsonutil.PrettyJSON(spec)), width-8)))
		} else {
			lines = append(lines, detailRow("Frames", "all"))
		}
		if mod, has := e.Module(); has {
			lines = append(lines, detailRow("Module", mod))
		}
		if refs := e.Refs(); len(refs) > 0 {
			lines = append(lines, detailRow("Ends", strings.Join(refs, ", ")))
		}
		if users := idx.ReferencedBy[sel.UUID]; len(users) > 0 {
			ids := append([]string(nil), users...)
			sort.Strings(ids)
			lines = append(lines, detailRow("Used by", jsonutil.TruncateString(strings.Join(ids, ", "), width-10)))
		}
	}

	if ms, on := state.MicroFX(); on {
		lines = append(lines, "")
		lines = append(lines, detailSectionStyle.Render("Focus"))
		lines = append(lines, detailRow("Profile", ms.Profile))
		lines = append(lines, detailRow("Related", fmt.Sprintf("%d", len(ms.Related))))
	}

	if ok {
		lines = append(lines, "")
		lines = append(lines, detailSectionStyle.Render("Payload"))
		for _, l := range strings.Split(jsonutil.PrettyJSON(map[string]any(e)), "\n") {
			lines = append(lines, detailJSONStyle.Render(jsonutil.TruncateString(l, width)))
		}
	}

	if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}

// renderDetailPanel wraps detail in a styled panel.
func renderDetailPanel(m *Model, width, height int) string {
	content := renderDetail(m, width-4, height)
	return panelStyle.Width(width - 1).Height(height).MaxHeight(height).Render(content)
}

func detailRow(label, value string) string {
	return detailLabelStyle.Render(fmt.Sprintf("%-8s", label)) + " " + detailValueStyle.Render(value)
}
