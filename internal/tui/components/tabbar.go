package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/finburn/internal/tui/theme"
)

// Tab is one view of the panel.
type Tab struct {
	Name string
	Key  string
}

// Tabs are the panel views in display order.
var Tabs = []Tab{
	{Name: "Records", Key: "1"},
	{Name: "Costs", Key: "2"},
}

func tabLabel(tab Tab, active bool) string {
	if active {
		return tab.Name
	}
	return tab.Name + "[" + tab.Key + "]"
}

// TabVisualWidth is the rendered width of a tab, padding included.
func TabVisualWidth(tab Tab, active bool) int {
	return lipgloss.Width(tabLabel(tab, active)) + 2
}

// RenderTabBar renders the view tabs on one line. Tabs are separated by
// a single column.
func RenderTabBar(activeIdx, width int) string {
	t := theme.Active

	activeStyle := lipgloss.NewStyle().
		Foreground(t.AccentBright).
		Background(t.SurfaceHover).
		Bold(true).
		Padding(0, 1)
	inactiveStyle := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface).
		Padding(0, 1)
	sep := lipgloss.NewStyle().Background(t.Surface).Render(" ")

	out := ""
	for i, tab := range Tabs {
		if i > 0 {
			out += sep
		}
		if i == activeIdx {
			out += activeStyle.Render(tabLabel(tab, true))
		} else {
			out += inactiveStyle.Render(tabLabel(tab, false))
		}
	}
	return lipgloss.NewStyle().Background(t.Surface).Width(width).Render(out)
}

// TabIdxByKey returns the tab index for a key press, or -1.
func TabIdxByKey(key string) int {
	for i, tab := range Tabs {
		if tab.Key == key {
			return i
		}
	}
	return -1
}
