package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/finburn/internal/tui/theme"
)

// RenderStatusBar renders the bottom bar with key hints on the left and
// pass/rate status on the right. warn colors the right side.
func RenderStatusBar(width int, right string, warn bool) string {
	t := theme.Active

	base := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	rightStyle := base
	if warn {
		rightStyle = rightStyle.Foreground(t.Orange)
	}

	left := base.Render(" [p]anel  [c]urrency  [s]ort  [f]ree  [r]efresh  [?]help  [q]uit")
	r := rightStyle.Render(right + " ")

	gap := width - lipgloss.Width(left) - lipgloss.Width(r)
	if gap < 1 {
		// Narrow terminals keep the status, which is the part that changes.
		return lipgloss.PlaceHorizontal(width, lipgloss.Right, r,
			lipgloss.WithWhitespaceBackground(t.Surface))
	}
	return left + base.Render(strings.Repeat(" ", gap)) + r
}
