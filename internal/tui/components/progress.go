package components

import (
	"fmt"
	"math"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/finburn/internal/tui/theme"
)

// ShareBar renders pct (0..1) as a solid bar followed by the percentage.
func ShareBar(pct float64, width int) string {
	t := theme.Active
	if pct < 0 || math.IsNaN(pct) {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}

	bar := progress.New(
		progress.WithSolidFill(string(t.Accent)),
		progress.WithWidth(width),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	pctStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	return bar.ViewAs(pct) + pctStyle.Render(fmt.Sprintf(" %5.1f%%", pct*100))
}
