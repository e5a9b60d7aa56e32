package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/finburn/internal/cli"
	"github.com/theirongolddev/finburn/internal/tui/components"
	"github.com/theirongolddev/finburn/internal/tui/theme"
)

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if !a.visible() {
		return a.viewHidden()
	}
	if !a.loaded {
		return a.viewLoading()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := a.height
	if h < 5 {
		h = 5
	}
	msg := fmt.Sprintf("\n  Terminal too narrow (%d cols)\n\n  finburn needs at least %d columns.\n",
		a.width, minTerminalWidth)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) centered(card string) string {
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, card,
		lipgloss.WithWhitespaceBackground(theme.Active.Background))
}

func cardStyles() (card, logo, muted, primary lipgloss.Style) {
	t := theme.Active
	card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)
	logo = lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	muted = lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	primary = lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	return
}

func (a App) viewLoading() string {
	card, logo, muted, _ := cardStyles()

	var b strings.Builder
	b.WriteString(logo.Render("◈ finburn"))
	b.WriteString(muted.Render(" · server billing"))
	b.WriteString("\n\n")
	b.WriteString(a.spinner.View())
	b.WriteString(muted.Render(" Reading " + truncStr(a.page, 40)))
	if a.lastErr != nil {
		b.WriteString("\n\n")
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Active.Red).Background(theme.Active.Surface).
			Render(truncStr(a.lastErr.Error(), 60)))
	}
	return a.centered(card.Render(b.String()))
}

// viewHidden is the collapsed panel. The last totals stay on screen,
// dimmed, since nothing refreshes them until the panel is shown again.
func (a App) viewHidden() string {
	card, logo, muted, primary := cardStyles()

	var b strings.Builder
	b.WriteString(logo.Render("◈ finburn"))
	b.WriteString("\n\n")
	b.WriteString(primary.Render("Panel hidden"))
	b.WriteString("\n")
	b.WriteString(muted.Render("Page changes are ignored until it is shown."))
	if a.loaded {
		s := a.res.Summary
		b.WriteString("\n\n")
		b.WriteString(muted.Render(fmt.Sprintf("Last seen %s: %s total, %s/mo",
			since(a.res.At), cli.FormatMoney(s.Symbol, s.TotalCost), cli.FormatMoney(s.Symbol, s.MonthlyCost))))
	}
	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface).
		Render("press p to show · q to quit"))
	return a.centered(card.Render(b.String()))
}

func (a App) viewHelp() string {
	t := theme.Active
	card, logo, muted, _ := cardStyles()
	keyStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true).Width(10)

	bindings := []struct{ key, desc string }{
		{"p space", "Show / hide the panel"},
		{"c C", "Next / previous display currency"},
		{"s", "Cycle sort order"},
		{"f", "Toggle excluding free servers from totals"},
		{"r", "Refresh exchange rates"},
		{"1 2 ← →", "Switch view"},
		{"j k", "Move selection"},
		{"/ esc", "Filter by name / clear filter"},
		{"q", "Quit"},
	}

	var b strings.Builder
	b.WriteString(logo.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n\n")
	for _, kb := range bindings {
		b.WriteString(keyStyle.Render(kb.key))
		b.WriteString(muted.Render(kb.desc))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(muted.Render("press any key to close"))
	return a.centered(card.Render(b.String()))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()

	header := components.RenderTabBar(a.activeTab, w) + "\n" + a.renderPrefsLine(w)
	statusBar := a.renderStatusBar(w)

	contentH := a.height - lipgloss.Height(header) - lipgloss.Height(statusBar)
	if contentH < minContentHeight {
		contentH = minContentHeight
	}

	var content string
	switch a.activeTab {
	case 0:
		content = a.renderRecords(cw, contentH)
	case 1:
		content = a.renderCosts(cw)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, a.height, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) renderPrefsLine(w int) string {
	t := theme.Active
	dim := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	acc := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)

	p := a.res.Prefs
	free := "included"
	if p.ExcludeFree {
		free = "excluded"
	}
	line := dim.Render(" currency ") + acc.Render(string(p.Currency)) +
		dim.Render(" │ sort ") + acc.Render(p.Sort.Label()) +
		dim.Render(" │ free ") + acc.Render(free)
	if a.searching {
		line += dim.Render(" │ ") + a.search.View()
	} else if a.query != "" {
		line += dim.Render(" │ filter ") + acc.Render(a.query)
	}
	return lipgloss.NewStyle().Background(t.Surface).Width(w).Render(line)
}

func (a App) renderStatusBar(w int) string {
	r := a.res.Rates
	parts := []string{}
	if a.busy {
		parts = append(parts, "working…")
	}
	if a.lastErr != nil {
		parts = append(parts, "error: "+truncStr(a.lastErr.Error(), 40))
	}
	src := r.Source
	if src == "" {
		src = "builtin"
	}
	if r.Fallback {
		src += " (fallback)"
	}
	parts = append(parts, "rates "+src)
	if !r.Status.OK && len(r.Status.Errors) > 0 {
		parts = append(parts, "refresh failed")
	}
	parts = append(parts, fmt.Sprintf("pass %s @ %s", a.res.Duration.Round(100*time.Microsecond), since(a.res.At)))
	if a.rt.observer != nil {
		parts = append(parts, "live")
	}
	warn := a.lastErr != nil || r.Fallback
	return components.RenderStatusBar(w, strings.Join(parts, " · "), warn)
}
