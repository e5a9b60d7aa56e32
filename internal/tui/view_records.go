package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/finburn/internal/cli"
	"github.com/theirongolddev/finburn/internal/model"
	"github.com/theirongolddev/finburn/internal/tui/components"
	"github.com/theirongolddev/finburn/internal/tui/theme"
)

const (
	colPrice = 16
	colMoney = 13
	colDays  = 8
	colGap   = 2
)

func (a App) summaryCards(cw int) string {
	s := a.res.Summary
	note := plural(s.Count, "server")
	if s.FreeCount > 0 {
		note += fmt.Sprintf(", %d free", s.FreeCount)
	}
	if a.res.Prefs.ExcludeFree && s.FreeCount > 0 {
		note += " (excluded)"
	}
	return components.MetricCardRow([]components.Metric{
		{Label: "Total", Value: cli.FormatMoney(s.Symbol, s.TotalCost), Note: note},
		{Label: "Monthly", Value: cli.FormatMoney(s.Symbol, s.MonthlyCost), Note: "per month"},
		{Label: "Remaining value", Value: cli.FormatMoney(s.Symbol, s.RemainingValue), Note: "left on current terms"},
	}, cw)
}

func (a App) renderRecords(cw, h int) string {
	t := theme.Active
	var b strings.Builder

	if a.res.Summary.Empty {
		body := "No server cards found on this page."
		if a.res.Candidates > 0 {
			body += fmt.Sprintf("\n%d cards were seen but none had a readable validity.", a.res.Candidates)
		}
		b.WriteString(components.ContentCard("Servers", body, cw))
		return b.String()
	}

	cards := a.summaryCards(cw)
	b.WriteString(cards)
	b.WriteString("\n")

	rows := a.visibleRows()
	nameW := cw - 2 - colPrice - 3*colMoney - colDays - 5*colGap
	if nameW < 12 {
		nameW = 12
	}

	head := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Background).Bold(true)
	b.WriteString(head.Render(" " + fitLeft("Name", nameW) + gap() +
		fitRight("Price", colPrice) + gap() +
		fitRight("Monthly", colMoney) + gap() +
		fitRight("Total", colMoney) + gap() +
		fitRight("Remaining", colMoney) + gap() +
		fitRight("Left", colDays)))
	b.WriteString("\n")

	footer := a.recordsFooter()
	avail := h - lipgloss.Height(cards) - 1
	if footer != "" {
		avail -= lipgloss.Height(footer)
	}
	if avail < 1 {
		avail = 1
	}

	offset := a.offset
	if a.cursor >= offset+avail {
		offset = a.cursor - avail + 1
	}
	end := offset + avail
	if end > len(rows) {
		end = len(rows)
	}

	if len(rows) == 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(t.TextDim).Render(" no servers match " + a.query))
		b.WriteString("\n")
	}
	for i := offset; i < end; i++ {
		b.WriteString(a.renderRow(rows[i], nameW, i == a.cursor))
		b.WriteString("\n")
	}

	if footer != "" {
		b.WriteString(footer)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a App) renderRow(row model.Row, nameW int, selected bool) string {
	t := theme.Active
	rec := row.Record
	cur := a.res.Summary.Currency
	sym := a.res.Summary.Symbol

	bg := t.Background
	if selected {
		bg = t.SurfaceHover
	}
	fg := t.TextPrimary
	if row.Excluded {
		fg = t.TextDim
	}
	base := lipgloss.NewStyle().Foreground(fg).Background(bg)
	money := base
	if !row.Excluded {
		money = money.Foreground(t.Green)
	}

	monthly, total := "-", "-"
	if !rec.IsFree {
		monthly = cli.FormatMoney(sym, a.res.Table.FromBase(rec.MonthlyCostBase, cur))
		total = cli.FormatMoney(sym, a.res.Table.FromBase(rec.TotalCostBase, cur))
	}
	remaining := cli.FormatMoney(sym, row.DisplayValue)

	priceStyle := base
	if rec.IsFree && !row.Excluded {
		priceStyle = priceStyle.Foreground(t.Yellow)
	}
	daysStyle := base
	days := cli.FormatDays(rec.RemainingDays)
	if !rec.RemainingDays.IsPermanent() && rec.RemainingDays <= 0 {
		days = "expired"
		if !row.Excluded {
			daysStyle = daysStyle.Foreground(t.Red)
		}
	}

	g := base.Render(gap())
	return base.Render(" "+fitLeft(rec.Name, nameW)) + g +
		priceStyle.Render(fitRight(priceLabel(rec), colPrice)) + g +
		money.Render(fitRight(monthly, colMoney)) + g +
		money.Render(fitRight(total, colMoney)) + g +
		money.Render(fitRight(remaining, colMoney)) + g +
		daysStyle.Render(fitRight(days, colDays))
}

func (a App) recordsFooter() string {
	var notes []string
	if a.res.Truncated > 0 {
		notes = append(notes, fmt.Sprintf("%d cards over the limit were ignored", a.res.Truncated))
	}
	if a.res.Skipped > 0 {
		notes = append(notes, fmt.Sprintf("%d without validity", a.res.Skipped))
	}
	if a.res.Failed > 0 {
		notes = append(notes, fmt.Sprintf("%d unreadable", a.res.Failed))
	}
	if len(notes) == 0 {
		return ""
	}
	return lipgloss.NewStyle().Foreground(theme.Active.Orange).Render(" " + strings.Join(notes, " · "))
}

// priceLabel is the price as written, or why the record counts as free.
func priceLabel(rec model.AssetRecord) string {
	switch {
	case rec.IsOneTime:
		return "once"
	case rec.IsFree:
		return "free"
	case rec.OriginalSymbol == "":
		return "-"
	}
	return cli.FormatMoney(rec.OriginalSymbol, rec.OriginalAmount) + cli.FormatCycle(rec.Cycle, false)
}

func gap() string { return strings.Repeat(" ", colGap) }

func fitLeft(s string, w int) string {
	s = truncStr(s, w)
	if pad := w - lipgloss.Width(s); pad > 0 {
		return s + strings.Repeat(" ", pad)
	}
	return s
}

func fitRight(s string, w int) string {
	s = truncStr(s, w)
	if pad := w - lipgloss.Width(s); pad > 0 {
		return strings.Repeat(" ", pad) + s
	}
	return s
}
