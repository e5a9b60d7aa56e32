package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/finburn/internal/cli"
	"github.com/theirongolddev/finburn/internal/model"
	"github.com/theirongolddev/finburn/internal/pipeline"
	"github.com/theirongolddev/finburn/internal/tui/components"
)

func (a App) renderCosts(cw int) string {
	if a.res.Summary.Empty {
		return components.ContentCard("Costs", "No server cards found on this page.", cw)
	}

	records := make([]model.AssetRecord, len(a.res.Rows))
	for i, r := range a.res.Rows {
		records[i] = r.Record
	}
	cur := a.res.Summary.Currency
	sym := a.res.Summary.Symbol
	byCurrency, byCycle := pipeline.AggregateCostBreakdown(records, cur, a.res.Table)

	var grand float64
	for _, c := range byCurrency {
		grand += c.TotalCost
	}

	inner := components.CardInnerWidth(cw)
	barW := inner - 12 - 8 - 2*colMoney - 4*colGap - 8
	if barW < 8 {
		barW = 8
	}

	var cb strings.Builder
	if len(byCurrency) == 0 {
		cb.WriteString("Every server is free.")
	}
	for i, c := range byCurrency {
		if i > 0 {
			cb.WriteString("\n")
		}
		label := string(c.Code)
		if label == "" {
			label = c.Symbol
		}
		share := 0.0
		if grand > 0 {
			share = c.TotalCost / grand
		}
		cb.WriteString(fitLeft(label, 12) + gap() +
			fitRight(fmt.Sprintf("%d", c.Records), 8) + gap() +
			fitRight(cli.FormatMoney(c.Symbol, c.OriginalTotal), colMoney) + gap() +
			fitRight(cli.FormatMoney(sym, c.TotalCost), colMoney) + gap() +
			components.ShareBar(share, barW))
	}

	var yb strings.Builder
	for i, c := range byCycle {
		if i > 0 {
			yb.WriteString("\n")
		}
		yb.WriteString(fitLeft(cycleName(c.Cycle), 12) + gap() +
			fitRight(fmt.Sprintf("%d", c.Records), 8) + gap() +
			fitRight(cli.FormatMoney(sym, c.MonthlyCost)+"/mo", colMoney+3) + gap() +
			fitRight(cli.FormatMoney(sym, c.TotalCost), colMoney) + gap() +
			fitRight(cli.FormatMoney(sym, c.RemainingValue)+" left", colMoney+5))
	}
	if len(byCycle) == 0 {
		yb.WriteString("Every server is free.")
	}

	return a.summaryCards(cw) + "\n" +
		components.ContentCard("By pricing currency (total in "+string(cur)+")", cb.String(), cw) + "\n" +
		components.ContentCard("By billing cycle", yb.String(), cw)
}

func cycleName(c model.Cycle) string {
	if c == model.CycleYear {
		return "yearly"
	}
	return "monthly"
}
