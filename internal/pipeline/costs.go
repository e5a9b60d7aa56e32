package pipeline

import (
	"sort"

	"github.com/theirongolddev/finburn/internal/currency"
	"github.com/theirongolddev/finburn/internal/model"
)

// CurrencyCosts groups paid records by the currency they are priced in.
// Original* figures are in that currency; the rest are in display.
type CurrencyCosts struct {
	Symbol          string
	Code            currency.Code
	Records         int
	OriginalTotal   float64
	OriginalMonthly float64
	TotalCost       float64
	MonthlyCost     float64
}

// CycleCosts groups paid records by billing cycle, in display currency.
type CycleCosts struct {
	Cycle          model.Cycle
	Records        int
	TotalCost      float64
	MonthlyCost    float64
	RemainingValue float64
}

// AggregateCostBreakdown splits the paid records by pricing currency and
// by billing cycle. Free records carry no cost and are left out.
func AggregateCostBreakdown(
	records []model.AssetRecord,
	display currency.Code,
	rates currency.Table,
) ([]CurrencyCosts, []CycleCosts) {
	if !display.Valid() {
		display = currency.Base
	}

	bySymbol := make(map[string]*CurrencyCosts)
	byCycle := make(map[model.Cycle]*CycleCosts)

	for _, r := range records {
		if r.IsFree {
			continue
		}

		cc, ok := bySymbol[r.OriginalSymbol]
		if !ok {
			code, _ := currency.FromSymbol(r.OriginalSymbol)
			cc = &CurrencyCosts{Symbol: r.OriginalSymbol, Code: code}
			bySymbol[r.OriginalSymbol] = cc
		}
		cc.Records++
		cc.OriginalTotal += finite(r.OriginalAmount)
		cc.OriginalMonthly += finite(r.OriginalAmount) / r.Cycle.Months()
		cc.TotalCost += rates.FromBase(finite(r.TotalCostBase), display)
		cc.MonthlyCost += rates.FromBase(finite(r.MonthlyCostBase), display)

		yc, ok := byCycle[r.Cycle]
		if !ok {
			yc = &CycleCosts{Cycle: r.Cycle}
			byCycle[r.Cycle] = yc
		}
		yc.Records++
		yc.TotalCost += rates.FromBase(finite(r.TotalCostBase), display)
		yc.MonthlyCost += rates.FromBase(finite(r.MonthlyCostBase), display)
		yc.RemainingValue += rates.FromBase(finite(r.RemainingValueBase), display)
	}

	currencies := make([]CurrencyCosts, 0, len(bySymbol))
	for _, cc := range bySymbol {
		currencies = append(currencies, *cc)
	}
	sort.Slice(currencies, func(i, j int) bool {
		if currencies[i].MonthlyCost != currencies[j].MonthlyCost {
			return currencies[i].MonthlyCost > currencies[j].MonthlyCost
		}
		return currencies[i].Symbol < currencies[j].Symbol
	})

	cycles := make([]CycleCosts, 0, len(byCycle))
	for _, yc := range byCycle {
		cycles = append(cycles, *yc)
	}
	sort.Slice(cycles, func(i, j int) bool {
		if cycles[i].MonthlyCost != cycles[j].MonthlyCost {
			return cycles[i].MonthlyCost > cycles[j].MonthlyCost
		}
		return cycles[i].Cycle < cycles[j].Cycle
	})

	return currencies, cycles
}
