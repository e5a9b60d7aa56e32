// Package pipeline turns the cards of a page into a sorted, summarized
// report in the display currency.
package pipeline

import (
	"math"
	"sort"

	"github.com/theirongolddev/finburn/internal/currency"
	"github.com/theirongolddev/finburn/internal/model"
)

// Report is the presentation-ready view of one pass.
type Report struct {
	Rows    []model.Row
	Summary model.Summary
}

// SortRecords returns a sorted copy of records. Equal keys keep source
// order, so every key yields a total order.
func SortRecords(records []model.AssetRecord, key model.SortKey) []model.AssetRecord {
	out := make([]model.AssetRecord, len(records))
	copy(out, records)

	less := lessFor(key)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if c := less(a, b); c != 0 {
			return c < 0
		}
		return a.SourceOrder < b.SourceOrder
	})
	return out
}

func lessFor(key model.SortKey) func(a, b model.AssetRecord) int {
	switch key {
	case model.SortWeightDesc:
		return func(a, b model.AssetRecord) int { return cmpInt(b.SourceOrder, a.SourceOrder) }
	case model.SortPriceAsc:
		return func(a, b model.AssetRecord) int { return cmpFloat(a.TotalCostBase, b.TotalCostBase) }
	case model.SortPriceDesc:
		return func(a, b model.AssetRecord) int { return cmpFloat(b.TotalCostBase, a.TotalCostBase) }
	case model.SortRemainAsc:
		return func(a, b model.AssetRecord) int { return cmpFloat(a.RemainingValueBase, b.RemainingValueBase) }
	case model.SortRemainDesc:
		return func(a, b model.AssetRecord) int { return cmpFloat(b.RemainingValueBase, a.RemainingValueBase) }
	}
	return func(a, b model.AssetRecord) int { return cmpInt(a.SourceOrder, b.SourceOrder) }
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpFloat(a, b float64) int {
	a, b = finite(a), finite(b)
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// finite maps NaN and infinities to zero so a bad amount can neither
// poison a sum nor break the sort order.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Aggregate sorts records per prefs and totals them in the display
// currency. The record count always includes free records; the money
// totals skip them when ExcludeFree is set. records is not modified.
func Aggregate(records []model.AssetRecord, prefs model.Preferences, rates currency.Table) Report {
	display := prefs.Currency
	if !display.Valid() {
		display = currency.Base
	}

	sorted := SortRecords(records, prefs.Sort)
	rep := Report{
		Rows: make([]model.Row, 0, len(sorted)),
		Summary: model.Summary{
			Currency: display,
			Symbol:   display.Symbol(),
			Count:    len(sorted),
			Empty:    len(sorted) == 0,
		},
	}

	var total, monthly, remaining float64
	for _, r := range sorted {
		excluded := prefs.ExcludeFree && r.IsFree
		rep.Rows = append(rep.Rows, model.Row{
			Record:       r,
			DisplayValue: rates.FromBase(finite(r.RemainingValueBase), display),
			Excluded:     excluded,
		})
		if r.IsFree {
			rep.Summary.FreeCount++
		}
		if excluded {
			continue
		}
		total += finite(r.TotalCostBase)
		monthly += finite(r.MonthlyCostBase)
		remaining += finite(r.RemainingValueBase)
	}

	rep.Summary.TotalCost = rates.FromBase(total, display)
	rep.Summary.MonthlyCost = rates.FromBase(monthly, display)
	rep.Summary.RemainingValue = rates.FromBase(remaining, display)
	return rep
}
