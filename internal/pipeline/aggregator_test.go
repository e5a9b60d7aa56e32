package pipeline

import (
	"math"
	"reflect"
	"testing"

	"github.com/theirongolddev/finburn/internal/currency"
	"github.com/theirongolddev/finburn/internal/model"
)

func sampleRecords() []model.AssetRecord {
	return []model.AssetRecord{
		{Name: "a", TotalCostBase: 60, MonthlyCostBase: 5, RemainingValueBase: 29.589, RemainingDays: 180, Cycle: model.CycleYear, SourceOrder: 0},
		{Name: "b", IsFree: true, RemainingDays: model.Permanent, SourceOrder: 1},
		{Name: "c", TotalCostBase: 10, MonthlyCostBase: 10, RemainingValueBase: 29.589, RemainingDays: 90, SourceOrder: 2},
		{Name: "d", TotalCostBase: math.NaN(), MonthlyCostBase: math.NaN(), RemainingValueBase: math.NaN(), SourceOrder: 3},
	}
}

func names(rows []model.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Record.Name
	}
	return out
}

func TestSortRecords(t *testing.T) {
	tests := []struct {
		key  model.SortKey
		want []string
	}{
		{model.SortWeightAsc, []string{"a", "b", "c", "d"}},
		{model.SortWeightDesc, []string{"d", "c", "b", "a"}},
		{model.SortPriceAsc, []string{"b", "d", "c", "a"}},
		{model.SortPriceDesc, []string{"a", "c", "b", "d"}},
		{model.SortRemainAsc, []string{"b", "d", "a", "c"}},
		{model.SortRemainDesc, []string{"a", "c", "b", "d"}},
		{model.SortKey("bogus"), []string{"a", "b", "c", "d"}},
	}
	for _, tt := range tests {
		rep := Aggregate(sampleRecords(), model.Preferences{Currency: currency.CNY, Sort: tt.key}, currency.FallbackTable(nil))
		if got := names(rep.Rows); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s: got %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestSortRecordsDoesNotMutateInput(t *testing.T) {
	in := sampleRecords()
	_ = SortRecords(in, model.SortPriceDesc)
	if in[0].Name != "a" || in[3].Name != "d" {
		t.Errorf("input reordered: %v", in)
	}
}

func TestAggregateEndToEnd(t *testing.T) {
	recs := sampleRecords()[:2]
	rates := currency.FallbackTable(nil)

	rep := Aggregate(recs, model.Preferences{Currency: currency.CNY, Sort: model.SortWeightAsc, ExcludeFree: true}, rates)
	if rep.Summary.Count != 2 {
		t.Errorf("Count = %d, want 2", rep.Summary.Count)
	}
	if rep.Summary.TotalCost != 60 {
		t.Errorf("TotalCost = %v, want 60", rep.Summary.TotalCost)
	}
	if rep.Summary.MonthlyCost != 5 {
		t.Errorf("MonthlyCost = %v, want 5", rep.Summary.MonthlyCost)
	}
	if rep.Summary.FreeCount != 1 {
		t.Errorf("FreeCount = %d, want 1", rep.Summary.FreeCount)
	}
	if !rep.Rows[1].Excluded || rep.Rows[0].Excluded {
		t.Errorf("excluded flags = %v,%v", rep.Rows[0].Excluded, rep.Rows[1].Excluded)
	}
}

func TestAggregateDisplayCurrency(t *testing.T) {
	rates := currency.FallbackTable(nil)
	rep := Aggregate(sampleRecords()[:1], model.Preferences{Currency: currency.USD, Sort: model.SortWeightAsc}, rates)

	if got, want := rep.Summary.TotalCost, 60*0.14; math.Abs(got-want) > 1e-9 {
		t.Errorf("TotalCost = %v, want %v", got, want)
	}
	if got, want := rep.Rows[0].DisplayValue, 29.589*0.14; math.Abs(got-want) > 1e-9 {
		t.Errorf("DisplayValue = %v, want %v", got, want)
	}
	if rep.Summary.Symbol != "$" {
		t.Errorf("Symbol = %q", rep.Summary.Symbol)
	}
}

func TestAggregateNaNCountsAsZero(t *testing.T) {
	rep := Aggregate(sampleRecords(), model.Preferences{Currency: currency.CNY, Sort: model.SortWeightAsc}, currency.FallbackTable(nil))
	if math.IsNaN(rep.Summary.TotalCost) || rep.Summary.TotalCost != 70 {
		t.Errorf("TotalCost = %v, want 70", rep.Summary.TotalCost)
	}
}

func TestAggregateToggleIdempotent(t *testing.T) {
	recs := sampleRecords()
	rates := currency.FallbackTable(nil)
	prefs := model.Preferences{Currency: currency.EUR, Sort: model.SortRemainDesc}

	first := Aggregate(recs, prefs, rates)
	prefs.ExcludeFree = true
	_ = Aggregate(recs, prefs, rates)
	prefs.ExcludeFree = false
	again := Aggregate(recs, prefs, rates)

	if !reflect.DeepEqual(first.Summary, again.Summary) {
		t.Errorf("summary changed: %+v vs %+v", first.Summary, again.Summary)
	}
	if !reflect.DeepEqual(names(first.Rows), names(again.Rows)) {
		t.Errorf("order changed: %v vs %v", names(first.Rows), names(again.Rows))
	}
}

func TestAggregateEmpty(t *testing.T) {
	rep := Aggregate(nil, model.DefaultPreferences(), currency.FallbackTable(nil))
	if !rep.Summary.Empty || rep.Summary.Count != 0 || len(rep.Rows) != 0 {
		t.Errorf("empty report = %+v", rep)
	}
}

func TestAggregateCostBreakdown(t *testing.T) {
	recs := []model.AssetRecord{
		{OriginalAmount: 12, OriginalSymbol: "$", Cycle: model.CycleYear, TotalCostBase: 120, MonthlyCostBase: 10},
		{OriginalAmount: 5, OriginalSymbol: "$", Cycle: model.CycleMonth, TotalCostBase: 50, MonthlyCostBase: 50},
		{OriginalAmount: 30, OriginalSymbol: "￥", Cycle: model.CycleMonth, TotalCostBase: 30, MonthlyCostBase: 30},
		{IsFree: true},
	}
	currencies, cycles := AggregateCostBreakdown(recs, currency.CNY, currency.FallbackTable(nil))

	if len(currencies) != 2 || currencies[0].Symbol != "$" || currencies[0].Code != currency.USD {
		t.Fatalf("currencies = %+v", currencies)
	}
	if currencies[0].Records != 2 || currencies[0].MonthlyCost != 60 || currencies[0].OriginalMonthly != 6 {
		t.Errorf("usd row = %+v", currencies[0])
	}
	if len(cycles) != 2 || cycles[0].Cycle != model.CycleMonth || cycles[0].MonthlyCost != 80 {
		t.Errorf("cycles = %+v", cycles)
	}
}
