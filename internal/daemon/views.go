package daemon

import (
	"math"
	"time"

	"github.com/theirongolddev/finburn/internal/currency"
	"github.com/theirongolddev/finburn/internal/model"
	"github.com/theirongolddev/finburn/internal/pipeline"
)

// Snapshot is a compact report state for status/event payloads.
type Snapshot struct {
	At             time.Time     `json:"at"`
	RunID          string        `json:"run_id,omitempty"`
	Currency       currency.Code `json:"currency"`
	Symbol         string        `json:"symbol"`
	Count          int           `json:"count"`
	FreeCount      int           `json:"free_count"`
	TotalCost      float64       `json:"total_cost"`
	MonthlyCost    float64       `json:"monthly_cost"`
	RemainingValue float64       `json:"remaining_value"`
	Empty          bool          `json:"empty"`
	RatesSource    string        `json:"rates_source"`
	RatesFallback  bool          `json:"rates_fallback"`
	RatesAt        time.Time     `json:"rates_at,omitempty"`
}

// Delta captures snapshot deltas between passes.
type Delta struct {
	Count          int     `json:"count"`
	TotalCost      float64 `json:"total_cost"`
	MonthlyCost    float64 `json:"monthly_cost"`
	RemainingValue float64 `json:"remaining_value"`
}

func (d Delta) isZero() bool {
	return d.Count == 0 &&
		d.TotalCost == 0 &&
		d.MonthlyCost == 0 &&
		d.RemainingValue == 0
}

// Event is emitted whenever the report changes.
type Event struct {
	ID        int64     `json:"id"`
	RunID     string    `json:"run_id,omitempty"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
}

// Event types.
const (
	EventSnapshot    = "snapshot"
	EventReportDelta = "report_delta"
	EventPrefs       = "prefs"
)

// Prefs is the JSON form of the display preferences.
type Prefs struct {
	Currency    currency.Code `json:"currency"`
	Sort        model.SortKey `json:"sort"`
	ExcludeFree bool          `json:"exclude_free"`
}

// PrefsUpdate is the body of PUT /v1/prefs. Absent fields are unchanged.
type PrefsUpdate struct {
	Currency    *string `json:"currency,omitempty"`
	Sort        *string `json:"sort,omitempty"`
	ExcludeFree *bool   `json:"exclude_free,omitempty"`
}

// Record is one row of GET /v1/records.
type Record struct {
	Name               string        `json:"name"`
	IsFree             bool          `json:"is_free"`
	Excluded           bool          `json:"excluded"`
	OriginalAmount     float64       `json:"original_amount"`
	OriginalSymbol     string        `json:"original_symbol,omitempty"`
	Cycle              model.Cycle   `json:"cycle"`
	IsOneTime          bool          `json:"is_one_time"`
	MonthlyCostBase    float64       `json:"monthly_cost_base"`
	TotalCostBase      float64       `json:"total_cost_base"`
	RemainingValueBase float64       `json:"remaining_value_base"`
	RemainingDays      model.Days    `json:"remaining_days"`
	DisplayValue       float64       `json:"display_value"`
	DisplayCurrency    currency.Code `json:"display_currency"`
	SourceOrder        int           `json:"source_order"`
}

// Records is the body of GET /v1/records.
type Records struct {
	RunID   string    `json:"run_id"`
	At      time.Time `json:"at"`
	Prefs   Prefs     `json:"prefs"`
	Summary Snapshot  `json:"summary"`
	Rows    []Record  `json:"rows"`
}

func snapshotFromResult(res pipeline.Result) Snapshot {
	s := res.Summary
	return Snapshot{
		At:             res.At,
		RunID:          res.RunID,
		Currency:       s.Currency,
		Symbol:         s.Symbol,
		Count:          s.Count,
		FreeCount:      s.FreeCount,
		TotalCost:      s.TotalCost,
		MonthlyCost:    s.MonthlyCost,
		RemainingValue: s.RemainingValue,
		Empty:          s.Empty,
		RatesSource:    res.Rates.Source,
		RatesFallback:  res.Rates.Fallback,
		RatesAt:        res.Rates.FetchedAt,
	}
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		Count:          curr.Count - prev.Count,
		TotalCost:      curr.TotalCost - prev.TotalCost,
		MonthlyCost:    curr.MonthlyCost - prev.MonthlyCost,
		RemainingValue: curr.RemainingValue - prev.RemainingValue,
	}
}

func prefsView(p model.Preferences) Prefs {
	return Prefs{Currency: p.Currency, Sort: p.Sort, ExcludeFree: p.ExcludeFree}
}

// jsonNum keeps NaN and infinities out of JSON, which cannot carry them.
func jsonNum(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func recordsFromResult(res pipeline.Result) Records {
	out := Records{
		RunID:   res.RunID,
		At:      res.At,
		Prefs:   prefsView(res.Prefs),
		Summary: snapshotFromResult(res),
		Rows:    make([]Record, 0, len(res.Rows)),
	}
	for _, row := range res.Rows {
		r := row.Record
		out.Rows = append(out.Rows, Record{
			Name:               r.Name,
			IsFree:             r.IsFree,
			Excluded:           row.Excluded,
			OriginalAmount:     jsonNum(r.OriginalAmount),
			OriginalSymbol:     r.OriginalSymbol,
			Cycle:              r.Cycle,
			IsOneTime:          r.IsOneTime,
			MonthlyCostBase:    jsonNum(r.MonthlyCostBase),
			TotalCostBase:      jsonNum(r.TotalCostBase),
			RemainingValueBase: jsonNum(r.RemainingValueBase),
			RemainingDays:      r.RemainingDays,
			DisplayValue:       jsonNum(row.DisplayValue),
			DisplayCurrency:    res.Summary.Currency,
			SourceOrder:        r.SourceOrder,
		})
	}
	return out
}
