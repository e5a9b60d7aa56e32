package matcher

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/finburn/internal/currency"
	"github.com/theirongolddev/finburn/internal/model"
)

// DefaultSymbol is assumed when a price carries no currency symbol.
const DefaultSymbol = "$"

// Quote is a normalized price: amount and symbol split apart with the
// billing flags resolved.
type Quote struct {
	// Amount is NaN when the digits could not be parsed.
	Amount    float64
	Symbol    string
	IsFree    bool
	IsOneTime bool
	Cycle     model.Cycle
}

// Normalize turns a price match into a quote. ok is false for an
// unrecognized match, which callers treat as free.
func Normalize(m PriceMatch) (q Quote, ok bool) {
	switch m.Kind {
	case PriceFree:
		return Quote{IsFree: true, Cycle: model.CycleMonth}, true
	case PriceOneTime, PriceRecurring:
		sym, rest := SplitSymbol(m.Raw)
		if sym == "" {
			sym = DefaultSymbol
		}
		cycle := m.Cycle
		if cycle == "" {
			cycle = model.CycleMonth
		}
		return Quote{
			Amount:    ParseAmount(rest),
			Symbol:    sym,
			IsOneTime: m.Kind == PriceOneTime,
			Cycle:     cycle,
		}, true
	}
	return Quote{}, false
}

// SplitSymbol strips the longest leading currency symbol from raw.
// sym is empty when raw has no recognized prefix.
func SplitSymbol(raw string) (sym, rest string) {
	raw = strings.TrimSpace(raw)
	for _, s := range currency.Symbols {
		if strings.HasPrefix(raw, s) {
			return s, strings.TrimSpace(raw[len(s):])
		}
	}
	return "", raw
}

// ParseAmount reads a decimal amount with optional thousands separators.
// It returns NaN for anything that is not a plain decimal number.
func ParseAmount(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return math.NaN()
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return math.NaN()
	}
	f, _ := d.Float64()
	return f
}
