package currency

import (
	"math"
	"strings"
	"time"
)

// Table maps a code to "units of code per one unit of Base".
// A Table is immutable once built; share it freely.
type Table struct {
	rates     map[Code]float64
	Source    string
	FetchedAt time.Time
	Fallback  bool
}

// NewTable copies rates into a new table, dropping non-positive or
// non-finite entries. The base rate is pinned to 1.
func NewTable(rates map[Code]float64, source string, fetchedAt time.Time) Table {
	t := Table{
		rates:     make(map[Code]float64, len(rates)+1),
		Source:    source,
		FetchedAt: fetchedAt,
	}
	for c, r := range rates {
		if r <= 0 || math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}
		t.rates[Code(strings.ToUpper(string(c)))] = r
	}
	t.rates[Base] = 1
	return t
}

// DefaultRates is the built-in table used when no provider answers.
func DefaultRates() map[Code]float64 {
	return map[Code]float64{
		CNY: 1,
		USD: 0.14,
		HKD: 1.08,
		EUR: 0.13,
		GBP: 0.11,
		JPY: 20.8,
	}
}

// FallbackTable builds the static table, optionally with overrides.
func FallbackTable(overrides map[Code]float64) Table {
	rates := DefaultRates()
	for c, r := range overrides {
		rates[c] = r
	}
	t := NewTable(rates, "built-in", time.Time{})
	t.Fallback = true
	return t
}

// Rate returns the table rate for c.
func (t Table) Rate(c Code) (float64, bool) {
	r, ok := t.rates[c]
	return r, ok
}

// ToBase converts amount in code c into the base currency.
// Codes absent from the table pass through unconverted.
func (t Table) ToBase(amount float64, c Code) float64 {
	if c == Base {
		return amount
	}
	r, ok := t.rates[c]
	if !ok {
		return amount
	}
	return amount / r
}

// ToBaseSymbol converts an amount written with a price symbol.
// Unrecognized symbols are treated as already in base.
func (t Table) ToBaseSymbol(amount float64, symbol string) float64 {
	c, ok := FromSymbol(symbol)
	if !ok {
		return amount
	}
	return t.ToBase(amount, c)
}

// FromBase converts a base amount into code c, with a rate of 1 when
// the code is missing.
func (t Table) FromBase(amount float64, c Code) float64 {
	r, ok := t.rates[c]
	if !ok {
		return amount
	}
	return amount * r
}

// Rates returns a copy of the rate map.
func (t Table) Rates() map[Code]float64 {
	out := make(map[Code]float64, len(t.rates))
	for c, r := range t.rates {
		out[c] = r
	}
	return out
}

// Len is the number of codes in the table.
func (t Table) Len() int {
	return len(t.rates)
}
