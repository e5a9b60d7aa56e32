package model

import "github.com/theirongolddev/finburn/internal/currency"

// Row is one record as presented in the display currency.
type Row struct {
	Record AssetRecord
	// DisplayValue is the remaining value converted to the display currency.
	DisplayValue float64
	// Excluded rows are listed but left out of the totals.
	Excluded bool
}

// Summary holds the aggregate figures in the display currency.
type Summary struct {
	Currency currency.Code
	Symbol   string

	// Count includes free records regardless of the exclusion toggle.
	Count          int
	FreeCount      int
	TotalCost      float64
	MonthlyCost    float64
	RemainingValue float64

	// Empty is set when the page yielded no records at all.
	Empty bool
}
