package model

import "github.com/theirongolddev/finburn/internal/currency"

// SortKey selects the ordering of the record list.
type SortKey string

const (
	SortWeightAsc  SortKey = "weight_asc"
	SortWeightDesc SortKey = "weight_desc"
	SortPriceAsc   SortKey = "price_asc"
	SortPriceDesc  SortKey = "price_desc"
	SortRemainAsc  SortKey = "remain_asc"
	SortRemainDesc SortKey = "remain_desc"
)

// SortKeys lists every supported ordering in menu order.
var SortKeys = []SortKey{
	SortWeightAsc, SortWeightDesc,
	SortPriceDesc, SortPriceAsc,
	SortRemainDesc, SortRemainAsc,
}

// Valid reports whether k is one of the supported orderings.
func (k SortKey) Valid() bool {
	for _, s := range SortKeys {
		if s == k {
			return true
		}
	}
	return false
}

// Label is the short human name shown in menus.
func (k SortKey) Label() string {
	switch k {
	case SortWeightAsc:
		return "Weight ↑"
	case SortWeightDesc:
		return "Weight ↓"
	case SortPriceAsc:
		return "Price ↑"
	case SortPriceDesc:
		return "Price ↓"
	case SortRemainAsc:
		return "Remaining ↑"
	case SortRemainDesc:
		return "Remaining ↓"
	}
	return string(k)
}

// Preferences are the user's display choices, persisted across runs.
type Preferences struct {
	Currency    currency.Code
	Sort        SortKey
	ExcludeFree bool
}

// DefaultPreferences matches a fresh install.
func DefaultPreferences() Preferences {
	return Preferences{
		Currency: currency.CNY,
		Sort:     SortWeightAsc,
	}
}
