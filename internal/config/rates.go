package config

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/theirongolddev/finburn/internal/currency"
)

// FallbackRates returns the built-in table with the configured overrides
// applied. Override keys are currency codes in any case; unknown codes
// and non-positive rates are dropped and reported in rejected.
func (c RatesConfig) FallbackRates() (rates map[currency.Code]float64, rejected []string) {
	rates = currency.DefaultRates()
	for raw, r := range c.Fallback {
		code, ok := currency.ParseCode(raw)
		if !ok || r <= 0 || math.IsNaN(r) || math.IsInf(r, 0) {
			rejected = append(rejected, raw)
			continue
		}
		rates[code] = r
	}
	sort.Strings(rejected)
	return rates, rejected
}

// FallbackTable builds the static table from FallbackRates.
func (c RatesConfig) FallbackTable() currency.Table {
	rates, _ := c.FallbackRates()
	return currency.FallbackTable(rates)
}

// ProviderList returns the configured providers in priority order,
// or the defaults when none are configured. Entries without a URL are
// skipped and a missing rates path means "rates".
func (c RatesConfig) ProviderList() []currency.Provider {
	if len(c.Providers) == 0 {
		return currency.DefaultProviders
	}
	out := make([]currency.Provider, 0, len(c.Providers))
	for i, p := range c.Providers {
		p.URL = strings.TrimSpace(p.URL)
		if p.URL == "" {
			continue
		}
		if p.RatesPath == "" {
			p.RatesPath = "rates"
		}
		if p.Name == "" {
			p.Name = fmt.Sprintf("provider-%d", i+1)
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return currency.DefaultProviders
	}
	return out
}
