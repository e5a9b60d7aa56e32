// Package matcher recognizes price and remaining-validity expressions in
// the free-form text of a dashboard card.
//
// Each rule is a named, pure matcher. Rules are tried in a fixed order and
// the first hit wins, so precedence never depends on where in the text a
// pattern appears.
package matcher

import (
	"regexp"
	"strings"

	"github.com/theirongolddev/finburn/internal/model"
)

// PriceKind classifies a price expression.
type PriceKind int

const (
	PriceUnrecognized PriceKind = iota
	PriceOneTime
	PriceFree
	PriceRecurring
)

func (k PriceKind) String() string {
	switch k {
	case PriceOneTime:
		return "one-time"
	case PriceFree:
		return "free"
	case PriceRecurring:
		return "recurring"
	}
	return "unrecognized"
}

// PriceMatch is the raw result of a price rule.
type PriceMatch struct {
	Kind PriceKind
	// Raw is the amount as written, including any currency symbol.
	Raw   string
	Cycle model.Cycle
}

// PriceMatcher is one named price rule.
type PriceMatcher struct {
	Name  string
	Match func(text string) (PriceMatch, bool)
}

const (
	priceLabel = `价格\s*[:：]\s*`
	symbolAlt  = `(?:HK\$|US\$|C\$|A\$|€|£|¥|￥|\$)`
	amountPart = `(` + symbolAlt + `?\s*[\d.,]+)`
)

var (
	reOneTime   = regexp.MustCompile(priceLabel + amountPart + `/-`)
	reFree      = regexp.MustCompile(`(?i)` + priceLabel + `(?:免费|free|` + symbolAlt + `?\s*0+(?:\.0+)?(?:[^\d.,]|$))`)
	reRecurring = regexp.MustCompile(`(?i)` + priceLabel + amountPart + `\s*/?\s*(年付|每年|年|yr|year|月付|每月|月|mo|month)?`)
	reYearToken = regexp.MustCompile(`(?i)年|yr|year`)
)

// PriceMatchers is the ordered rule list: one-time, free, recurring.
var PriceMatchers = []PriceMatcher{
	{Name: "one-time", Match: matchOneTime},
	{Name: "free", Match: matchFree},
	{Name: "recurring", Match: matchRecurring},
}

// MatchPrice runs PriceMatchers in order and returns the first hit, or an
// unrecognized match when none applies.
func MatchPrice(text string) PriceMatch {
	for _, m := range PriceMatchers {
		if pm, ok := m.Match(text); ok {
			return pm
		}
	}
	return PriceMatch{Kind: PriceUnrecognized}
}

func matchOneTime(text string) (PriceMatch, bool) {
	m := reOneTime.FindStringSubmatch(text)
	if m == nil {
		return PriceMatch{}, false
	}
	return PriceMatch{Kind: PriceOneTime, Raw: strings.TrimSpace(m[1]), Cycle: model.CycleMonth}, true
}

func matchFree(text string) (PriceMatch, bool) {
	if !reFree.MatchString(text) {
		return PriceMatch{}, false
	}
	return PriceMatch{Kind: PriceFree}, true
}

func matchRecurring(text string) (PriceMatch, bool) {
	m := reRecurring.FindStringSubmatch(text)
	if m == nil {
		return PriceMatch{}, false
	}
	return PriceMatch{Kind: PriceRecurring, Raw: strings.TrimSpace(m[1]), Cycle: cycleOf(m[2])}, true
}

// cycleOf maps a cycle keyword to a billing cycle; no keyword is monthly.
func cycleOf(token string) model.Cycle {
	if token != "" && reYearToken.MatchString(token) {
		return model.CycleYear
	}
	return model.CycleMonth
}

// freeMarkers flag a free-tier card wherever they appear in its text.
var freeMarkers = []string{"白嫖", "免费", "Free"}

// HasFreeMarker reports whether text mentions a free-tier marker term.
func HasFreeMarker(text string) bool {
	for _, m := range freeMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}
