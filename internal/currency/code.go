// Package currency maps currency symbols to codes and converts amounts
// between the base currency and any code in a rate table.
package currency

import "strings"

// Code is a three-letter currency code.
type Code string

const (
	Unknown Code = ""
	CNY     Code = "CNY"
	USD     Code = "USD"
	HKD     Code = "HKD"
	EUR     Code = "EUR"
	GBP     Code = "GBP"
	JPY     Code = "JPY"
	CAD     Code = "CAD"
	AUD     Code = "AUD"
)

// Base is the currency all internal figures are normalized to.
const Base = CNY

// DisplayCodes are the currencies offered for display.
var DisplayCodes = []Code{CNY, USD, HKD, EUR, GBP, JPY}

// Symbols lists the recognized price prefixes in match order.
// Longer symbols come before the shorter ones they contain.
var Symbols = []string{"HK$", "US$", "C$", "A$", "€", "£", "¥", "￥", "$"}

// symbolCodes is total over Symbols. "¥" reads as CNY because the
// dashboards this parses are priced in yuan; JPY is display-only.
var symbolCodes = map[string]Code{
	"HK$": HKD,
	"US$": USD,
	"C$":  CAD,
	"A$":  AUD,
	"€":   EUR,
	"£":   GBP,
	"¥":   CNY,
	"￥":   CNY,
	"$":   USD,
}

var displaySymbols = map[Code]string{
	CNY: "￥",
	USD: "$",
	HKD: "HK$",
	EUR: "€",
	GBP: "£",
	JPY: "¥",
	CAD: "C$",
	AUD: "A$",
}

// FromSymbol resolves a price symbol (or a bare code such as "USD")
// to its code. ok is false for anything outside the fixed set.
func FromSymbol(sym string) (Code, bool) {
	if c, ok := symbolCodes[sym]; ok {
		return c, true
	}
	if c, ok := ParseCode(sym); ok {
		return c, true
	}
	return Unknown, false
}

// ParseCode parses a known code case-insensitively.
func ParseCode(s string) (Code, bool) {
	c := Code(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := displaySymbols[c]; ok {
		return c, true
	}
	return Unknown, false
}

// Valid reports whether c is one of the known codes.
func (c Code) Valid() bool {
	_, ok := displaySymbols[c]
	return ok
}

// Symbol returns the display symbol, or the code itself when none is known.
func (c Code) Symbol() string {
	if s, ok := displaySymbols[c]; ok {
		return s
	}
	return string(c)
}

func (c Code) String() string {
	if c == Unknown {
		return "unknown"
	}
	return string(c)
}
