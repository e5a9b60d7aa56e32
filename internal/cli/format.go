// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/theirongolddev/finburn/internal/model"
)

// FormatMoney formats an amount with its currency symbol and two decimals.
// e.g., ("¥", 1234.5) -> "¥1,234.50"
func FormatMoney(symbol string, v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	neg := v < 0
	if neg {
		v = -v
	}
	cents := int64(math.Round(v * 100))
	s := symbol + FormatNumber(cents/100) + fmt.Sprintf(".%02d", cents%100)
	if neg && cents != 0 {
		return "-" + s
	}
	return s
}

// FormatCompact formats a large amount with a K/M suffix for narrow cells.
func FormatCompact(symbol string, v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1_000_000:
		return fmt.Sprintf("%s%.1fM", symbol, v/1_000_000)
	case abs >= 10_000:
		return fmt.Sprintf("%s%.1fK", symbol, v/1_000)
	default:
		return FormatMoney(symbol, v)
	}
}

// FormatDays renders remaining validity. Permanent shows as ∞.
func FormatDays(d model.Days) string {
	if d.IsPermanent() {
		return "∞"
	}
	return FormatNumber(int64(d)) + "d"
}

// FormatCycle renders a billing cycle as a short suffix.
func FormatCycle(c model.Cycle, oneTime bool) string {
	if oneTime {
		return "once"
	}
	if c == model.CycleYear {
		return "/yr"
	}
	return "/mo"
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatPercent formats a 0-1 float as a percentage string.
func FormatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

// FormatDelta formats the signed change between two amounts.
func FormatDelta(symbol string, current, previous float64) string {
	delta := current - previous
	if delta >= 0 {
		return "+" + FormatMoney(symbol, delta)
	}
	return "-" + FormatMoney(symbol, -delta)
}
