package matcher

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/theirongolddev/finburn/internal/model"
)

// ValidityKind classifies a remaining-validity expression.
type ValidityKind int

const (
	ValidityIndeterminate ValidityKind = iota
	ValidityExpired
	ValidityPermanent
	ValidityDays
)

func (k ValidityKind) String() string {
	switch k {
	case ValidityExpired:
		return "expired"
	case ValidityPermanent:
		return "permanent"
	case ValidityDays:
		return "days"
	}
	return "indeterminate"
}

// Validity is the result of the validity rules.
type Validity struct {
	Kind ValidityKind
	Days int64
}

// RemainingDays converts v to a day count. ok is false when the
// validity is indeterminate.
func (v Validity) RemainingDays() (model.Days, bool) {
	switch v.Kind {
	case ValidityExpired:
		return 0, true
	case ValidityPermanent:
		return model.Permanent, true
	case ValidityDays:
		return model.Days(v.Days), true
	}
	return 0, false
}

// ValidityMatcher is one named validity rule.
type ValidityMatcher struct {
	Name  string
	Match func(text string) (Validity, bool)
}

// ExpiredKeywords mark an expired term anywhere in the text.
var ExpiredKeywords = []string{"已过期", "已到期", "过期", "到期"}

const daysLabel = `剩余天数\s*[:：]\s*`

var (
	rePermanent = regexp.MustCompile(`(?i)` + daysLabel + `永久`)
	reDays      = regexp.MustCompile(daysLabel + `(\d+)`)
)

// ValidityMatchers is the ordered rule list: expired, permanent, days.
var ValidityMatchers = []ValidityMatcher{
	{Name: "expired", Match: matchExpired},
	{Name: "permanent", Match: matchPermanent},
	{Name: "days", Match: matchDays},
}

// MatchValidity runs ValidityMatchers in order; indeterminate when none hits.
func MatchValidity(text string) Validity {
	for _, m := range ValidityMatchers {
		if v, ok := m.Match(text); ok {
			return v
		}
	}
	return Validity{Kind: ValidityIndeterminate}
}

func matchExpired(text string) (Validity, bool) {
	for _, kw := range ExpiredKeywords {
		if strings.Contains(text, kw) {
			return Validity{Kind: ValidityExpired}, true
		}
	}
	return Validity{}, false
}

func matchPermanent(text string) (Validity, bool) {
	if !rePermanent.MatchString(text) {
		return Validity{}, false
	}
	return Validity{Kind: ValidityPermanent}, true
}

func matchDays(text string) (Validity, bool) {
	m := reDays.FindStringSubmatch(text)
	if m == nil {
		return Validity{}, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		// Out of range for int64; nothing sensible to report.
		return Validity{}, false
	}
	return Validity{Kind: ValidityDays, Days: n}, true
}
