package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/finburn/internal/tui/theme"
)

func init() {
	// Force TrueColor output so ANSI codes are generated in tests.
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestLayoutRowSumsExactly(t *testing.T) {
	for total := 10; total < 40; total++ {
		for n := 1; n < 6; n++ {
			sum := 0
			for _, w := range LayoutRow(total, n) {
				sum += w
			}
			assert.Equal(t, total, sum, "total=%d n=%d", total, n)
		}
	}
	assert.Nil(t, LayoutRow(10, 0))
}

func TestCardRowPadsShorterCards(t *testing.T) {
	theme.SetActive("flexoki-dark")

	short := ContentCard("Short", "x", 22)
	tall := ContentCard("Tall", "1\n2\n3\n4\n5", 22)
	require.Less(t, lipgloss.Height(short), lipgloss.Height(tall))

	lines := strings.Split(CardRow([]string{tall, short}), "\n")
	assert.Len(t, lines, lipgloss.Height(tall))
	for i, line := range lines {
		assert.Equal(t, 44, lipgloss.Width(line), "line %d", i)
		assert.Contains(t, line, "\x1b[", "line %d has no styling", i)
	}
}

func TestMetricCardRowWidth(t *testing.T) {
	row := MetricCardRow([]Metric{
		{Label: "Total", Value: "¥1,200.00"},
		{Label: "Monthly", Value: "¥100.00", Note: "2 free"},
		{Label: "Remaining", Value: "¥40.00", Stale: true},
	}, 61)
	for _, line := range strings.Split(row, "\n") {
		assert.Equal(t, 61, lipgloss.Width(line))
	}
}

func TestTabIdxByKey(t *testing.T) {
	assert.Equal(t, 0, TabIdxByKey("1"))
	assert.Equal(t, 1, TabIdxByKey("2"))
	assert.Equal(t, -1, TabIdxByKey("x"))
}

func TestShareBarClamps(t *testing.T) {
	assert.Contains(t, ShareBar(2, 10), "100.0%")
	assert.Contains(t, ShareBar(-1, 10), "0.0%")
}
