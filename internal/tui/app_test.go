package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/finburn/internal/config"
	"github.com/theirongolddev/finburn/internal/currency"
	"github.com/theirongolddev/finburn/internal/logging"
	"github.com/theirongolddev/finburn/internal/model"
	"github.com/theirongolddev/finburn/internal/pipeline"
	"github.com/theirongolddev/finburn/internal/resync"
	"github.com/theirongolddev/finburn/internal/source"
	"github.com/theirongolddev/finburn/internal/tui/components"
)

const page = `<div>` +
	`<div class="bg-card"><p class="break-all">tokyo-1</p><p>价格: $5/月</p><p>剩余天数: 20</p></div>` +
	`<div class="bg-card"><p class="break-all">hk-free</p><p>价格: 免费</p><p>剩余天数: 永久</p></div>` +
	`</div>`

type fixedRates struct{ t currency.Table }

func (r fixedRates) Table() currency.Table                          { return r.t }
func (r fixedRates) Status() currency.RefreshStatus                 { return currency.RefreshStatus{OK: true} }
func (r fixedRates) Refresh(context.Context) currency.RefreshStatus { return r.Status() }

func newTestApp(t *testing.T) App {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)
	eng := pipeline.NewEngine(source.Static{Doc: doc}, fixedRates{currency.FallbackTable(nil)},
		pipeline.WithEngineLogger(logging.Discard()))
	a := NewApp(Options{Engine: eng, Page: "test.html", Logger: logging.Discard()})
	t.Cleanup(a.Close)

	m, _ := a.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	return m.(App)
}

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// nextPass waits for the pass the controller started.
func nextPass(t *testing.T, a App) ReportMsg {
	t.Helper()
	select {
	case msg := <-a.rt.sub:
		return msg.(ReportMsg)
	case <-time.After(2 * time.Second):
		t.Fatal("no pass delivered")
		return ReportMsg{}
	}
}

func show(t *testing.T, a App) App {
	t.Helper()
	m, cmd := a.Update(key("p"))
	require.NotNil(t, cmd)
	cmd()
	m, _ = m.(App).Update(nextPass(t, m.(App)))
	return m.(App)
}

func TestShowRunsPassAndRendersRecords(t *testing.T) {
	a := newTestApp(t)
	assert.Equal(t, resync.Hidden, a.Controller().State())
	assert.Contains(t, a.View(), "Panel hidden")

	a = show(t, a)
	require.True(t, a.loaded)
	assert.Equal(t, resync.Visible, a.Controller().State())

	view := a.View()
	assert.Contains(t, view, "tokyo-1")
	assert.Contains(t, view, "hk-free")
	assert.Contains(t, view, "∞")
}

func TestHideKeepsLastTotalsAndBlocksPrefs(t *testing.T) {
	a := show(t, newTestApp(t))

	m, _ := a.Update(key("p"))
	a = m.(App)
	assert.Equal(t, resync.Hidden, a.Controller().State())
	assert.Contains(t, a.View(), "Last seen")

	m, cmd := a.Update(key("c"))
	assert.Nil(t, cmd, "prefs keys are ignored while hidden")
	assert.Equal(t, currency.CNY, m.(App).engine.Preferences().Currency)
}

func TestCurrencyKeyRunsSetter(t *testing.T) {
	a := show(t, newTestApp(t))

	m, cmd := a.Update(key("c"))
	require.NotNil(t, cmd)
	a = m.(App)
	assert.True(t, a.busy)

	m, next := a.Update(cmd())
	a = m.(App)
	assert.Nil(t, next, "direct results do not re-arm the subscription")
	assert.False(t, a.busy)
	assert.Equal(t, currency.USD, a.res.Summary.Currency)
}

func TestNameFilter(t *testing.T) {
	a := show(t, newTestApp(t))
	a.query = "HK"
	rows := a.visibleRows()
	require.Len(t, rows, 1)
	assert.Equal(t, "hk-free", rows[0].Record.Name)
}

func TestTabAtXMatchesTabWidths(t *testing.T) {
	for active := range components.Tabs {
		a := App{activeTab: active}
		pos := 0
		for i, tab := range components.Tabs {
			w := components.TabVisualWidth(tab, i == active)
			assert.Equal(t, i, a.tabAtX(pos+w/2), "active=%d", active)
			pos += w + 1
		}
		assert.Equal(t, -1, a.tabAtX(pos+50))
	}
}

func TestCycling(t *testing.T) {
	assert.Equal(t, currency.USD, nextCurrency(currency.CNY, 1))
	assert.Equal(t, currency.CNY, nextCurrency(currency.DisplayCodes[len(currency.DisplayCodes)-1], 1))
	assert.Equal(t, currency.DisplayCodes[len(currency.DisplayCodes)-1], nextCurrency(currency.CNY, -1))

	assert.Equal(t, model.SortWeightDesc, nextSortKey(model.SortWeightAsc))
	assert.Equal(t, model.SortKeys[0], nextSortKey(model.SortKeys[len(model.SortKeys)-1]))
	assert.Equal(t, model.SortKeys[0], nextSortKey("bogus"))
}

func TestPriceLabel(t *testing.T) {
	tests := []struct {
		rec  model.AssetRecord
		want string
	}{
		{model.AssetRecord{IsFree: true}, "free"},
		{model.AssetRecord{}, "-"},
		{model.AssetRecord{OriginalSymbol: "$", OriginalAmount: 5, Cycle: model.CycleMonth}, "$5.00/mo"},
		{model.AssetRecord{OriginalSymbol: "¥", OriginalAmount: 60, Cycle: model.CycleYear}, "¥60.00/yr"},
		{model.AssetRecord{IsOneTime: true, IsFree: true}, "once"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, priceLabel(tt.rec))
	}
}

func TestTruncStrWide(t *testing.T) {
	assert.Equal(t, "abc", truncStr("abc", 5))
	assert.Equal(t, "香港…", truncStr("香港节点", 5))
}

func TestSetupValues(t *testing.T) {
	cfg := config.DefaultConfig()
	v := SetupValues{Page: " https://panel.example/servers ", Currency: "hkd", Theme: "tokyo-night"}
	v.Apply(&cfg)
	assert.Equal(t, "https://panel.example/servers", cfg.General.Page)
	assert.Equal(t, "tokyo-night", cfg.Appearance.Theme)
	assert.Equal(t, currency.HKD, v.DisplayCurrency())
	assert.Equal(t, currency.Base, SetupValues{Currency: "zzz"}.DisplayCurrency())

	assert.Error(t, validatePage(""))
	assert.Error(t, validatePage("/definitely/not/here.html"))
	assert.NoError(t, validatePage("http://x"))
	assert.NoError(t, validatePage(t.TempDir()))
}
