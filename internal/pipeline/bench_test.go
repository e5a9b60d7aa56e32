package pipeline

import (
	"fmt"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/theirongolddev/finburn/internal/currency"
	"github.com/theirongolddev/finburn/internal/extract"
	"github.com/theirongolddev/finburn/internal/logging"
	"github.com/theirongolddev/finburn/internal/model"
)

func benchDoc(b *testing.B, n int) *goquery.Document {
	b.Helper()
	var sb strings.Builder
	sb.WriteString(`<div class="server-list">`)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, `<div class="bg-card"><p class="break-all">node-%d</p><p>价格: HK$%d.50/年</p><p>剩余天数: %d</p></div>`, i, i+10, i%365)
	}
	sb.WriteString(`</div>`)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sb.String()))
	if err != nil {
		b.Fatal(err)
	}
	return doc
}

func BenchmarkLoad(b *testing.B) {
	doc := benchDoc(b, extract.DefaultMaxCards)
	ex := extract.New(logging.Discard())
	table := currency.FallbackTable(nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Load(doc, ex, table, 0, nil)
	}
}

func BenchmarkLoadWithMemo(b *testing.B) {
	doc := benchDoc(b, extract.DefaultMaxCards)
	ex := extract.New(logging.Discard())
	table := currency.FallbackTable(nil)
	memo := NewMemo()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = LoadWithMemo(doc, ex, table, memo, 0, nil)
	}
}

func BenchmarkAggregate(b *testing.B) {
	doc := benchDoc(b, extract.DefaultMaxCards)
	table := currency.FallbackTable(nil)
	recs := Load(doc, extract.New(logging.Discard()), table, 0, nil).Records
	prefs := model.Preferences{Currency: currency.USD, Sort: model.SortRemainDesc, ExcludeFree: true}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Aggregate(recs, prefs, table)
	}
}
