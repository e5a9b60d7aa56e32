package extract

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/theirongolddev/finburn/internal/currency"
	"github.com/theirongolddev/finburn/internal/logging"
	"github.com/theirongolddev/finburn/internal/model"
)

func mustDoc(t *testing.T, markup string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func card(name, text string) string {
	return fmt.Sprintf(`<div class="rounded bg-card p-2"><p class="break-all">%s</p><div>%s</div></div>`, name, text)
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-3 }

func TestExtractEndToEnd(t *testing.T) {
	doc := mustDoc(t, `<html><body><div class="server-list">`+
		card("A", "价格: ￥60/年 剩余天数: 180")+
		card("B", "价格: 免费 剩余天数: 永久")+
		`</div></body></html>`)

	out := New(logging.Discard()).Extract(doc, currency.FallbackTable(nil))
	if len(out.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(out.Records))
	}

	a := out.Records[0]
	if a.Name != "A" || a.Cycle != model.CycleYear || a.IsFree {
		t.Errorf("A = %+v", a)
	}
	if !near(a.MonthlyCostBase, 5) {
		t.Errorf("A.MonthlyCostBase = %v, want 5", a.MonthlyCostBase)
	}
	if !near(a.TotalCostBase, 60) {
		t.Errorf("A.TotalCostBase = %v, want 60", a.TotalCostBase)
	}
	if !near(a.RemainingValueBase, 180*60.0/365) {
		t.Errorf("A.RemainingValueBase = %v, want %v", a.RemainingValueBase, 180*60.0/365)
	}

	b := out.Records[1]
	if !b.IsFree || !b.RemainingDays.IsPermanent() || b.RemainingValueBase != 0 {
		t.Errorf("B = %+v", b)
	}
	if b.SourceOrder != 1 {
		t.Errorf("B.SourceOrder = %d, want 1", b.SourceOrder)
	}
}

func TestBuildRecord(t *testing.T) {
	rates := currency.NewTable(map[currency.Code]float64{
		currency.USD: 0.5,
		currency.HKD: 2,
	}, "test", zeroTime)

	tests := []struct {
		name      string
		text      string
		wantOK    bool
		free      bool
		total     float64
		monthly   float64
		remaining float64
	}{
		{"monthly usd", "价格: $10/月 剩余天数: 15", true, false, 20, 20, 10},
		{"no symbol defaults to dollar", "价格: 10 剩余天数: 30", true, false, 20, 20, 20},
		{"hkd annual", "价格: HK$730/年 剩余天数: 100", true, false, 365, 365.0 / 12, 100},
		{"permanent paid", "价格: ￥99/年 剩余天数: 永久", true, false, 99, 99.0 / 12, 99},
		{"expired keeps zero days", "价格: ￥30/月 已过期 剩余天数: 10", true, false, 30, 30, 0},
		{"one-time is free", "价格: $120/- 剩余天数: 30", true, true, 0, 0, 0},
		{"free marker", "白嫖 价格: $5/月 剩余天数: 30", true, true, 0, 0, 0},
		{"no price is free", "剩余天数: 30", true, true, 0, 0, 0},
		{"no validity is skipped", "价格: $5/月", false, false, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := BuildRecord("x", tt.text, 0, rates)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if rec.IsFree != tt.free {
				t.Errorf("IsFree = %v, want %v", rec.IsFree, tt.free)
			}
			if !near(rec.TotalCostBase, tt.total) {
				t.Errorf("TotalCostBase = %v, want %v", rec.TotalCostBase, tt.total)
			}
			if !near(rec.MonthlyCostBase, tt.monthly) {
				t.Errorf("MonthlyCostBase = %v, want %v", rec.MonthlyCostBase, tt.monthly)
			}
			if !near(rec.RemainingValueBase, tt.remaining) {
				t.Errorf("RemainingValueBase = %v, want %v", rec.RemainingValueBase, tt.remaining)
			}
			if tt.free && (rec.OriginalAmount != 0 || rec.OriginalSymbol != "") {
				t.Errorf("free record kept price %q%v", rec.OriginalSymbol, rec.OriginalAmount)
			}
			if !tt.free && rec.OriginalSymbol == "" {
				t.Errorf("paid record lost its price symbol")
			}
		})
	}
}

func TestBuildRecordUnparseableAmount(t *testing.T) {
	rec, ok := BuildRecord("x", "价格: 1.2.3/月 剩余天数: 3", 0, currency.FallbackTable(nil))
	if !ok || rec.IsFree {
		t.Fatalf("rec = %+v ok = %v", rec, ok)
	}
	if !math.IsNaN(rec.TotalCostBase) {
		t.Errorf("TotalCostBase = %v, want NaN", rec.TotalCostBase)
	}
}

func TestExtractPlaceholderName(t *testing.T) {
	doc := mustDoc(t, `<div class="bg-card"><span>价格: 5 剩余天数: 1</span></div>`)
	out := New(logging.Discard()).Extract(doc, currency.FallbackTable(nil))
	if len(out.Records) != 1 || out.Records[0].Name != model.UnknownName {
		t.Fatalf("records = %+v", out.Records)
	}
}

func TestExtractCap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 600; i++ {
		b.WriteString(card(fmt.Sprintf("s%d", i), "剩余天数: 5"))
	}
	doc := mustDoc(t, b.String())

	logger, hook := test.NewNullLogger()
	out := New(logger).Extract(doc, currency.FallbackTable(nil))

	if len(out.Records) != DefaultMaxCards {
		t.Fatalf("records = %d, want %d", len(out.Records), DefaultMaxCards)
	}
	if out.Truncated != 100 || out.Candidates != 600 {
		t.Errorf("truncated = %d candidates = %d", out.Truncated, out.Candidates)
	}
	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && strings.Contains(e.Message, "too many server cards") {
			warned = true
		}
	}
	if !warned {
		t.Error("expected a cap warning")
	}
	if last := out.Records[len(out.Records)-1]; last.Name != "s499" {
		t.Errorf("last record = %s, want s499", last.Name)
	}
}

func TestExtractDoesNotMutate(t *testing.T) {
	doc := mustDoc(t, card("A", "价格: ￥60/年 剩余天数: 180"))
	before, _ := doc.Html()
	New(logging.Discard()).Extract(doc, currency.FallbackTable(nil))
	after, _ := doc.Html()
	if before != after {
		t.Error("document changed during extraction")
	}
}

func TestTextBreaksBlocks(t *testing.T) {
	doc := mustDoc(t, `<div id="c"><p>价格: 60</p><p>12 剩余天数: 3</p><script>bad()</script></div>`)
	got := Text(doc.Find("#c"))
	if strings.Contains(got, "6012") {
		t.Errorf("blocks ran together: %q", got)
	}
	if strings.Contains(got, "bad()") {
		t.Errorf("script text leaked: %q", got)
	}
}
