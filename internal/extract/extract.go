// Package extract turns the server cards of a dashboard page into
// asset records. It only reads the document.
package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"github.com/theirongolddev/finburn/internal/currency"
	"github.com/theirongolddev/finburn/internal/logging"
	"github.com/theirongolddev/finburn/internal/matcher"
	"github.com/theirongolddev/finburn/internal/model"
)

const (
	DefaultCardSelector = `[class*="bg-card"]`
	DefaultNameSelector = `p.break-all, h3, .font-bold`
	DefaultMaxCards     = 500
)

// Extractor reads server cards from a page.
type Extractor struct {
	CardSelector string
	NameSelector string
	MaxCards     int
	Log          *logrus.Entry
}

// New returns an Extractor with the default selectors and cap.
func New(log *logrus.Logger) *Extractor {
	return &Extractor{
		CardSelector: DefaultCardSelector,
		NameSelector: DefaultNameSelector,
		MaxCards:     DefaultMaxCards,
		Log:          logging.For(log, logging.ComponentExtract),
	}
}

// Card is the text read from one candidate element.
type Card struct {
	Index int
	Name  string
	Text  string
}

// Output is the result of one extraction.
type Output struct {
	Records []model.AssetRecord
	// Candidates is the number of cards matched before the cap.
	Candidates int
	Truncated  int
	Skipped    int
	Failed     int
}

// Collect reads the name and text of every candidate card in page order,
// up to the cap. Cards past the cap are dropped with a warning.
func (e *Extractor) Collect(doc *goquery.Document) (cards []Card, candidates, truncated int) {
	if doc == nil {
		return nil, 0, 0
	}
	sel := doc.Find(e.cardSelector())
	candidates = sel.Length()
	if limit := e.maxCards(); candidates > limit {
		truncated = candidates - limit
		e.log().WithFields(logrus.Fields{
			"candidates": candidates,
			"max":        limit,
		}).Warn("too many server cards, ignoring the rest")
		sel = sel.Slice(0, limit)
	}

	cards = make([]Card, 0, sel.Length())
	sel.Each(func(i int, card *goquery.Selection) {
		name := strings.TrimSpace(card.Find(e.nameSelector()).First().Text())
		if name == "" {
			name = model.UnknownName
		}
		cards = append(cards, Card{Index: i, Name: name, Text: Text(card)})
	})
	return cards, candidates, truncated
}

// Evaluate builds the record for one card. ok is false when the card has
// no recognizable validity; err is set when evaluation panicked.
func (e *Extractor) Evaluate(c Card, rates currency.Table) (rec model.AssetRecord, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("card %d: %v", c.Index, r)
		}
	}()
	rec, ok = BuildRecord(c.Name, c.Text, c.Index, rates)
	return rec, ok, nil
}

// Extract builds records for every card in page order. Cards without a
// recognizable validity label are skipped; a card that fails to parse
// is logged and skipped.
func (e *Extractor) Extract(doc *goquery.Document, rates currency.Table) Output {
	var out Output
	cards, candidates, truncated := e.Collect(doc)
	out.Candidates, out.Truncated = candidates, truncated

	for _, c := range cards {
		rec, ok, err := e.Evaluate(c, rates)
		switch {
		case err != nil:
			out.Failed++
			e.log().WithError(err).WithField("index", c.Index).Warn("skipping card")
		case !ok:
			out.Skipped++
		default:
			out.Records = append(out.Records, rec)
		}
	}
	return out
}

// Logger returns the extractor's log entry.
func (e *Extractor) Logger() *logrus.Entry { return e.log() }

// BuildRecord infers a record from one card's name and text. ok is
// false when the text has no recognizable validity.
func BuildRecord(name, text string, order int, rates currency.Table) (model.AssetRecord, bool) {
	days, ok := matcher.MatchValidity(text).RemainingDays()
	if !ok {
		return model.AssetRecord{}, false
	}

	q, priced := matcher.Normalize(matcher.MatchPrice(text))
	rec := model.AssetRecord{
		Name:           name,
		IsFree:        !priced || q.IsFree || q.IsOneTime || matcher.HasFreeMarker(text),
		Cycle:         q.Cycle,
		IsOneTime:     q.IsOneTime,
		RemainingDays: days,
		SourceOrder:   order,
	}
	if rec.Cycle == "" {
		rec.Cycle = model.CycleMonth
	}
	if rec.IsFree {
		return rec, true
	}

	rec.OriginalAmount = q.Amount
	rec.OriginalSymbol = q.Symbol
	cost := rates.ToBaseSymbol(q.Amount, q.Symbol)
	rec.TotalCostBase = cost
	rec.MonthlyCostBase = cost / rec.Cycle.Months()
	if days.IsPermanent() {
		rec.RemainingValueBase = cost
	} else {
		rec.RemainingValueBase = cost / rec.Cycle.DaysPerCycle() * float64(days)
	}
	return rec, true
}

var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"br": true, "dd": true, "div": true, "dl": true, "dt": true,
	"footer": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "header": true, "hr": true, "li": true,
	"main": true, "nav": true, "ol": true, "p": true, "section": true,
	"table": true, "td": true, "th": true, "tr": true, "ul": true,
}

// Text renders the visible text of sel, breaking lines at block
// elements so that adjacent labels do not run together.
func Text(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" || n.Data == "template" {
				return
			}
		}
		block := n.Type == html.ElementNode && blockTags[n.Data]
		if block {
			b.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			b.WriteByte('\n')
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return b.String()
}

func (e *Extractor) log() *logrus.Entry {
	if e.Log == nil {
		return logging.For(nil, logging.ComponentExtract)
	}
	return e.Log
}

func (e *Extractor) cardSelector() string {
	if e.CardSelector == "" {
		return DefaultCardSelector
	}
	return e.CardSelector
}

func (e *Extractor) nameSelector() string {
	if e.NameSelector == "" {
		return DefaultNameSelector
	}
	return e.NameSelector
}

func (e *Extractor) maxCards() int {
	if e.MaxCards <= 0 {
		return DefaultMaxCards
	}
	return e.MaxCards
}
