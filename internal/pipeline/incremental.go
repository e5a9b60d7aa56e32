package pipeline

import (
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cespare/xxhash/v2"

	"github.com/theirongolddev/finburn/internal/currency"
	"github.com/theirongolddev/finburn/internal/extract"
	"github.com/theirongolddev/finburn/internal/model"
)

// CachedLoadResult extends LoadResult with memo metadata.
type CachedLoadResult struct {
	LoadResult
	CacheHits int
	Reparsed  int
}

type tableKey struct {
	source    string
	fetchedAt time.Time
	fallback  bool
	codes     int
}

func keyOf(t currency.Table) tableKey {
	return tableKey{source: t.Source, fetchedAt: t.FetchedAt, fallback: t.Fallback, codes: t.Len()}
}

type memoEntry struct {
	rec model.AssetRecord
	ok  bool
}

// Memo remembers evaluated cards between passes over a live page so
// unchanged cards are not matched again. It lives in memory only and is
// reset whenever the rate table changes.
type Memo struct {
	mu      sync.Mutex
	table   tableKey
	entries map[uint64]memoEntry
}

// NewMemo returns an empty memo.
func NewMemo() *Memo {
	return &Memo{entries: make(map[uint64]memoEntry)}
}

// Len is the number of remembered cards.
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func cardKey(c extract.Card) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(c.Name)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(c.Text)
	return h.Sum64()
}

// LoadWithMemo is Load with unchanged cards served from memo. Entries
// for cards no longer on the page are dropped after the pass.
func LoadWithMemo(doc *goquery.Document, ex *extract.Extractor, rates currency.Table, memo *Memo, workers int, progressFn ProgressFunc) *CachedLoadResult {
	if memo == nil {
		return &CachedLoadResult{LoadResult: *Load(doc, ex, rates, workers, progressFn)}
	}

	cards, candidates, truncated := ex.Collect(doc)
	result := &CachedLoadResult{LoadResult: LoadResult{Candidates: candidates, Truncated: truncated}}
	if len(cards) == 0 {
		memo.mu.Lock()
		memo.entries = make(map[uint64]memoEntry)
		memo.mu.Unlock()
		return result
	}

	memo.mu.Lock()
	if k := keyOf(rates); k != memo.table {
		memo.table = k
		memo.entries = make(map[uint64]memoEntry)
	}
	keys := make([]uint64, len(cards))
	results := make([]evalResult, len(cards))
	var toReparse []int
	for i, c := range cards {
		keys[i] = cardKey(c)
		if e, ok := memo.entries[keys[i]]; ok {
			e.rec.SourceOrder = c.Index
			results[i] = evalResult{rec: e.rec, ok: e.ok}
			continue
		}
		toReparse = append(toReparse, i)
	}
	memo.mu.Unlock()

	result.CacheHits = len(cards) - len(toReparse)
	result.Reparsed = len(toReparse)

	if len(toReparse) > 0 {
		pending := make([]extract.Card, len(toReparse))
		for j, i := range toReparse {
			pending[j] = cards[i]
		}
		fresh := evaluate(pending, workers, progressFn, func(c extract.Card) evalResult {
			rec, ok, err := ex.Evaluate(c, rates)
			return evalResult{rec: rec, ok: ok, err: err}
		})
		for j, i := range toReparse {
			results[i] = fresh[j]
		}
	}

	next := make(map[uint64]memoEntry, len(cards))
	for i, r := range results {
		if r.err == nil {
			next[keys[i]] = memoEntry{rec: r.rec, ok: r.ok}
		}
	}
	memo.mu.Lock()
	memo.entries = next
	memo.mu.Unlock()

	collect(&result.LoadResult, ex, cards, results)
	return result
}
