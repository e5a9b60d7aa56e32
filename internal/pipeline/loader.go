package pipeline

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"

	"github.com/theirongolddev/finburn/internal/currency"
	"github.com/theirongolddev/finburn/internal/extract"
	"github.com/theirongolddev/finburn/internal/model"
)

// LoadResult holds the output of one extraction pass.
type LoadResult struct {
	Records    []model.AssetRecord
	Candidates int
	Truncated  int
	Skipped    int
	Failed     int
}

// ProgressFunc is called during loading to report progress.
// current is the number of cards evaluated so far, total is the card count.
type ProgressFunc func(current, total int)

type evalResult struct {
	rec model.AssetRecord
	ok  bool
	err error
}

// Load reads every card from doc and evaluates them with a bounded worker
// pool. Records come back in page order whatever the worker count.
func Load(doc *goquery.Document, ex *extract.Extractor, rates currency.Table, workers int, progressFn ProgressFunc) *LoadResult {
	cards, candidates, truncated := ex.Collect(doc)
	result := &LoadResult{Candidates: candidates, Truncated: truncated}
	if len(cards) == 0 {
		return result
	}

	results := evaluate(cards, workers, progressFn, func(c extract.Card) evalResult {
		rec, ok, err := ex.Evaluate(c, rates)
		return evalResult{rec: rec, ok: ok, err: err}
	})
	collect(result, ex, cards, results)
	return result
}

func evaluate(cards []extract.Card, workers int, progressFn ProgressFunc, fn func(extract.Card) evalResult) []evalResult {
	numWorkers := workers
	if numWorkers < 1 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if numWorkers < 1 {
		numWorkers = 4
	}
	if numWorkers > len(cards) {
		numWorkers = len(cards)
	}

	work := make(chan int, len(cards))
	results := make([]evalResult, len(cards))
	var wg sync.WaitGroup
	var processed atomic.Int64

	for i := range cards {
		work <- i
	}
	close(work)

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				results[idx] = fn(cards[idx])
				n := processed.Add(1)
				if progressFn != nil {
					progressFn(int(n), len(cards))
				}
			}
		}()
	}
	wg.Wait()
	return results
}

func collect(result *LoadResult, ex *extract.Extractor, cards []extract.Card, results []evalResult) {
	for i, r := range results {
		switch {
		case r.err != nil:
			result.Failed++
			ex.Logger().WithError(r.err).WithField("index", cards[i].Index).Warn("skipping card")
		case !r.ok:
			result.Skipped++
		default:
			result.Records = append(result.Records, r.rec)
		}
	}
}
