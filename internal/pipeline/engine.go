package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/finburn/internal/currency"
	"github.com/theirongolddev/finburn/internal/extract"
	"github.com/theirongolddev/finburn/internal/logging"
	"github.com/theirongolddev/finburn/internal/model"
)

// SlowPass is the duration above which a pass logs a performance warning.
const SlowPass = 200 * time.Millisecond

var (
	ErrInvalidSortKey  = errors.New("pipeline: invalid sort key")
	ErrInvalidCurrency = errors.New("pipeline: invalid display currency")
)

// PageSource yields the current snapshot of the host page.
type PageSource interface {
	Page(ctx context.Context) (*goquery.Document, error)
}

// PreferenceStore persists display preferences.
type PreferenceStore interface {
	LoadPreferences(ctx context.Context) (model.Preferences, error)
	SavePreferences(ctx context.Context, p model.Preferences) error
}

// RateBook supplies the current rate table. *currency.Book satisfies it.
type RateBook interface {
	Table() currency.Table
	Refresh(ctx context.Context) currency.RefreshStatus
	Status() currency.RefreshStatus
}

// RateInfo describes the table a pass was computed with.
type RateInfo struct {
	Source    string
	FetchedAt time.Time
	Fallback  bool
	Status    currency.RefreshStatus
}

// Result is the outcome of one pipeline pass.
type Result struct {
	RunID string
	At    time.Time
	Report
	Prefs      model.Preferences
	Rates      RateInfo
	// Table is the rate table the pass converted with.
	Table      currency.Table
	Candidates int
	Truncated  int
	Skipped    int
	Failed     int
	CacheHits  int
	Duration   time.Duration
}

// Engine runs passes over the page. Passes are serialized, so a setter
// and a resync never interleave.
type Engine struct {
	src   PageSource
	rates RateBook
	store PreferenceStore
	ex    *extract.Extractor
	memo  *Memo
	log   *logrus.Entry

	workers  int
	slow     time.Duration
	now      func() time.Time
	onResult func(Result)

	mu    sync.Mutex
	prefs model.Preferences
	last  *Result
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithPreferenceStore persists preference changes to s.
func WithPreferenceStore(s PreferenceStore) EngineOption {
	return func(e *Engine) { e.store = s }
}

// WithExtractor replaces the default extractor.
func WithExtractor(ex *extract.Extractor) EngineOption {
	return func(e *Engine) {
		if ex != nil {
			e.ex = ex
		}
	}
}

// WithEngineLogger sets the logger for pass diagnostics.
func WithEngineLogger(l *logrus.Logger) EngineOption {
	return func(e *Engine) { e.log = logging.For(l, logging.ComponentPipeline) }
}

// WithWorkers bounds card evaluation concurrency.
func WithWorkers(n int) EngineOption {
	return func(e *Engine) { e.workers = n }
}

// WithSlowThreshold overrides SlowPass.
func WithSlowThreshold(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.slow = d
		}
	}
}

// WithMemo enables card memoization across passes.
func WithMemo(m *Memo) EngineOption {
	return func(e *Engine) { e.memo = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// OnResult registers a hook called after every successful pass.
func OnResult(fn func(Result)) EngineOption {
	return func(e *Engine) { e.onResult = fn }
}

// NewEngine builds an engine over src using rates for conversion.
func NewEngine(src PageSource, rates RateBook, opts ...EngineOption) *Engine {
	e := &Engine{
		src:   src,
		rates: rates,
		ex:    extract.New(nil),
		log:   logging.For(nil, logging.ComponentPipeline),
		slow:  SlowPass,
		now:   time.Now,
		prefs: model.DefaultPreferences(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// LoadPreferences reads stored preferences. Without a store, or when the
// store fails, the defaults stay in effect.
func (e *Engine) LoadPreferences(ctx context.Context) model.Preferences {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.store == nil {
		return e.prefs
	}
	p, err := e.store.LoadPreferences(ctx)
	if err != nil {
		e.log.WithError(err).Warn("loading preferences, using defaults")
		return e.prefs
	}
	e.prefs = p
	return p
}

// Preferences returns the preferences currently in effect.
func (e *Engine) Preferences() model.Preferences {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.prefs
}

// Last returns the most recent result, if any pass has completed.
func (e *Engine) Last() (Result, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.last == nil {
		return Result{}, false
	}
	return *e.last, true
}

// RunPipeline extracts, sorts and summarizes the current page.
func (e *Engine) RunPipeline(ctx context.Context) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.run(ctx)
}

// SetSortKey persists key and runs a pass.
func (e *Engine) SetSortKey(ctx context.Context, key model.SortKey) (Result, error) {
	if !key.Valid() {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidSortKey, key)
	}
	return e.update(ctx, func(p *model.Preferences) { p.Sort = key })
}

// SetDisplayCurrency persists code and runs a pass.
func (e *Engine) SetDisplayCurrency(ctx context.Context, code currency.Code) (Result, error) {
	if !code.Valid() {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	return e.update(ctx, func(p *model.Preferences) { p.Currency = code })
}

// SetExcludeFree persists the free-exclusion toggle and runs a pass.
func (e *Engine) SetExcludeFree(ctx context.Context, on bool) (Result, error) {
	return e.update(ctx, func(p *model.Preferences) { p.ExcludeFree = on })
}

// Refresh re-fetches exchange rates, then runs a pass. A failed rate
// refresh is not an error; the pass uses whatever table is current.
func (e *Engine) Refresh(ctx context.Context) (Result, error) {
	e.rates.Refresh(ctx)
	return e.RunPipeline(ctx)
}

// UpdatePreferences applies several preference changes at once, persists
// them and runs a single pass. Nothing changes if the result is invalid.
func (e *Engine) UpdatePreferences(ctx context.Context, apply func(*model.Preferences)) (Result, error) {
	return e.update(ctx, apply)
}

func (e *Engine) update(ctx context.Context, apply func(*model.Preferences)) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.prefs
	apply(&next)
	if !next.Sort.Valid() {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidSortKey, next.Sort)
	}
	if !next.Currency.Valid() {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidCurrency, next.Currency)
	}
	if e.store != nil {
		if err := e.store.SavePreferences(ctx, next); err != nil {
			e.log.WithError(err).Warn("saving preferences")
		}
	}
	e.prefs = next
	return e.run(ctx)
}

func (e *Engine) run(ctx context.Context) (Result, error) {
	start := e.now()

	doc, err := e.src.Page(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("reading page: %w", err)
	}

	table := e.rates.Table()
	var load *CachedLoadResult
	if e.memo != nil {
		load = LoadWithMemo(doc, e.ex, table, e.memo, e.workers, nil)
	} else {
		load = &CachedLoadResult{LoadResult: *Load(doc, e.ex, table, e.workers, nil)}
	}

	res := Result{
		RunID:  uuid.NewString(),
		At:     start,
		Report: Aggregate(load.Records, e.prefs, table),
		Prefs:  e.prefs,
		Rates: RateInfo{
			Source:    table.Source,
			FetchedAt: table.FetchedAt,
			Fallback:  table.Fallback,
			Status:    e.rates.Status(),
		},
		Table:      table,
		Candidates: load.Candidates,
		Truncated:  load.Truncated,
		Skipped:    load.Skipped,
		Failed:     load.Failed,
		CacheHits:  load.CacheHits,
	}
	res.Duration = e.now().Sub(start)

	fields := logrus.Fields{
		"run_id":   res.RunID,
		"records":  res.Summary.Count,
		"duration": res.Duration,
	}
	if res.Duration > e.slow {
		e.log.WithFields(fields).Warn("slow pipeline pass")
	} else {
		e.log.WithFields(fields).Debug("pipeline pass")
	}

	e.last = &res
	if e.onResult != nil {
		e.onResult(res)
	}
	return res, nil
}
