package currency

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// RefreshStatus describes the outcome of the latest refresh.
type RefreshStatus struct {
	At       time.Time
	Provider string
	OK       bool
	Errors   []string
}

// Book owns the current rate table and refreshes it from providers.
// Readers always see a complete table; refreshes swap it atomically.
type Book struct {
	current   atomic.Pointer[Table]
	providers []Provider
	fetcher   Fetcher
	log       *logrus.Entry
	onUpdate  func(Table)
	now       func() time.Time

	group singleflight.Group

	mu     sync.RWMutex
	status RefreshStatus
}

// Option configures a Book.
type Option func(*Book)

// WithProviders replaces the provider priority list.
func WithProviders(p []Provider) Option {
	return func(b *Book) {
		if len(p) > 0 {
			b.providers = p
		}
	}
}

// WithFetcher sets how provider payloads are retrieved.
func WithFetcher(f Fetcher) Option {
	return func(b *Book) { b.fetcher = f }
}

// WithLogger sets the log entry for provider failures.
func WithLogger(e *logrus.Entry) Option {
	return func(b *Book) { b.log = e }
}

// OnUpdate registers a hook run after each successful refresh,
// typically to persist the table.
func OnUpdate(fn func(Table)) Option {
	return func(b *Book) { b.onUpdate = fn }
}

// NewBook starts out serving fallback.
func NewBook(fallback Table, opts ...Option) *Book {
	b := &Book{
		providers: DefaultProviders,
		fetcher:   NewHTTPFetcher(nil, 0),
		log:       logrus.StandardLogger().WithField("component", "currency"),
		now:       time.Now,
	}
	for _, o := range opts {
		o(b)
	}
	b.current.Store(&fallback)
	return b
}

// Table returns the table currently in use.
func (b *Book) Table() Table {
	return *b.current.Load()
}

// Seed installs a previously persisted table without touching providers.
func (b *Book) Seed(t Table) {
	if t.Len() == 0 {
		return
	}
	b.current.Store(&t)
}

// Status returns the outcome of the latest refresh.
func (b *Book) Status() RefreshStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status
}

// Refresh tries each provider in priority order and installs the first
// usable rate set. When every provider fails the current table stays in
// place. Provider errors are logged and reported in the status only.
// Concurrent callers share one in-flight refresh.
func (b *Book) Refresh(ctx context.Context) RefreshStatus {
	v, _, _ := b.group.Do("refresh", func() (any, error) {
		return b.refresh(ctx), nil
	})
	return v.(RefreshStatus)
}

func (b *Book) refresh(ctx context.Context) RefreshStatus {
	st := RefreshStatus{At: b.now()}

	for _, p := range b.providers {
		if ctx.Err() != nil {
			st.Errors = append(st.Errors, ctx.Err().Error())
			break
		}
		rates, err := b.fetcher.FetchRates(ctx, p)
		if err != nil {
			b.log.WithError(err).WithField("provider", p.Name).Warn("rate provider failed")
			st.Errors = append(st.Errors, p.Name+": "+err.Error())
			continue
		}

		t := NewTable(rates, p.Name, st.At)
		b.current.Store(&t)
		st.OK = true
		st.Provider = p.Name

		if b.onUpdate != nil {
			b.onUpdate(t)
		}
		b.log.WithFields(logrus.Fields{"provider": p.Name, "codes": t.Len()}).Info("exchange rates updated")
		break
	}

	if !st.OK {
		b.log.Warn("all rate providers failed, keeping current table")
	}

	b.mu.Lock()
	b.status = st
	b.mu.Unlock()
	return st
}
