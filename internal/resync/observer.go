package resync

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/theirongolddev/finburn/internal/extract"
	"github.com/theirongolddev/finburn/internal/logging"
)

// DefaultPollInterval is how often the observer looks at the page.
const DefaultPollInterval = 2 * time.Second

// Poller fetches a fresh snapshot of the page.
type Poller interface {
	Poll(ctx context.Context) (*goquery.Document, error)
}

// Observer watches the observed container of a page and calls notify
// whenever its markup changes. The first poll only sets the baseline.
type Observer struct {
	src      Poller
	notify   func()
	interval time.Duration
	limiter  *rate.Limiter
	log      *logrus.Entry

	seen bool
	last uint64
}

// ObserverConfig tunes polling.
type ObserverConfig struct {
	Interval time.Duration
	// Rate and Burst cap page fetches; zero Rate means one per Interval.
	Rate  rate.Limit
	Burst int
	Log   *logrus.Logger
}

// NewObserver returns an observer over src.
func NewObserver(src Poller, notify func(), cfg ObserverConfig) *Observer {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.Rate <= 0 {
		cfg.Rate = rate.Every(cfg.Interval)
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	return &Observer{
		src:      src,
		notify:   notify,
		interval: cfg.Interval,
		limiter:  rate.NewLimiter(cfg.Rate, cfg.Burst),
		log:      logging.For(cfg.Log, logging.ComponentResync),
	}
}

// Check polls once and reports whether the observed container changed.
// Fetch errors leave the baseline untouched.
func (o *Observer) Check(ctx context.Context) (bool, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return false, err
	}
	doc, err := o.src.Poll(ctx)
	if err != nil {
		return false, err
	}

	fp := extract.Fingerprint(extract.ObservedContainer(doc))
	if !o.seen {
		o.seen, o.last = true, fp
		return false, nil
	}
	if fp == o.last {
		return false, nil
	}
	o.last = fp
	if o.notify != nil {
		o.notify()
	}
	return true, nil
}

// Run polls until ctx is canceled.
func (o *Observer) Run(ctx context.Context) error {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	if _, err := o.Check(ctx); err != nil && ctx.Err() == nil {
		o.log.WithError(err).Warn("polling page")
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			changed, err := o.Check(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				o.log.WithError(err).Warn("polling page")
				continue
			}
			if changed {
				o.log.Debug("page changed")
			}
		}
	}
}
