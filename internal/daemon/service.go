// Package daemon provides the long-running live report service.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/theirongolddev/finburn/internal/currency"
	"github.com/theirongolddev/finburn/internal/logging"
	"github.com/theirongolddev/finburn/internal/pipeline"
	"github.com/theirongolddev/finburn/internal/resync"
)

// Config controls the daemon runtime behavior.
type Config struct {
	Page         string
	Addr         string
	EventsBuffer int
	PollInterval time.Duration
	// PollRate caps page fetches; zero means one per PollInterval.
	PollRate     rate.Limit
	Debounce     time.Duration
	RateSchedule string
	PassTimeout  time.Duration
}

// Deps are the collaborators the service drives.
type Deps struct {
	Engine *pipeline.Engine
	// Poller feeds the change observer; nil disables observation.
	Poller resync.Poller
	// Rates is refreshed on RateSchedule; nil disables scheduled refresh.
	Rates  RateRefresher
	Logger *logrus.Logger
	Clock  resync.Clock
}

// RateRefresher refreshes exchange rates. *currency.Book satisfies it.
type RateRefresher interface {
	Refresh(ctx context.Context) currency.RefreshStatus
	Status() currency.RefreshStatus
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time              `json:"started_at"`
	LastPassAt      time.Time              `json:"last_pass_at"`
	PollIntervalSec int                    `json:"poll_interval_sec"`
	DebounceMs      int64                  `json:"debounce_ms"`
	PassCount       int64                  `json:"pass_count"`
	PageChanges     int64                  `json:"page_changes"`
	Page            string                 `json:"page"`
	Visibility      string                 `json:"visibility"`
	Prefs           Prefs                  `json:"prefs"`
	Summary         Snapshot               `json:"summary"`
	Rates           currency.RefreshStatus `json:"rates"`
	LastError       string                 `json:"last_error,omitempty"`
	EventCount      int                    `json:"event_count"`
	SubscriberCount int                    `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg      Config
	engine   *pipeline.Engine
	rates    RateRefresher
	ctrl     *resync.Controller
	observer *resync.Observer
	metrics  *metrics
	log      *logrus.Entry

	ctxMu sync.RWMutex
	ctx   context.Context

	// visMu orders visibility decisions with the Show/Hide they lead to.
	visMu sync.Mutex

	mu          sync.RWMutex
	startedAt   time.Time
	lastPassAt  time.Time
	passCount   int64
	pageChanges int64
	lastError   string
	hasSnapshot bool
	snapshot    Snapshot
	nextEventID int64
	events      []Event
	pinned      bool

	nextSubID int
	subs      map[int]chan Event
}

// New returns a new daemon service with the provided config.
func New(cfg Config, deps Deps) *Service {
	if cfg.PollInterval < 500*time.Millisecond {
		cfg.PollInterval = resync.DefaultPollInterval
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8788"
	}
	if cfg.PassTimeout <= 0 {
		cfg.PassTimeout = 30 * time.Second
	}

	s := &Service{
		cfg:       cfg,
		engine:    deps.Engine,
		rates:     deps.Rates,
		metrics:   newMetrics(),
		log:       logging.For(deps.Logger, logging.ComponentDaemon),
		ctx:       context.Background(),
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
	s.ctrl = resync.NewController(s.pass,
		resync.WithDebounce(cfg.Debounce),
		resync.WithClock(deps.Clock),
		resync.WithLogger(deps.Logger),
	)
	if deps.Poller != nil {
		s.observer = resync.NewObserver(deps.Poller, s.pageChanged, resync.ObserverConfig{
			Interval: cfg.PollInterval,
			Rate:     cfg.PollRate,
			Log:      deps.Logger,
		})
	}
	return s
}

// Controller exposes the visibility controller.
func (s *Service) Controller() *resync.Controller { return s.ctrl }

// Run starts HTTP endpoints, change observation and scheduled rate
// refresh until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	s.ctxMu.Lock()
	s.ctx = ctx
	s.ctxMu.Unlock()

	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var sched *cron.Cron
	if s.rates != nil && s.cfg.RateSchedule != "" {
		sched = cron.New()
		if _, err := sched.AddFunc(s.cfg.RateSchedule, func() { s.refreshRates(ctx) }); err != nil {
			return fmt.Errorf("rate schedule %q: %w", s.cfg.RateSchedule, err)
		}
		sched.Start()
		go s.refreshRates(ctx)
	}

	if s.observer != nil {
		go func() {
			if err := s.observer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.log.WithError(err).Warn("observer stopped")
			}
		}()
	}

	s.log.WithFields(logrus.Fields{"addr": s.cfg.Addr, "page": s.cfg.Page}).Info("daemon listening")

	select {
	case <-ctx.Done():
		s.ctrl.Hide()
		if sched != nil {
			<-sched.Stop().Done()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if sched != nil {
			sched.Stop()
		}
		return fmt.Errorf("daemon http server: %w", err)
	}
}

func (s *Service) baseCtx() context.Context {
	s.ctxMu.RLock()
	defer s.ctxMu.RUnlock()
	return s.ctx
}

// pass is the controller's resync action.
func (s *Service) pass() {
	ctx, cancel := context.WithTimeout(s.baseCtx(), s.cfg.PassTimeout)
	defer cancel()
	res, err := s.engine.RunPipeline(ctx)
	s.apply(res, err, EventReportDelta)
}

func (s *Service) pageChanged() {
	s.mu.Lock()
	s.pageChanges++
	s.mu.Unlock()
	s.metrics.pageChanges.Inc()
	s.ctrl.Notify()
}

func (s *Service) refreshRates(ctx context.Context) {
	st := s.rates.Refresh(ctx)
	if st.OK {
		s.metrics.rateRefresh.WithLabelValues("ok").Inc()
	} else {
		s.metrics.rateRefresh.WithLabelValues("failed").Inc()
	}
	if st.OK && s.ctrl.State() == resync.Visible {
		s.pass()
	}
}

// apply records a pass outcome and publishes an event when the report
// changed. kind is the event type used for a non-initial change.
func (s *Service) apply(res pipeline.Result, err error, kind string) {
	now := time.Now()
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.lastPassAt = now
		s.mu.Unlock()
		s.metrics.passErrors.Inc()
		s.log.WithError(err).Warn("pipeline pass failed")
		return
	}
	s.metrics.observePass(res)

	snap := snapshotFromResult(res)

	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	prev := s.snapshot
	prevExists := s.hasSnapshot

	s.hasSnapshot = true
	s.snapshot = snap
	s.lastPassAt = now
	s.passCount++
	s.lastError = ""

	if !prevExists {
		s.nextEventID++
		ev = Event{ID: s.nextEventID, RunID: res.RunID, Type: EventSnapshot, Timestamp: now, Snapshot: snap}
		publish = true
	} else {
		delta := diffSnapshots(prev, snap)
		if !delta.isZero() || kind == EventPrefs || prev.Currency != snap.Currency {
			s.nextEventID++
			ev = Event{ID: s.nextEventID, RunID: res.RunID, Type: kind, Timestamp: now, Snapshot: snap, Delta: delta}
			publish = true
		}
	}
	s.mu.Unlock()

	if publish {
		s.publishEvent(ev)
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

// syncVisibility shows the surface while it is pinned or has stream
// subscribers, and hides it otherwise.
func (s *Service) syncVisibility() {
	s.visMu.Lock()
	defer s.visMu.Unlock()

	s.mu.RLock()
	want := s.pinned || len(s.subs) > 0
	s.mu.RUnlock()

	if want {
		s.ctrl.Show()
		s.metrics.visible.Set(1)
	} else {
		s.ctrl.Hide()
		s.metrics.visible.Set(0)
	}
}

// Pin keeps the report visible regardless of stream clients, as
// POST /v1/show does.
func (s *Service) Pin() { s.setPinned(true) }

func (s *Service) setPinned(on bool) {
	s.mu.Lock()
	s.pinned = on
	s.mu.Unlock()
	s.syncVisibility()
}

func (s *Service) snapshotStatus() Status {
	var rates currency.RefreshStatus
	if s.rates != nil {
		rates = s.rates.Status()
	}
	prefs := prefsView(s.engine.Preferences())

	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastPassAt:      s.lastPassAt,
		PollIntervalSec: int(s.cfg.PollInterval.Seconds()),
		DebounceMs:      s.ctrl.Debouncer().Wait().Milliseconds(),
		PassCount:       s.passCount,
		PageChanges:     s.pageChanges,
		Page:            s.cfg.Page,
		Visibility:      s.ctrl.State().String(),
		Prefs:           prefs,
		Summary:         s.snapshot,
		Rates:           rates,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	n := len(s.subs)
	s.mu.Unlock()

	s.metrics.subscribers.Set(float64(n))
	s.syncVisibility()
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	delete(s.subs, id)
	n := len(s.subs)
	s.mu.Unlock()

	s.metrics.subscribers.Set(float64(n))
	s.syncVisibility()
}
