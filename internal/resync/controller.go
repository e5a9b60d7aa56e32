package resync

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/finburn/internal/logging"
)

// State is the visibility of the report surface.
type State int

const (
	Hidden State = iota
	Visible
)

func (s State) String() string {
	if s == Visible {
		return "visible"
	}
	return "hidden"
}

// Controller gates resync passes on visibility. Page changes while the
// surface is hidden are ignored; showing the surface runs a pass at once.
type Controller struct {
	pass func()
	deb  *Debouncer
	log  *logrus.Entry

	mu    sync.Mutex
	state State
}

// ControllerOption configures a Controller.
type ControllerOption func(*controllerConfig)

type controllerConfig struct {
	wait  time.Duration
	clock Clock
	log   *logrus.Logger
}

// WithDebounce sets the debounce window.
func WithDebounce(d time.Duration) ControllerOption {
	return func(c *controllerConfig) { c.wait = d }
}

// WithClock injects a clock.
func WithClock(clk Clock) ControllerOption {
	return func(c *controllerConfig) { c.clock = clk }
}

// WithLogger sets the logger.
func WithLogger(l *logrus.Logger) ControllerOption {
	return func(c *controllerConfig) { c.log = l }
}

// NewController returns a hidden controller that calls pass for each
// resync.
func NewController(pass func(), opts ...ControllerOption) *Controller {
	var cfg controllerConfig
	for _, o := range opts {
		o(&cfg)
	}
	c := &Controller{
		pass: pass,
		log:  logging.For(cfg.log, logging.ComponentResync),
	}
	c.deb = NewDebouncer(cfg.wait, c.fire, cfg.clock)
	return c
}

// State returns the current visibility.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Debouncer exposes the underlying debouncer, mainly for inspection.
func (c *Controller) Debouncer() *Debouncer { return c.deb }

// Show makes the surface visible and runs a pass immediately. Showing an
// already visible surface does nothing and returns false.
func (c *Controller) Show() bool {
	c.mu.Lock()
	if c.state == Visible {
		c.mu.Unlock()
		return false
	}
	c.state = Visible
	c.mu.Unlock()

	c.log.Debug("surface shown")
	c.deb.Cancel()
	c.pass()
	return true
}

// Hide makes the surface hidden and drops any pending pass.
func (c *Controller) Hide() bool {
	c.mu.Lock()
	if c.state == Hidden {
		c.mu.Unlock()
		return false
	}
	c.state = Hidden
	c.mu.Unlock()

	if c.deb.Cancel() {
		c.log.Debug("surface hidden, pending resync dropped")
	}
	return true
}

// Notify reports a page change. It schedules a debounced pass when the
// surface is visible and reports whether it did.
func (c *Controller) Notify() bool {
	c.mu.Lock()
	visible := c.state == Visible
	c.mu.Unlock()
	if !visible {
		return false
	}
	c.deb.Schedule()
	return true
}

func (c *Controller) fire() {
	if c.State() != Visible {
		return
	}
	c.pass()
}
