package resync

import (
	"sync"
	"time"
)

// DefaultDebounce is the trailing-edge window for page changes.
const DefaultDebounce = 500 * time.Millisecond

// Debouncer coalesces a burst of Schedule calls into one call of fn,
// made once Schedule has not been called for the wait window. It owns
// its timer and deadline.
type Debouncer struct {
	clock Clock
	wait  time.Duration
	fn    func()

	mu       sync.Mutex
	timer    Timer
	deadline time.Time
	gen      uint64
}

// NewDebouncer returns a debouncer calling fn. A nil clock means the wall
// clock; a non-positive wait means DefaultDebounce.
func NewDebouncer(wait time.Duration, fn func(), clock Clock) *Debouncer {
	if wait <= 0 {
		wait = DefaultDebounce
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &Debouncer{clock: clock, wait: wait, fn: fn}
}

// Wait is the debounce window.
func (d *Debouncer) Wait() time.Duration { return d.wait }

// Schedule (re)starts the window. Any pending call is pushed back.
func (d *Debouncer) Schedule() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.deadline = d.clock.Now().Add(d.wait)
	d.timer = d.clock.AfterFunc(d.wait, func() { d.fire(gen) })
}

// Cancel drops the pending call. It reports whether one was pending.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clear()
}

// Flush runs the pending call now instead of at the deadline. It reports
// whether one was pending.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	pending := d.clear()
	d.mu.Unlock()

	if pending {
		d.fn()
	}
	return pending
}

// Pending reports whether a call is waiting for its deadline.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Deadline is when the pending call will run. ok is false when idle.
func (d *Debouncer) Deadline() (time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer == nil {
		return time.Time{}, false
	}
	return d.deadline, true
}

// clear stops the timer. d.mu must be held.
func (d *Debouncer) clear() bool {
	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	d.deadline = time.Time{}
	d.gen++
	return true
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	// A timer that was stopped too late to prevent its callback still
	// carries the old generation.
	if gen != d.gen || d.timer == nil {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.deadline = time.Time{}
	d.mu.Unlock()

	d.fn()
}
