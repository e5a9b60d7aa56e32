package resync

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/theirongolddev/finburn/internal/logging"
)

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(1_700_000_000, 0)} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and runs every timer that came due.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

func TestDebouncerTrailingEdge(t *testing.T) {
	clk := newFakeClock()
	var calls int
	d := NewDebouncer(500*time.Millisecond, func() { calls++ }, clk)

	for i := 0; i < 5; i++ {
		d.Schedule()
		clk.Advance(100 * time.Millisecond)
	}
	if calls != 0 {
		t.Fatalf("calls = %d during burst, want 0", calls)
	}
	deadline, ok := d.Deadline()
	if !ok || !deadline.Equal(clk.Now().Add(400*time.Millisecond)) {
		t.Fatalf("deadline = %v,%v", deadline, ok)
	}

	clk.Advance(399 * time.Millisecond)
	if calls != 0 {
		t.Fatalf("fired early")
	}
	clk.Advance(time.Millisecond)
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if d.Pending() {
		t.Error("still pending after firing")
	}
}

func TestDebouncerCancelAndFlush(t *testing.T) {
	clk := newFakeClock()
	var calls int
	d := NewDebouncer(0, func() { calls++ }, clk)
	if d.Wait() != DefaultDebounce {
		t.Errorf("Wait = %v, want %v", d.Wait(), DefaultDebounce)
	}

	d.Schedule()
	if !d.Cancel() {
		t.Error("Cancel should report a pending call")
	}
	clk.Advance(time.Second)
	if calls != 0 {
		t.Errorf("canceled call ran")
	}
	if d.Cancel() {
		t.Error("Cancel on idle debouncer reported pending")
	}

	d.Schedule()
	if !d.Flush() || calls != 1 {
		t.Fatalf("Flush did not run the call, calls = %d", calls)
	}
	clk.Advance(time.Second)
	if calls != 1 {
		t.Errorf("flushed call ran again, calls = %d", calls)
	}
	if d.Flush() {
		t.Error("Flush on idle debouncer reported pending")
	}
}

func TestControllerGatesOnVisibility(t *testing.T) {
	clk := newFakeClock()
	var passes int
	c := NewController(func() { passes++ }, WithClock(clk), WithDebounce(500*time.Millisecond), WithLogger(logging.Discard()))

	if c.State() != Hidden {
		t.Fatal("controller should start hidden")
	}
	if c.Notify() {
		t.Error("Notify while hidden should not schedule")
	}
	clk.Advance(time.Second)
	if passes != 0 {
		t.Fatalf("pass ran while hidden")
	}

	if !c.Show() || passes != 1 {
		t.Fatalf("Show should run a pass immediately, passes = %d", passes)
	}
	if c.Show() || passes != 1 {
		t.Error("second Show should be a no-op")
	}

	for i := 0; i < 10; i++ {
		c.Notify()
		clk.Advance(50 * time.Millisecond)
	}
	clk.Advance(500 * time.Millisecond)
	if passes != 2 {
		t.Fatalf("burst should collapse to one pass, passes = %d", passes)
	}

	c.Notify()
	clk.Advance(200 * time.Millisecond)
	if !c.Hide() {
		t.Fatal("Hide should report a transition")
	}
	clk.Advance(time.Second)
	if passes != 2 {
		t.Errorf("hidden controller ran a pass, passes = %d", passes)
	}
	if c.Debouncer().Pending() {
		t.Error("Hide should cancel the pending pass")
	}
}

func TestControllerFireRechecksVisibility(t *testing.T) {
	clk := newFakeClock()
	var passes int
	c := NewController(func() { passes++ }, WithClock(clk))
	c.Show()
	c.Notify()

	// Flip state without going through Hide so the timer survives.
	c.mu.Lock()
	c.state = Hidden
	c.mu.Unlock()

	clk.Advance(time.Second)
	if passes != 1 {
		t.Errorf("passes = %d, want 1", passes)
	}
}

type pollFunc func(ctx context.Context) (*goquery.Document, error)

func (f pollFunc) Poll(ctx context.Context) (*goquery.Document, error) { return f(ctx) }

func TestObserverCheck(t *testing.T) {
	pages := []string{
		`<div class="server-list">a</div><footer>1</footer>`,
		`<div class="server-list">a</div><footer>2</footer>`,
		`<div class="server-list">b</div><footer>2</footer>`,
	}
	var i int
	var failNext bool
	src := pollFunc(func(context.Context) (*goquery.Document, error) {
		if failNext {
			failNext = false
			return nil, errors.New("offline")
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(pages[i]))
		if i < len(pages)-1 {
			i++
		}
		return doc, err
	})

	var notified int
	o := NewObserver(src, func() { notified++ }, ObserverConfig{Interval: time.Millisecond, Rate: 1e6, Log: logging.Discard()})
	ctx := context.Background()

	if changed, _ := o.Check(ctx); changed {
		t.Error("first poll should only set the baseline")
	}
	if changed, _ := o.Check(ctx); changed {
		t.Error("change outside the container should be ignored")
	}
	failNext = true
	if _, err := o.Check(ctx); err == nil {
		t.Error("expected poll error")
	}
	if changed, _ := o.Check(ctx); !changed {
		t.Error("container change not detected")
	}
	if notified != 1 {
		t.Errorf("notified = %d, want 1", notified)
	}
}

func TestObserverRunStopsOnCancel(t *testing.T) {
	var polls atomic.Int32
	src := pollFunc(func(context.Context) (*goquery.Document, error) {
		n := polls.Add(1)
		return goquery.NewDocumentFromReader(strings.NewReader(`<main>` + strings.Repeat("x", int(n)) + `</main>`))
	})
	var notified atomic.Int32
	o := NewObserver(src, func() { notified.Add(1) }, ObserverConfig{Interval: 5 * time.Millisecond, Rate: 1e6, Log: logging.Discard()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for notified.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("observer did not report changes")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
}
