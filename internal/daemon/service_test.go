package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/finburn/internal/currency"
	"github.com/theirongolddev/finburn/internal/logging"
	"github.com/theirongolddev/finburn/internal/pipeline"
	"github.com/theirongolddev/finburn/internal/resync"
	"github.com/theirongolddev/finburn/internal/source"
)

const dashboard = `<div class="server-list">` +
	`<div class="bg-card"><p class="break-all">A</p><p>价格: ￥60/年</p><p>剩余天数: 180</p></div>` +
	`<div class="bg-card"><p class="break-all">B</p><p>价格: 免费</p><p>剩余天数: 永久</p></div>` +
	`</div>`

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

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) resync.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

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

type stubRates struct {
	table currency.Table
	calls int
}

func (r *stubRates) Table() currency.Table { return r.table }
func (r *stubRates) Status() currency.RefreshStatus {
	return currency.RefreshStatus{Provider: "stub", OK: true}
}
func (r *stubRates) Refresh(context.Context) currency.RefreshStatus {
	r.calls++
	return r.Status()
}

func newTestService(t *testing.T) (*Service, *fakeClock, *stubRates) {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(dashboard))
	require.NoError(t, err)

	rates := &stubRates{table: currency.FallbackTable(nil)}
	logger := logging.Discard()
	engine := pipeline.NewEngine(source.Static{Doc: doc}, rates, pipeline.WithEngineLogger(logger))
	clk := &fakeClock{now: time.Unix(1_700_000_000, 0)}

	s := New(Config{Page: "test.html", EventsBuffer: 10, Debounce: 500 * time.Millisecond}, Deps{
		Engine: engine,
		Rates:  rates,
		Logger: logger,
		Clock:  clk,
	})
	return s, clk, rates
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestDiffSnapshots(t *testing.T) {
	prev := Snapshot{Count: 3, TotalCost: 100, MonthlyCost: 20, RemainingValue: 50}
	curr := Snapshot{Count: 4, TotalCost: 130.5, MonthlyCost: 25, RemainingValue: 40}

	delta := diffSnapshots(prev, curr)
	assert.Equal(t, 1, delta.Count)
	assert.InDelta(t, 30.5, delta.TotalCost, 1e-9)
	assert.InDelta(t, 5, delta.MonthlyCost, 1e-9)
	assert.InDelta(t, -10, delta.RemainingValue, 1e-9)
	assert.False(t, delta.isZero())
	assert.True(t, Delta{}.isZero())
}

func TestPublishEventRingBuffer(t *testing.T) {
	s, _, _ := newTestService(t)
	s.cfg.EventsBuffer = 2

	s.publishEvent(Event{ID: 1})
	s.publishEvent(Event{ID: 2})
	s.publishEvent(Event{ID: 3})

	s.mu.RLock()
	defer s.mu.RUnlock()
	require.Len(t, s.events, 2)
	assert.Equal(t, int64(2), s.events[0].ID)
	assert.Equal(t, int64(3), s.events[1].ID)
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestService(t)
	rec := do(t, s.Handler(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())
}

func TestRecordsRunsAPassWhenNoneYet(t *testing.T) {
	s, _, _ := newTestService(t)
	rec := do(t, s.Handler(), http.MethodGet, "/v1/records", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body Records
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Rows, 2)
	assert.Equal(t, "A", body.Rows[0].Name)
	assert.True(t, body.Rows[1].RemainingDays.IsPermanent())
	assert.Equal(t, 2, body.Summary.Count)
	assert.InDelta(t, 60, body.Summary.TotalCost, 1e-9)
	assert.NotEmpty(t, body.RunID)
}

func TestShowHide(t *testing.T) {
	s, _, _ := newTestService(t)
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/v1/show", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "visible", st.Visibility)
	assert.Equal(t, int64(1), st.PassCount)
	assert.Equal(t, 2, st.Summary.Count)
	assert.Equal(t, 1, st.EventCount)

	rec = do(t, h, http.MethodPost, "/v1/hide", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "hidden", st.Visibility)
}

func TestPinOutlivesStreamClients(t *testing.T) {
	s, _, _ := newTestService(t)

	id := s.addSubscriber(make(chan Event, 1))
	assert.Equal(t, "visible", s.snapshotStatus().Visibility)
	s.Pin()
	s.removeSubscriber(id)
	assert.Equal(t, "visible", s.snapshotStatus().Visibility)

	s.setPinned(false)
	assert.Equal(t, "hidden", s.snapshotStatus().Visibility)
}

func TestVisibilityFollowsSubscribersUnderChurn(t *testing.T) {
	s, _, _ := newTestService(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				s.removeSubscriber(s.addSubscriber(make(chan Event, 1)))
			}
		}()
	}
	wg.Wait()

	st := s.snapshotStatus()
	assert.Equal(t, 0, st.SubscriberCount)
	assert.Equal(t, "hidden", st.Visibility)
}

func TestPageChangesGatedOnVisibility(t *testing.T) {
	s, clk, _ := newTestService(t)

	s.pageChanged()
	clk.Advance(time.Second)
	assert.Equal(t, int64(0), s.snapshotStatus().PassCount, "hidden surface must not resync")

	s.setPinned(true)
	require.Equal(t, int64(1), s.snapshotStatus().PassCount)

	for i := 0; i < 5; i++ {
		s.pageChanged()
		clk.Advance(100 * time.Millisecond)
	}
	assert.Equal(t, int64(1), s.snapshotStatus().PassCount)
	clk.Advance(500 * time.Millisecond)
	assert.Equal(t, int64(2), s.snapshotStatus().PassCount)
	assert.Equal(t, int64(6), s.snapshotStatus().PageChanges)

	s.pageChanged()
	s.setPinned(false)
	clk.Advance(time.Second)
	assert.Equal(t, int64(2), s.snapshotStatus().PassCount)
}

func TestPrefs(t *testing.T) {
	s, _, _ := newTestService(t)
	h := s.Handler()

	rec := do(t, h, http.MethodPut, "/v1/prefs", `{"currency":"usd","sort":"price_desc","exclude_free":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var st Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, currency.USD, st.Prefs.Currency)
	assert.Equal(t, "price_desc", string(st.Prefs.Sort))
	assert.True(t, st.Prefs.ExcludeFree)
	assert.Equal(t, currency.USD, st.Summary.Currency)
	assert.InDelta(t, 60*0.14, st.Summary.TotalCost, 1e-9)

	rec = do(t, h, http.MethodPut, "/v1/prefs", `{"sort":"sideways"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodPut, "/v1/prefs", `{"currency":"XYZ","sort":"weight_asc"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "price_desc", string(s.engine.Preferences().Sort), "a rejected update must not apply partially")
	rec = do(t, h, http.MethodPut, "/v1/prefs", `{"colour":"red"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefresh(t *testing.T) {
	s, _, rates := newTestService(t)
	rec := do(t, s.Handler(), http.MethodPost, "/v1/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, rates.calls)

	var st Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "stub", st.Rates.Provider)
	assert.Equal(t, int64(1), st.PassCount)
}

func TestMetrics(t *testing.T) {
	s, _, _ := newTestService(t)
	h := s.Handler()
	do(t, h, http.MethodPost, "/v1/show", "")

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "finburn_passes_total 1")
	assert.Contains(t, body, `finburn_cost{currency="CNY",kind="total"} 60`)
	assert.Contains(t, body, "finburn_visible 1")
}

func TestStreamMakesSurfaceVisible(t *testing.T) {
	s, _, _ := newTestService(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	reader := bufio.NewReader(resp.Body)
	var data string
	for data == "" {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimPrefix(strings.TrimSpace(line), "data: ")
		}
	}
	var ev Event
	require.NoError(t, json.Unmarshal([]byte(data), &ev))
	assert.Equal(t, EventSnapshot, ev.Type)
	assert.Equal(t, 2, ev.Snapshot.Count)
	assert.Equal(t, resync.Visible, s.Controller().State())

	cancel()
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	assert.Eventually(t, func() bool {
		return s.Controller().State() == resync.Hidden
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRecordsSanitizesNaN(t *testing.T) {
	assert.Equal(t, 0.0, jsonNum(math.NaN()))
	assert.Equal(t, 0.0, jsonNum(math.Inf(1)))
	assert.Equal(t, 1.5, jsonNum(1.5))
}
