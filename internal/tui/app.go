// Package tui provides the interactive report panel for finburn.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/theirongolddev/finburn/internal/currency"
	"github.com/theirongolddev/finburn/internal/model"
	"github.com/theirongolddev/finburn/internal/pipeline"
	"github.com/theirongolddev/finburn/internal/resync"
	"github.com/theirongolddev/finburn/internal/tui/components"
	"github.com/theirongolddev/finburn/internal/tui/theme"
)

// ReportMsg carries the outcome of a pipeline pass.
type ReportMsg struct {
	Result pipeline.Result
	Err    error

	// live marks passes delivered through the resync subscription, which
	// must be re-armed after each message.
	live bool
}

// Options wires the panel to its collaborators.
type Options struct {
	Engine *pipeline.Engine
	// Poller enables change observation; nil for a static page.
	Poller       resync.Poller
	Page         string
	Debounce     time.Duration
	PollInterval time.Duration
	PollRate     rate.Limit
	Logger       *logrus.Logger
}

// runtime is shared by every copy of App. Bubble Tea passes the model
// by value, so anything goroutines touch lives here.
type runtime struct {
	ctx      context.Context
	cancel   context.CancelFunc
	ctrl     *resync.Controller
	observer *resync.Observer
	sub      chan tea.Msg
}

// App is the root Bubble Tea model.
type App struct {
	engine *pipeline.Engine
	page   string
	rt     *runtime

	// Data
	res     pipeline.Result
	loaded  bool
	lastErr error
	busy    bool

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool
	cursor    int
	offset    int

	// Name filter
	searching bool
	search    textinput.Model
	query     string

	spinner spinner.Model
}

const (
	minTerminalWidth = 60
	maxContentWidth  = 160
	minContentHeight = 5
)

// NewApp creates the panel model. The panel starts visible; call Close
// (or quit) to stop background work.
func NewApp(opts Options) App {
	ctx, cancel := context.WithCancel(context.Background())
	rt := &runtime{
		ctx:    ctx,
		cancel: cancel,
		sub:    make(chan tea.Msg, 4),
	}

	eng := opts.Engine
	rt.ctrl = resync.NewController(func() {
		go func() {
			res, err := eng.RunPipeline(rt.ctx)
			select {
			case rt.sub <- ReportMsg{Result: res, Err: err, live: true}:
			case <-rt.ctx.Done():
			}
		}()
	},
		resync.WithDebounce(opts.Debounce),
		resync.WithLogger(opts.Logger),
	)

	if opts.Poller != nil {
		rt.observer = resync.NewObserver(opts.Poller, func() { rt.ctrl.Notify() }, resync.ObserverConfig{
			Interval: opts.PollInterval,
			Rate:     opts.PollRate,
			Log:      opts.Logger,
		})
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	return App{
		engine:  eng,
		page:    opts.Page,
		rt:      rt,
		search:  newSearchInput(),
		spinner: sp,
	}
}

// Controller exposes the visibility controller driving resync.
func (a App) Controller() *resync.Controller { return a.rt.ctrl }

// Close hides the panel and stops observation.
func (a App) Close() {
	a.rt.ctrl.Hide()
	a.rt.cancel()
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnableMouseCellMotion,
		a.spinner.Tick,
		waitForPass(a.rt.sub),
		showCmd(a.rt.ctrl),
	}
	if a.rt.observer != nil {
		cmds = append(cmds, observeCmd(a.rt.ctx, a.rt.observer))
	}
	return tea.Batch(cmds...)
}

func (a App) visible() bool { return a.rt.ctrl.State() == resync.Visible }

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case ReportMsg:
		var next tea.Cmd
		if msg.live {
			next = waitForPass(a.rt.sub)
		}
		a.busy = false
		if msg.Err != nil {
			a.lastErr = msg.Err
			return a, next
		}
		a.lastErr = nil
		a.res = msg.Result
		a.loaded = true
		a.clampCursor()
		return a, next

	case spinner.TickMsg:
		if !a.loaded {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil

	case tea.MouseMsg:
		if !a.loaded || !a.visible() || a.showHelp {
			return a, nil
		}
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			a.moveCursor(-1)
		case tea.MouseButtonWheelDown:
			a.moveCursor(1)
		case tea.MouseButtonLeft:
			if msg.Action == tea.MouseActionPress && msg.Y == 0 {
				if tab := a.tabAtX(msg.X); tab >= 0 {
					a.activeTab = tab
				}
			}
		}
		return a, nil

	case tea.KeyMsg:
		return a.updateKey(msg)
	}

	if a.searching {
		var cmd tea.Cmd
		a.search, cmd = a.search.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		a.Close()
		return a, tea.Quit
	}

	if a.searching {
		return a.updateSearch(msg)
	}

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	switch key {
	case "q":
		a.Close()
		return a, tea.Quit
	case "p", " ":
		if a.visible() {
			a.rt.ctrl.Hide()
			return a, nil
		}
		a.busy = true
		return a, showCmd(a.rt.ctrl)
	}

	// While hidden the panel shows nothing live, so only the keys above apply.
	if !a.visible() || a.busy {
		return a, nil
	}

	prefs := a.engine.Preferences()
	switch key {
	case "c":
		next := nextCurrency(prefs.Currency, 1)
		return a.runPrefs(func(ctx context.Context) (pipeline.Result, error) {
			return a.engine.SetDisplayCurrency(ctx, next)
		})
	case "C":
		next := nextCurrency(prefs.Currency, -1)
		return a.runPrefs(func(ctx context.Context) (pipeline.Result, error) {
			return a.engine.SetDisplayCurrency(ctx, next)
		})
	case "s":
		next := nextSortKey(prefs.Sort)
		return a.runPrefs(func(ctx context.Context) (pipeline.Result, error) {
			return a.engine.SetSortKey(ctx, next)
		})
	case "f":
		on := !prefs.ExcludeFree
		return a.runPrefs(func(ctx context.Context) (pipeline.Result, error) {
			return a.engine.SetExcludeFree(ctx, on)
		})
	case "r":
		return a.runPrefs(a.engine.Refresh)
	case "/":
		a.searching = true
		a.search = newSearchInput()
		a.search.SetValue(a.query)
		a.search.Focus()
		return a, textinput.Blink
	case "esc":
		a.query = ""
		a.cursor, a.offset = 0, 0
		return a, nil
	case "j", "down":
		a.moveCursor(1)
	case "k", "up":
		a.moveCursor(-1)
	case "g", "home":
		a.cursor, a.offset = 0, 0
	case "G", "end":
		a.cursor = len(a.visibleRows()) - 1
		a.clampCursor()
	case "left":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
	case "right", "tab":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
	default:
		if idx := components.TabIdxByKey(key); idx >= 0 {
			a.activeTab = idx
		}
	}
	return a, nil
}

func (a App) runPrefs(fn func(context.Context) (pipeline.Result, error)) (tea.Model, tea.Cmd) {
	a.busy = true
	ctx := a.rt.ctx
	return a, func() tea.Msg {
		res, err := fn(ctx)
		return ReportMsg{Result: res, Err: err}
	}
}

func (a App) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		a.query = strings.TrimSpace(a.search.Value())
		a.searching = false
		a.cursor, a.offset = 0, 0
		return a, nil
	case "esc":
		a.searching = false
		return a, nil
	}
	var cmd tea.Cmd
	a.search, cmd = a.search.Update(msg)
	return a, cmd
}

func newSearchInput() textinput.Model {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "filter by name"
	ti.CharLimit = 64
	ti.Width = 30
	return ti
}

// visibleRows applies the name filter to the current report.
func (a App) visibleRows() []model.Row {
	if a.query == "" {
		return a.res.Rows
	}
	q := strings.ToLower(a.query)
	var out []model.Row
	for _, r := range a.res.Rows {
		if strings.Contains(strings.ToLower(r.Record.Name), q) {
			out = append(out, r)
		}
	}
	return out
}

func (a *App) moveCursor(delta int) {
	a.cursor += delta
	a.clampCursor()
}

func (a *App) clampCursor() {
	n := len(a.visibleRows())
	if a.cursor >= n {
		a.cursor = n - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
	if a.offset > a.cursor {
		a.offset = a.cursor
	}
}

func nextCurrency(c currency.Code, step int) currency.Code {
	codes := currency.DisplayCodes
	for i, code := range codes {
		if code == c {
			return codes[(i+step+len(codes))%len(codes)]
		}
	}
	return codes[0]
}

func nextSortKey(k model.SortKey) model.SortKey {
	for i, key := range model.SortKeys {
		if key == k {
			return model.SortKeys[(i+1)%len(model.SortKeys)]
		}
	}
	return model.SortKeys[0]
}

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes follow the widths RenderTabBar uses.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		w := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+w {
			return i
		}
		pos += w + 1
	}
	return -1
}

// ─── Commands ───────────────────────────────────────────────────

func showCmd(ctrl *resync.Controller) tea.Cmd {
	return func() tea.Msg {
		ctrl.Show()
		return nil
	}
}

// waitForPass blocks until the next resync pass is delivered.
func waitForPass(sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-sub
	}
}

// observeCmd runs the change observer until the panel closes.
func observeCmd(ctx context.Context, o *resync.Observer) tea.Cmd {
	return func() tea.Msg {
		_ = o.Run(ctx)
		return nil
	}
}

// ─── Layout helpers ─────────────────────────────────────────────

func (a App) contentWidth() int {
	cw := a.width
	if cw > maxContentWidth {
		cw = maxContentWidth
	}
	return cw
}

func truncStr(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= limit {
		return s
	}
	var b strings.Builder
	w := 0
	for _, r := range s {
		rw := lipgloss.Width(string(r))
		if w+rw > limit-1 {
			break
		}
		b.WriteRune(r)
		w += rw
	}
	return b.String() + "…"
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg))
	}
	return strings.Join(lines, "\n")
}

func since(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("15:04:05")
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
