// Package cmd implements the finburn CLI commands.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/finburn/internal/config"
	"github.com/theirongolddev/finburn/internal/currency"
	"github.com/theirongolddev/finburn/internal/extract"
	"github.com/theirongolddev/finburn/internal/logging"
	"github.com/theirongolddev/finburn/internal/model"
	"github.com/theirongolddev/finburn/internal/pipeline"
	"github.com/theirongolddev/finburn/internal/source"
	"github.com/theirongolddev/finburn/internal/store"
)

// ratesMaxAge is how old a saved rate table may be before one-shot
// commands refresh it.
const ratesMaxAge = 6 * time.Hour

var (
	flagPage      string
	flagConfig    string
	flagLogLevel  string
	flagLogFormat string
	flagDBPath    string
	flagOffline   bool
	flagQuiet     bool
	flagNoMemo    bool
	flagCurrency  string
	flagSort      string
	flagExclFree  bool
	flagInclFree  bool
	flagTimeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "finburn",
	Short: "Server billing burn from a dashboard page",
	Long: "Read the server cards on a hosting dashboard page and total what they cost: " +
		"per month, in all, and what is left on current terms, in the currency of your choice.",
	SilenceUsage: true,
	RunE:         runSummary,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagPage, "page", "p", "", "Dashboard page: .html file, directory of saved pages, or URL (env "+config.EnvPage+")")
	pf.StringVar(&flagConfig, "config", "", "Config file (default "+config.ConfigPath()+")")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&flagLogFormat, "log-format", "", "Log format: text or json")
	pf.StringVar(&flagDBPath, "db", "", "State database path (default "+store.Path()+")")
	pf.BoolVar(&flagOffline, "offline", false, "Never fetch exchange rates")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	pf.BoolVar(&flagNoMemo, "no-memo", false, "Re-evaluate every card on each pass")
	pf.DurationVar(&flagTimeout, "timeout", 30*time.Second, "Timeout for reading the page and fetching rates")
}

// loadConfig resolves configuration: defaults, then the config file,
// then .env and the environment, then flags.
func loadConfig() (config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return config.Config{}, err
	}

	var (
		cfg config.Config
		err error
	)
	if flagConfig != "" {
		cfg, err = config.LoadFrom(flagConfig)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return cfg, err
	}
	config.ApplyEnv(&cfg)

	if flagPage != "" {
		cfg.General.Page = flagPage
	}
	if flagDBPath != "" {
		cfg.General.DBPath = flagDBPath
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	if flagLogFormat != "" {
		cfg.Log.Format = flagLogFormat
	}
	if flagOffline {
		cfg.Rates.Offline = true
	}
	return cfg, nil
}

// app bundles the collaborators every command shares.
type app struct {
	cfg    config.Config
	log    *logrus.Logger
	store  *store.Store
	book   *currency.Book
	live   *source.Live // nil when no page is configured
	engine *pipeline.Engine
}

func (a *app) Close() {
	if a.store != nil {
		_ = a.store.Close()
	}
}

// openApp wires config, logging, the state store, the rate book and the
// pipeline engine. A store that cannot be opened is logged and skipped:
// preferences then stay at their defaults for the run. Commands that
// never read the page pass requirePage=false.
func openApp(ctx context.Context, requirePage bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if requirePage && strings.TrimSpace(cfg.General.Page) == "" {
		return nil, fmt.Errorf("no dashboard page configured: pass --page, set %s, or run `finburn setup`", config.EnvPage)
	}

	log := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	a := &app{cfg: cfg, log: log}

	dbPath := cfg.General.DBPath
	if dbPath == "" {
		dbPath = store.Path()
	}
	st, err := store.Open(dbPath)
	if err != nil {
		logging.For(log, logging.ComponentStore).WithError(err).Warn("state store unavailable, preferences will not persist")
	} else {
		a.store = st
	}

	fallback, rejected := cfg.Rates.FallbackRates()
	if len(rejected) > 0 {
		logging.For(log, logging.ComponentCurrency).WithField("codes", rejected).Warn("ignoring invalid fallback rates")
	}

	bookOpts := []currency.Option{
		currency.WithProviders(cfg.Rates.ProviderList()),
		currency.WithFetcher(currency.NewHTTPFetcher(nil, cfg.Rates.Timeout())),
		currency.WithLogger(logging.For(log, logging.ComponentCurrency)),
	}
	if cfg.Rates.Offline {
		bookOpts = append(bookOpts, currency.WithProviders(nil))
	}
	if a.store != nil {
		bookOpts = append(bookOpts, currency.OnUpdate(func(t currency.Table) {
			if err := a.store.SaveRates(context.Background(), t); err != nil {
				logging.For(log, logging.ComponentStore).WithError(err).Warn("saving rates")
			}
		}))
	}
	a.book = currency.NewBook(currency.FallbackTable(fallback), bookOpts...)
	if a.store != nil {
		if t, ok, err := a.store.LoadRates(ctx); err != nil {
			logging.For(log, logging.ComponentStore).WithError(err).Warn("loading saved rates")
		} else if ok {
			a.book.Seed(t)
		}
	}

	var src pipeline.PageSource = source.Static{}
	if cfg.General.Page != "" {
		client := source.NewClient(config.GetCookie(cfg), flagTimeout)
		a.live = source.NewLive(source.NewLoader(client, log), cfg.General.Page)
		src = a.live
	}

	ex := extract.New(log)
	if cfg.Extract.CardSelector != "" {
		ex.CardSelector = cfg.Extract.CardSelector
	}
	if cfg.Extract.NameSelector != "" {
		ex.NameSelector = cfg.Extract.NameSelector
	}
	if cfg.Extract.MaxCards > 0 {
		ex.MaxCards = cfg.Extract.MaxCards
	}

	engOpts := []pipeline.EngineOption{
		pipeline.WithExtractor(ex),
		pipeline.WithEngineLogger(log),
		pipeline.WithWorkers(cfg.Extract.Workers),
	}
	if !flagNoMemo {
		engOpts = append(engOpts, pipeline.WithMemo(pipeline.NewMemo()))
	}
	if a.store != nil {
		engOpts = append(engOpts, pipeline.WithPreferenceStore(a.store))
	}
	a.engine = pipeline.NewEngine(src, a.book, engOpts...)
	a.engine.LoadPreferences(ctx)
	return a, nil
}

// ratesStale reports whether one-shot commands should refresh rates.
func (a *app) ratesStale() bool {
	if a.cfg.Rates.Offline {
		return false
	}
	t := a.book.Table()
	return t.Fallback || time.Since(t.FetchedAt) > ratesMaxAge
}

// runOnce reads the page and runs one pass, refreshing stale rates first.
func (a *app) runOnce(ctx context.Context) (pipeline.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, flagTimeout)
	defer cancel()

	if a.ratesStale() {
		progress("  Fetching exchange rates...")
		st := a.book.Refresh(ctx)
		if !st.OK {
			progress("  Exchange rates unavailable, using %s", a.book.Table().Source)
		}
	}
	progress("  Reading %s...", a.live.Location())
	return a.engine.RunPipeline(ctx)
}

// displayPrefs applies per-run flag overrides without persisting them.
func displayPrefs(p pipeline.Result) (model.Preferences, pipeline.Report, error) {
	prefs := p.Prefs
	if flagCurrency != "" {
		c, ok := currency.ParseCode(flagCurrency)
		if !ok {
			return prefs, pipeline.Report{}, fmt.Errorf("%w: %q", pipeline.ErrInvalidCurrency, flagCurrency)
		}
		prefs.Currency = c
	}
	if flagSort != "" {
		k := parseSortKey(flagSort)
		if !k.Valid() {
			return prefs, pipeline.Report{}, fmt.Errorf("%w: %q", pipeline.ErrInvalidSortKey, flagSort)
		}
		prefs.Sort = k
	}
	if flagExclFree {
		prefs.ExcludeFree = true
	}
	if flagInclFree {
		prefs.ExcludeFree = false
	}
	if prefs == p.Prefs {
		return prefs, p.Report, nil
	}
	records := make([]model.AssetRecord, len(p.Rows))
	for i, r := range p.Rows {
		records[i] = r.Record
	}
	return prefs, pipeline.Aggregate(records, prefs, p.Table), nil
}

func addDisplayFlags(c *cobra.Command) {
	c.Flags().StringVar(&flagCurrency, "currency", "", "Display currency for this run (CNY, USD, HKD, EUR, GBP, JPY)")
	c.Flags().StringVar(&flagSort, "sort", "", "Sort order for this run: "+sortKeyList())
	c.Flags().BoolVar(&flagExclFree, "exclude-free", false, "Leave free servers out of the totals")
	c.Flags().BoolVar(&flagInclFree, "include-free", false, "Count free servers in the totals")
	c.MarkFlagsMutuallyExclusive("exclude-free", "include-free")
}

func progress(format string, args ...any) {
	if flagQuiet {
		return
	}
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
