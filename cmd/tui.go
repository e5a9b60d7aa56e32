package cmd

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/theirongolddev/finburn/internal/config"
	"github.com/theirongolddev/finburn/internal/tui"
	"github.com/theirongolddev/finburn/internal/tui/theme"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	Long: "The dashboard resyncs with the page while the panel is shown. " +
		"Press p to hide it; a hidden panel keeps its last totals and stops watching.",
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	theme.SetActive(cfg.Appearance.Theme)

	// Force TrueColor profile so all background styling produces ANSI codes
	// Without this, lipgloss may default to Ascii profile (no colors)
	lipgloss.SetColorProfile(termenv.TrueColor)

	if cfg.General.Page == "" && !config.Exists() {
		if err := runSetupForm(cmd, cfg); err != nil {
			return err
		}
	}

	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()
	theme.SetActive(a.cfg.Appearance.Theme)

	live := a.cfg.Live
	var pollRate rate.Limit
	if live.PollsPerMinute > 0 {
		pollRate = rate.Limit(live.PollsPerMinute / 60)
	}

	app := tui.NewApp(tui.Options{
		Engine:       a.engine,
		Poller:       a.live,
		Page:         a.cfg.General.Page,
		Debounce:     live.Debounce(),
		PollInterval: live.PollInterval(),
		PollRate:     pollRate,
		Logger:       a.log,
	})
	defer app.Close()

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// runSetupForm runs the first-run form and saves the answers.
func runSetupForm(cmd *cobra.Command, cfg config.Config) error {
	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	vals := tui.SetupValuesFrom(cfg, a.engine.Preferences().Currency)
	if err := tui.NewSetupForm(&vals).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return errors.New("setup cancelled")
		}
		return fmt.Errorf("setup form: %w", err)
	}

	vals.Apply(&cfg)
	if err := saveConfig(cfg); err != nil {
		return err
	}
	// The page flag wins over the saved value; make the next openApp see the answer.
	if flagPage == "" {
		flagPage = cfg.General.Page
	}

	if a.store != nil {
		prefs := a.engine.Preferences()
		prefs.Currency = vals.DisplayCurrency()
		if err := a.store.SavePreferences(cmd.Context(), prefs); err != nil {
			return fmt.Errorf("saving preferences: %w", err)
		}
	}
	return nil
}

func saveConfig(cfg config.Config) error {
	path := config.ConfigPath()
	if flagConfig != "" {
		path = flagConfig
	}
	if err := config.SaveTo(path, cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	return nil
}
