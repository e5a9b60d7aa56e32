package tui

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/theirongolddev/finburn/internal/config"
	"github.com/theirongolddev/finburn/internal/currency"
	"github.com/theirongolddev/finburn/internal/source"
	"github.com/theirongolddev/finburn/internal/tui/theme"
)

// SetupValues holds the answers collected by the setup form.
type SetupValues struct {
	Page     string
	Cookie   string
	Currency string
	Theme    string
}

// SetupValuesFrom pre-fills the form from cfg.
func SetupValuesFrom(cfg config.Config, display currency.Code) SetupValues {
	return SetupValues{
		Page:     cfg.General.Page,
		Cookie:   cfg.General.Cookie,
		Currency: string(display),
		Theme:    cfg.Appearance.Theme,
	}
}

// Apply copies the answers into cfg and activates the chosen theme.
func (v SetupValues) Apply(cfg *config.Config) {
	cfg.General.Page = strings.TrimSpace(v.Page)
	cfg.General.Cookie = strings.TrimSpace(v.Cookie)
	if v.Theme != "" {
		cfg.Appearance.Theme = v.Theme
		theme.SetActive(v.Theme)
	}
}

// DisplayCurrency returns the chosen display currency, or the base
// currency when the answer is unusable.
func (v SetupValues) DisplayCurrency() currency.Code {
	if c, ok := currency.ParseCode(v.Currency); ok {
		return c
	}
	return currency.Base
}

func validatePage(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("a page location is required")
	}
	if source.IsURL(s) {
		return nil
	}
	if _, err := os.Stat(s); err != nil {
		return fmt.Errorf("cannot read %s", s)
	}
	return nil
}

// NewSetupForm builds the first-run form. Answers are written into vals.
func NewSetupForm(vals *SetupValues) *huh.Form {
	currencyOpts := make([]huh.Option[string], 0, len(currency.DisplayCodes))
	for _, c := range currency.DisplayCodes {
		currencyOpts = append(currencyOpts, huh.NewOption(fmt.Sprintf("%s (%s)", c, c.Symbol()), string(c)))
	}
	themeOpts := make([]huh.Option[string], 0, len(theme.All))
	for _, t := range theme.All {
		themeOpts = append(themeOpts, huh.NewOption(t.Name, t.Name))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to finburn").
				Description("Point finburn at your server dashboard to total up what it costs."),
			huh.NewInput().
				Title("Dashboard page").
				Description("A saved .html file, a folder of saved pages, or an http(s) URL.").
				Value(&vals.Page).
				Validate(validatePage),
			huh.NewInput().
				Title("Session cookie").
				Description("Only needed when the URL requires a login. Leave blank otherwise.").
				EchoMode(huh.EchoModePassword).
				Value(&vals.Cookie),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Display currency").
				Options(currencyOpts...).
				Value(&vals.Currency),
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themeOpts...).
				Value(&vals.Theme),
		),
	).WithTheme(huh.ThemeDracula())
}
