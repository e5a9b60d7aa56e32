package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/finburn/internal/config"
	"github.com/theirongolddev/finburn/internal/store"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	path := config.ConfigPath()
	if flagConfig != "" {
		path = flagConfig
	}
	fmt.Printf("  Config file: %s\n", path)
	if config.Exists() || flagConfig != "" {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	if cfg.General.Page != "" {
		fmt.Printf("    Page:     %s\n", cfg.General.Page)
	} else {
		fmt.Println("    Page:     not configured")
	}
	if cookie := config.GetCookie(cfg); cookie != "" {
		fmt.Printf("    Cookie:   %s\n", maskSecret(cookie))
	} else {
		fmt.Println("    Cookie:   not configured")
	}
	db := cfg.General.DBPath
	if db == "" {
		db = store.Path()
	}
	fmt.Printf("    Database: %s\n", db)
	fmt.Println()

	fmt.Println("  [Extract]")
	fmt.Printf("    Card selector: %s\n", cfg.Extract.CardSelector)
	fmt.Printf("    Name selector: %s\n", cfg.Extract.NameSelector)
	fmt.Printf("    Max cards:     %d\n", cfg.Extract.MaxCards)
	fmt.Println()

	fmt.Println("  [Rates]")
	providers := cfg.Rates.ProviderList()
	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.Name
	}
	if cfg.Rates.Offline {
		fmt.Println("    Providers: offline")
	} else {
		fmt.Printf("    Providers: %s\n", strings.Join(names, ", "))
	}
	fmt.Printf("    Schedule:  %s\n", cfg.Rates.Schedule)
	fmt.Printf("    Timeout:   %s\n", cfg.Rates.Timeout())
	fmt.Println()

	fmt.Println("  [Live]")
	fmt.Printf("    Poll interval: %s\n", cfg.Live.PollInterval())
	fmt.Printf("    Debounce:      %s\n", cfg.Live.Debounce())
	fmt.Printf("    Daemon addr:   %s\n", cfg.Live.Addr)
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  [Log]")
	fmt.Printf("    Level: %s  Format: %s\n", cfg.Log.Level, cfg.Log.Format)
	fmt.Println()

	fmt.Println("  Run `finburn setup` to reconfigure.")
	return nil
}
