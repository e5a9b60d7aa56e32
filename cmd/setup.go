package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/finburn/internal/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("  Welcome to finburn!")
	fmt.Println()
	if c := config.GetCookie(cfg); c != "" {
		fmt.Printf("  Current cookie: %s\n\n", maskSecret(c))
	}

	if err := runSetupForm(cmd, cfg); err != nil {
		return err
	}

	path := config.ConfigPath()
	if flagConfig != "" {
		path = flagConfig
	}
	fmt.Println()
	fmt.Printf("  Saved to %s\n", path)
	fmt.Println("  Run `finburn setup` anytime to reconfigure.")
	fmt.Println()
	return nil
}

func maskSecret(key string) string {
	if len(key) > 16 {
		return key[:8] + "..." + key[len(key)-4:]
	}
	if len(key) > 4 {
		return key[:4] + "..."
	}
	return "****"
}
