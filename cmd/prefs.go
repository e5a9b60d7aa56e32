package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/finburn/internal/currency"
	"github.com/theirongolddev/finburn/internal/model"
	"github.com/theirongolddev/finburn/internal/pipeline"
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show saved display preferences",
	RunE:  runPrefs,
}

var prefsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Save display preferences",
	Example: "  finburn prefs set --currency usd\n" +
		"  finburn prefs set --sort price_desc --exclude-free",
	RunE: runPrefsSet,
}

func init() {
	prefsSetCmd.Flags().StringVar(&flagCurrency, "currency", "", "Display currency")
	prefsSetCmd.Flags().StringVar(&flagSort, "sort", "", "Sort order: "+sortKeyList())
	prefsSetCmd.Flags().BoolVar(&flagExclFree, "exclude-free", false, "Leave free servers out of totals")
	prefsSetCmd.Flags().BoolVar(&flagInclFree, "include-free", false, "Count free servers in totals")
	prefsSetCmd.MarkFlagsMutuallyExclusive("exclude-free", "include-free")

	prefsCmd.AddCommand(prefsSetCmd)
	rootCmd.AddCommand(prefsCmd)
}

func parseSortKey(s string) model.SortKey {
	return model.SortKey(strings.ToLower(strings.TrimSpace(s)))
}

func sortKeyList() string {
	keys := make([]string, len(model.SortKeys))
	for i, k := range model.SortKeys {
		keys[i] = string(k)
	}
	return strings.Join(keys, ", ")
}

func printPrefs(p model.Preferences) {
	fmt.Printf("  Currency:     %s (%s)\n", p.Currency, p.Currency.Symbol())
	fmt.Printf("  Sort:         %s (%s)\n", p.Sort, p.Sort.Label())
	fmt.Printf("  Exclude free: %v\n", p.ExcludeFree)
}

func runPrefs(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()
	if a.store == nil {
		fmt.Println("  State store unavailable; showing defaults.")
	}
	printPrefs(a.engine.Preferences())
	return nil
}

// runPrefsSet validates every flag before saving any of them, then
// saves through the store directly: no page is read.
func runPrefsSet(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()
	if a.store == nil {
		return fmt.Errorf("state store unavailable; preferences cannot be saved")
	}

	p := a.engine.Preferences()
	if flagCurrency != "" {
		c, ok := currency.ParseCode(flagCurrency)
		if !ok {
			return fmt.Errorf("%w: %q", pipeline.ErrInvalidCurrency, flagCurrency)
		}
		p.Currency = c
	}
	if flagSort != "" {
		k := parseSortKey(flagSort)
		if !k.Valid() {
			return fmt.Errorf("%w: %q (want one of %s)", pipeline.ErrInvalidSortKey, flagSort, sortKeyList())
		}
		p.Sort = k
	}
	if flagExclFree {
		p.ExcludeFree = true
	}
	if flagInclFree {
		p.ExcludeFree = false
	}

	if err := a.store.SavePreferences(cmd.Context(), p); err != nil {
		return fmt.Errorf("saving preferences: %w", err)
	}
	fmt.Println("  Saved.")
	printPrefs(p)
	return nil
}
