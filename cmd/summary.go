package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/finburn/internal/cli"
	"github.com/theirongolddev/finburn/internal/pipeline"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Totals: cost, monthly burn and remaining value",
	RunE:  runSummary,
}

func init() {
	addDisplayFlags(rootCmd)
	addDisplayFlags(summaryCmd)
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.runOnce(cmd.Context())
	if err != nil {
		return err
	}
	prefs, rep, err := displayPrefs(res)
	if err != nil {
		return err
	}

	if rep.Summary.Empty {
		fmt.Println("\n  No server cards found on the page.")
		if res.Candidates > 0 {
			fmt.Printf("  %d cards were seen but none had a readable validity.\n", res.Candidates)
		}
		return nil
	}

	s := rep.Summary
	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("SERVER BILLING  %s", s.Currency)))
	fmt.Println()

	freeNote := fmt.Sprintf("%d", s.FreeCount)
	if prefs.ExcludeFree {
		freeNote += " (left out of totals)"
	}

	rows := [][]string{
		{"Servers", cli.FormatNumber(int64(s.Count))},
		{"Free", freeNote},
		{"---"},
		{"Total cost", cli.FormatMoney(s.Symbol, s.TotalCost)},
		{"Monthly burn", cli.FormatMoney(s.Symbol, s.MonthlyCost)},
		{"Remaining value", cli.FormatMoney(s.Symbol, s.RemainingValue)},
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Metric", "Value"},
		Rows:    rows,
	}))

	printRatesLine(res)
	printWarnings(res)
	return nil
}

func printRatesLine(res pipeline.Result) {
	r := res.Rates
	line := fmt.Sprintf("  Rates: %s", r.Source)
	if !r.FetchedAt.IsZero() {
		line += ", fetched " + r.FetchedAt.Local().Format("2006-01-02 15:04")
	}
	if r.Fallback {
		fmt.Println(cli.Warn(line + " (built-in fallback)"))
		return
	}
	fmt.Println(cli.Muted(line))
}

func printWarnings(res pipeline.Result) {
	if res.Truncated > 0 {
		fmt.Fprintf(os.Stderr, "\n  %d cards over the limit were ignored\n", res.Truncated)
	}
	if res.Failed > 0 {
		fmt.Fprintf(os.Stderr, "  %d cards could not be read\n", res.Failed)
	}
	if res.Skipped > 0 && !flagQuiet {
		fmt.Fprintf(os.Stderr, "  %d cards had no remaining-days line and were skipped\n", res.Skipped)
	}
}
