package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/finburn/internal/cli"
	"github.com/theirongolddev/finburn/internal/model"
	"github.com/theirongolddev/finburn/internal/pipeline"
)

var costsCmd = &cobra.Command{
	Use:   "costs",
	Short: "Cost breakdown by pricing currency and billing cycle",
	RunE:  runCosts,
}

func init() {
	addDisplayFlags(costsCmd)
	rootCmd.AddCommand(costsCmd)
}

func runCosts(cmd *cobra.Command, _ []string) error {
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
		return nil
	}

	records := make([]model.AssetRecord, len(rep.Rows))
	for i, r := range rep.Rows {
		records[i] = r.Record
	}
	byCurrency, byCycle := pipeline.AggregateCostBreakdown(records, prefs.Currency, res.Table)
	sym := rep.Summary.Symbol

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("COST BREAKDOWN  %s", prefs.Currency)))
	fmt.Println()

	if len(byCurrency) == 0 {
		fmt.Println("  Every server is free.")
		return nil
	}

	var grand, maxCost float64
	for _, c := range byCurrency {
		grand += c.TotalCost
		if c.TotalCost > maxCost {
			maxCost = c.TotalCost
		}
	}

	curRows := make([][]string, 0, len(byCurrency)+2)
	for _, c := range byCurrency {
		label := string(c.Code)
		if label == "" {
			label = c.Symbol
		}
		share := ""
		if grand > 0 {
			share = cli.FormatPercent(c.TotalCost / grand)
		}
		curRows = append(curRows, []string{
			label,
			cli.FormatNumber(int64(c.Records)),
			cli.FormatMoney(c.Symbol, c.OriginalTotal),
			cli.FormatMoney(sym, c.TotalCost),
			cli.FormatMoney(sym, c.MonthlyCost),
			share,
		})
	}
	curRows = append(curRows, []string{"---"})
	curRows = append(curRows, []string{
		"TOTAL", "", "",
		cli.FormatMoney(sym, grand),
		cli.FormatMoney(sym, rep.Summary.MonthlyCost),
		"",
	})
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "By Pricing Currency",
		Headers: []string{"Currency", "Servers", "As Priced", "Total", "Monthly", "Share"},
		Rows:    curRows,
	}))

	for _, c := range byCurrency {
		label := string(c.Code)
		if label == "" {
			label = c.Symbol
		}
		fmt.Printf("  %-4s %s %s\n", label,
			cli.Money(cli.RenderHorizontalBar(c.TotalCost, maxCost, 30)),
			cli.Muted(cli.FormatMoney(sym, c.TotalCost)))
	}
	fmt.Println()

	cycleRows := make([][]string, 0, len(byCycle))
	for _, c := range byCycle {
		name := "Monthly"
		if c.Cycle == model.CycleYear {
			name = "Yearly"
		}
		cycleRows = append(cycleRows, []string{
			name,
			cli.FormatNumber(int64(c.Records)),
			cli.FormatMoney(sym, c.MonthlyCost),
			cli.FormatMoney(sym, c.TotalCost),
			cli.FormatMoney(sym, c.RemainingValue),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "By Billing Cycle",
		Headers: []string{"Cycle", "Servers", "Monthly", "Total", "Remaining"},
		Rows:    cycleRows,
	}))

	if rep.Summary.FreeCount > 0 {
		fmt.Printf("  %s\n", cli.Muted(fmt.Sprintf("%d free servers are not part of the breakdown.", rep.Summary.FreeCount)))
	}
	printRatesLine(res)
	return nil
}
