package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/finburn/internal/cli"
	"github.com/theirongolddev/finburn/internal/model"
)

var recordsCmd = &cobra.Command{
	Use:     "records",
	Aliases: []string{"ls", "servers"},
	Short:   "List every server with its costs",
	RunE:    runRecords,
}

func init() {
	addDisplayFlags(recordsCmd)
	rootCmd.AddCommand(recordsCmd)
}

func runRecords(cmd *cobra.Command, _ []string) error {
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

	cur := rep.Summary.Currency
	sym := rep.Summary.Symbol

	rows := make([][]string, 0, len(rep.Rows)+2)
	dim := make(map[int]bool)
	for i, row := range rep.Rows {
		rec := row.Record
		monthly, total := "-", "-"
		if !rec.IsFree {
			monthly = cli.FormatMoney(sym, res.Table.FromBase(rec.MonthlyCostBase, cur))
			total = cli.FormatMoney(sym, res.Table.FromBase(rec.TotalCostBase, cur))
		}
		rows = append(rows, []string{
			rec.Name,
			priceText(rec),
			monthly,
			total,
			cli.FormatMoney(sym, row.DisplayValue),
			daysText(rec.RemainingDays),
		})
		if row.Excluded {
			dim[i] = true
		}
	}
	s := rep.Summary
	rows = append(rows, []string{"---"})
	rows = append(rows, []string{
		fmt.Sprintf("TOTAL (%d)", s.Count), "",
		cli.FormatMoney(sym, s.MonthlyCost),
		cli.FormatMoney(sym, s.TotalCost),
		cli.FormatMoney(sym, s.RemainingValue),
		"",
	})

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   fmt.Sprintf("Servers · %s · %s", cur, prefs.Sort.Label()),
		Headers: []string{"Name", "Price", "Monthly", "Total", "Remaining", "Left"},
		Rows:    rows,
		Dim:     dim,
	}))
	printRatesLine(res)
	printWarnings(res)
	return nil
}

func priceText(rec model.AssetRecord) string {
	switch {
	case rec.IsOneTime:
		return "once"
	case rec.IsFree:
		return "free"
	case rec.OriginalSymbol == "":
		return "-"
	}
	return cli.FormatMoney(rec.OriginalSymbol, rec.OriginalAmount) + cli.FormatCycle(rec.Cycle, false)
}

func daysText(d model.Days) string {
	if !d.IsPermanent() && d <= 0 {
		return "expired"
	}
	return cli.FormatDays(d)
}
