package cmd

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/finburn/internal/cli"
	"github.com/theirongolddev/finburn/internal/currency"
)

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Show the exchange rate table in use",
	RunE:  runRates,
}

var ratesRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch exchange rates now and save them",
	RunE:  runRatesRefresh,
}

func init() {
	ratesCmd.AddCommand(ratesRefreshCmd)
	rootCmd.AddCommand(ratesCmd)
}

func runRates(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()
	printRateTable(a.book.Table(), a.book.Status())
	return nil
}

func runRatesRefresh(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()
	if a.cfg.Rates.Offline {
		return fmt.Errorf("rates are offline; unset --offline or [rates] offline to refresh")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
	defer cancel()
	st := a.book.Refresh(ctx)
	printRateTable(a.book.Table(), st)
	if !st.OK {
		return fmt.Errorf("every rate provider failed")
	}
	return nil
}

func printRateTable(t currency.Table, st currency.RefreshStatus) {
	rates := t.Rates()
	codes := make([]string, 0, len(rates))
	for c := range rates {
		codes = append(codes, string(c))
	}
	sort.Strings(codes)

	rows := make([][]string, 0, len(codes))
	for _, c := range codes {
		r := rates[currency.Code(c)]
		inv := "-"
		if r > 0 {
			inv = strconv.FormatFloat(1/r, 'f', 4, 64)
		}
		rows = append(rows, []string{c, strconv.FormatFloat(r, 'f', 6, 64), inv})
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   fmt.Sprintf("Rates per 1 %s · %s", currency.Base, t.Source),
		Headers: []string{"Code", "Units", fmt.Sprintf("%s each", currency.Base)},
		Rows:    rows,
	}))

	switch {
	case t.Fallback:
		fmt.Println(cli.Warn("  Built-in fallback rates; figures are approximate."))
	case !t.FetchedAt.IsZero():
		fmt.Println(cli.Muted("  Fetched " + t.FetchedAt.Local().Format("2006-01-02 15:04:05")))
	}
	if !st.At.IsZero() {
		if st.OK {
			fmt.Println(cli.Muted("  Last refresh via " + st.Provider))
		} else {
			for _, e := range st.Errors {
				fmt.Println(cli.Warn("  " + e))
			}
		}
	}
}
