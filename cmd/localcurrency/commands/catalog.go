package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"local_currency/internal/domain"
)

func catalogCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the currencies offered by the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*boot.Config.Timeout())
			defer cancel()

			cat, err := boot.Source.FetchCurrencies(ctx)
			if err != nil {
				return fmt.Errorf("failed to load catalog: %s", describe(err))
			}

			current, err := boot.Defaults.Get(ctx)
			if err != nil {
				return err
			}

			currencies := cat.Currencies
			if !all {
				currencies = domain.FiatOnly(currencies)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "\tSYMBOL\tNAME\tTYPE")
			for _, c := range currencies {
				mark := ""
				if c.Symbol == current {
					mark = "*"
				}
				kind := "fiat"
				if c.IsCrypto {
					kind = "crypto"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", mark, c.Symbol, c.Name, kind)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if pairs := cat.PairsFor(current); len(pairs) > 0 {
				fmt.Printf("\nPrices in %s:\n", current)
				for _, p := range pairs {
					fmt.Printf("  %s/%s  %s\n", p.Base, p.Quote, p.Price.StringFixed(4))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include crypto currencies")
	return cmd
}
