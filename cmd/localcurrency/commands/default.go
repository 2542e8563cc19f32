package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"local_currency/internal/domain"
)

func defaultCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "default",
		Short: "Show or change the default local currency",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printDefault(cmd)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the default local currency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printDefault(cmd)
		},
	}, &cobra.Command{
		Use:   "set SYMBOL",
		Short: "Commit a new default local currency",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			symbol := strings.ToUpper(strings.TrimSpace(args[0]))

			cat, err := boot.Source.FetchCurrencies(ctx)
			if err != nil {
				return fmt.Errorf("failed to load catalog: %s", describe(err))
			}
			if !offers(domain.FiatOnly(cat.Currencies), symbol) {
				return fmt.Errorf("%s is not an available local currency", symbol)
			}

			if err := boot.Committer.Commit(ctx, symbol); err != nil {
				return fmt.Errorf("commit failed: %s", describe(err))
			}
			if err := boot.Defaults.Set(ctx, symbol); err != nil {
				return err
			}
			fmt.Printf("Local currency set to %s\n", symbol)
			return nil
		},
	})
	return cmd
}

func printDefault(cmd *cobra.Command) error {
	symbol, err := boot.Defaults.Get(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Println(symbol)
	return nil
}

func offers(currencies []domain.Currency, symbol string) bool {
	for _, c := range currencies {
		if c.Symbol == symbol {
			return true
		}
	}
	return false
}
