package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"local_currency/internal/app"
	"local_currency/internal/domain"
)

var (
	configPath string
	boot       *app.Bootstrap
)

func Execute() error {
	root := &cobra.Command{
		Use:          "localcurrency",
		Short:        "Choose the local currency used to display prices",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to load .env: %w", err)
			}
			boot = app.NewBootstrap()
			return boot.Initialize(configPath)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return boot.Close()
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default configs/config.yaml)")

	root.AddCommand(tuiCmd(), serveCmd(), catalogCmd(), defaultCmd())
	return root.Execute()
}

// describe prefers the user-facing message of a collaborator error.
func describe(err error) string {
	if msg := domain.UserMessage(err); msg != "" {
		return msg
	}
	return err.Error()
}
