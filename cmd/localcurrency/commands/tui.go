package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"local_currency/internal/infra"
	"local_currency/internal/tui"
)

func tuiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Pick the local currency interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			logPath := filepath.Join(infra.GetWorkspaceDir(), "logs", "tui.log")
			logger, closer, err := infra.NewFileLogger(boot.Config, logPath)
			if err != nil {
				return err
			}
			defer closer.Close()
			slog.SetDefault(logger)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			screen := boot.NewScreen(ctx, nil, nil)
			updates, unsubscribe := screen.Subscribe()
			defer unsubscribe()
			go screen.Run(ctx)

			model := tui.NewModel(screen, updates)
			if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
				return fmt.Errorf("terminal UI failed: %w", err)
			}

			cancel()
			<-screen.Stopped()

			if model.Done {
				fmt.Printf("Local currency set to %s\n", screen.Snapshot().SelectedSymbol)
			}
			return nil
		},
	}
}
