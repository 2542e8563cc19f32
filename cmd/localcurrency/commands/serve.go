package commands

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"local_currency/internal/engine"
	"local_currency/internal/transport/wsbridge"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the currency screen to WebSocket renderers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := boot.Config
			if addr == "" {
				addr = cfg.Server.Addr
			}

			bridge := wsbridge.NewServer(func(id string, nav engine.Navigator) *engine.Screen {
				return boot.NewScreen(ctx, nav, nil)
			}, boot.Metrics)

			mux := http.NewServeMux()
			mux.Handle("/ws", bridge)
			mux.Handle(cfg.Server.MetricsPath, boot.Metrics.Handler())
			mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			srv := &http.Server{
				Addr:              addr,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
				// Sessions end when the process shuts down.
				BaseContext: func(net.Listener) context.Context { return ctx },
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				slog.Info("Server listening", slog.String("addr", addr), slog.String("metrics", cfg.Server.MetricsPath))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				slog.Info("Shutting down gracefully...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				err := srv.Shutdown(shutdownCtx)
				bridge.Wait()
				return err
			})

			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
