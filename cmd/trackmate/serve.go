package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	var noSync bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background mailbox sync",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.Config.Server.Addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := a.Logger()
			if a.Config.Sync.Enabled && !noSync {
				if _, err := a.RegisterSources(ctx); err != nil {
					return err
				}
				a.Poller.Start()
				go func() {
					for r := range a.Poller.Results() {
						if r.Err == nil {
							log.Debug().
								Str("source", r.Key).
								Int("synced", r.Summary.SyncedCount).
								Int("unread", r.Summary.NewUnread).
								Msg("background sync")
						}
					}
				}()
			}

			srv := a.Server()
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Listen(addr) }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to server.addr)")
	cmd.Flags().BoolVar(&noSync, "no-sync", false, "Disable background mailbox polling")

	return cmd
}
