package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"reelsmith/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd.Context())

			a, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)

			if cfg.Pricing.CatalogPath != "" && cfg.Pricing.Watch {
				if err := a.estimator.WatchCatalog(ctx, cfg.Pricing.CatalogPath); err != nil {
					return err
				}
			}

			srv := server.New(a.orch, a.store, a.usage)
			g.Go(func() error {
				return srv.Serve(ctx, cfg.Server.Addr, cfg.ShutdownTimeout())
			})

			return g.Wait()
		},
	}
}
