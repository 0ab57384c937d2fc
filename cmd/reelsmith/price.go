package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reelsmith/internal/pricing"
)

func newPriceCmd() *cobra.Command {
	var (
		duration string
		images   int
	)

	cmd := &cobra.Command{
		Use:   "price <provider>",
		Short: "Estimate the cost of a generation without starting a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd.Context())

			estimator := pricing.NewEstimator(nil)
			if cfg.Pricing.CatalogPath != "" {
				table, err := pricing.LoadTable(cfg.Pricing.CatalogPath)
				if err != nil {
					return err
				}
				estimator.SetTable(table)
			}

			est, err := estimator.Estimate(pricing.Plan{
				Provider:   args[0],
				Duration:   duration,
				ImageCount: images,
			})
			if err != nil {
				return err
			}

			fmt.Printf("%s: %d credits ($%.2f, %s tier)\n", est.Provider, est.Credits, est.USD, est.Tier)
			if pricing.NeedsExplicitApproval(est.Credits) {
				fmt.Println("explicit user approval required before generation")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&duration, "duration", "15s", "output duration, e.g. 10s, 1m, 10-15s")
	cmd.Flags().IntVar(&images, "images", 0, "image count for per-image providers")
	return cmd
}
