package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"beacon/internal/profile"
)

func newPruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Run the retention maintenance pass now",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := profile.Open(cfg)
			if err != nil {
				return fmt.Errorf("open profile store: %w", err)
			}
			defer store.Close()

			const day = 24 * time.Hour
			counts, err := store.PruneAll(
				cmd.Context(),
				time.Duration(cfg.Retention.DuplicateWindowDays)*day,
				time.Duration(cfg.Retention.ExpiryDays)*day,
				time.Duration(cfg.Retention.TokenIdleDays)*day,
			)
			if err != nil {
				return fmt.Errorf("prune: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Removed %d duplicate rows\n", counts.DuplicateRows)
			fmt.Fprintf(out, "Removed %d expired rows\n", counts.ExpiredRows)
			fmt.Fprintf(out, "Removed %d idle tokens\n", counts.IdleTokens)
			return nil
		},
	}
}
