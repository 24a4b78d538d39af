package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"beacon/internal/profile"
)

func newProfilesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles <visitor-id>",
		Short: "List stored profile rows for a visitor",
		Args:  cobra.ExactArgs(1),
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

			profiles, err := store.ListByVisitor(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("list profiles: %w", err)
			}
			if len(profiles) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No profiles stored for visitor %s\n", args[0])
				return nil
			}

			rows := make([][]string, 0, len(profiles))
			for _, p := range profiles {
				rows = append(rows, []string{
					strconv.FormatInt(p.ID, 10),
					deref(p.FingerprintID),
					deref(p.DeviceID),
					deref(p.IPSubnet),
					deref(p.Timezone),
					deref(p.Platform),
					p.CreatedAt.Local().Format(time.RFC3339),
					p.LastActive.Local().Format(time.RFC3339),
				})
			}
			headers := []string{"ID", "Fingerprint", "Device", "Subnet", "Timezone", "Platform", "Created", "Last Active"}
			aligns := []columnAlignment{alignRight}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, aligns))
			return nil
		},
	}
}

func deref(value *string) string {
	if value == nil {
		return "-"
	}
	return *value
}
