package main

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"beacon/internal/persistid"
)

func newIdentityCommand(ctx *commandContext) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Resolve the persistent visitor identifier and heal its backends",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			backends := []persistid.Backend{
				persistid.NewFileBackend(filepath.Join(cfg.Paths.DataDir, "visitor-id.json")),
			}
			if base, err := ctx.apiBase(); err == nil {
				if token == "" {
					token = uuid.NewString()
				}
				backends = append(backends, persistid.NewTokenBackend(base, token, nil))
			}

			manager := persistid.NewManager(backends, nil)
			resolution, report, err := manager.ResolveAndRespawn(cmd.Context())
			if err != nil {
				return fmt.Errorf("resolve identity: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Visitor ID: %s\n", resolution.Value)
			if resolution.Fresh {
				fmt.Fprintln(out, "No backend held an identifier; a fresh one was minted")
			}
			fmt.Fprintf(out, "Backends: %d agreed, %d healed, %d failed\n",
				report.Agreed, report.Healed, report.Failed)
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Identity token for the server-held backend")
	return cmd
}
