package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"beacon/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and store counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.apiBase()
			if err != nil {
				return err
			}

			client := &http.Client{Timeout: 5 * time.Second}
			resp, err := client.Get(base + "/api/status")
			if err != nil {
				return fmt.Errorf("daemon not reachable at %s: %w", base, err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("status request returned %s", resp.Status)
			}

			var status api.StatusResponse
			if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
				return fmt.Errorf("decode status: %w", err)
			}

			rows := [][]string{
				{"Running", strconv.FormatBool(status.Running)},
				{"PID", strconv.Itoa(status.PID)},
				{"Database", status.DatabasePath},
				{"Lock file", status.LockFilePath},
				{"Profiles", strconv.Itoa(status.Profiles)},
				{"Visitors", strconv.Itoa(status.Visitors)},
				{"Households", strconv.Itoa(status.Households)},
				{"Tokens", strconv.Itoa(status.Tokens)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
			return nil
		},
	}
}
