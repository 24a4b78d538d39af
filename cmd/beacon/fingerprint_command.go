package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"beacon/internal/api"
	"beacon/internal/identity"
	"beacon/internal/signal"
)

// newFingerprintCommand collects the signals observable from this host,
// composes the tier identifiers, and submits the visit to the daemon. It is
// the reference client for the submission pipeline.
func newFingerprintCommand(ctx *commandContext) *cobra.Command {
	var visitorID string

	cmd := &cobra.Command{
		Use:   "fingerprint",
		Short: "Collect local signals and submit a visit to the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			base, err := ctx.apiBase()
			if err != nil {
				return err
			}

			registry := signal.DefaultRegistry()
			timeout := time.Duration(cfg.Collection.ModuleTimeoutMillis) * time.Millisecond
			runner := signal.NewRunner(timeout, nil)
			result := runner.Collect(cmd.Context(), hostCollectors())

			composer := identity.NewComposer(registry, identity.HashSHA256)
			composition := composer.Compose(result.Data)
			if composition.Full.Identifier == "" {
				return fmt.Errorf("no signal modules produced data")
			}

			req := buildSubmission(result.Data, composition)
			req.VisitorID = visitorID
			resp, err := submitFingerprint(cmd.Context(), base, req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Collected %d modules in %s", len(result.Data), result.Elapsed.Round(time.Millisecond))
			if len(result.Failures) > 0 {
				names := make([]string, 0, len(result.Failures))
				for name := range result.Failures {
					names = append(names, name)
				}
				sort.Strings(names)
				fmt.Fprintf(out, " (%d unavailable: %s)", len(names), strings.Join(names, ", "))
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Fingerprint: %s (%.1f entropy bits, %.0f%% stable)\n",
				composition.Full.Identifier, composition.Full.EntropyBits, composition.Full.StabilityPercent)
			fmt.Fprintf(out, "Visitor ID: %s\n", resp.VisitorID)
			if resp.MatchType != nil && resp.MatchedVisitorID != nil {
				fmt.Fprintf(out, "Matched %s as %s (confidence %.2f via %s)\n",
					*resp.MatchedVisitorID, *resp.MatchType, resp.Confidence,
					strings.Join(resp.MatchedSignals, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&visitorID, "visitor-id", "", "Known visitor identifier to submit with")
	return cmd
}

// hostCollectors probes the signal modules observable from a server-side
// process. Browser-only modules are reported unavailable by omission.
func hostCollectors() []signal.Collector {
	return []signal.Collector{
		signal.CollectorFunc{
			ModuleName: signal.ModuleTimezone,
			Probe: func(context.Context) (any, error) {
				zone, _ := time.Now().Zone()
				return zone, nil
			},
		},
		signal.CollectorFunc{
			ModuleName: signal.ModuleLanguages,
			Supported: func() bool {
				return os.Getenv("LANG") != ""
			},
			Probe: func(context.Context) (any, error) {
				lang := os.Getenv("LANG")
				if idx := strings.IndexByte(lang, '.'); idx > 0 {
					lang = lang[:idx]
				}
				return []string{strings.ReplaceAll(lang, "_", "-")}, nil
			},
		},
		signal.CollectorFunc{
			ModuleName: signal.ModulePlatform,
			Probe: func(context.Context) (any, error) {
				return runtime.GOOS + " " + runtime.GOARCH, nil
			},
		},
		signal.CollectorFunc{
			ModuleName: signal.ModuleConcurrency,
			Probe: func(context.Context) (any, error) {
				return runtime.NumCPU(), nil
			},
		},
	}
}

// buildSubmission maps collected module data onto the wire request, carrying
// the full-tier identifier as the fingerprint and the minimal tier as the
// stable device identifier.
func buildSubmission(data map[string]any, composition identity.Composition) api.FingerprintRequest {
	req := api.FingerprintRequest{
		FingerprintID: composition.Full.Identifier,
		DeviceID:      composition.Minimal.Identifier,
	}
	if zone, ok := data[signal.ModuleTimezone].(string); ok {
		req.Timezone = &zone
	}
	if languages, ok := data[signal.ModuleLanguages]; ok {
		req.Languages = languages
	}
	if platform, ok := data[signal.ModulePlatform].(string); ok {
		req.Platform = &platform
	}
	if cores, ok := data[signal.ModuleConcurrency].(int); ok {
		req.HardwareConcurrency = &cores
	}
	return req
}

func submitFingerprint(ctx context.Context, base string, req api.FingerprintRequest) (api.FingerprintResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return api.FingerprintResponse{}, fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/fingerprint", bytes.NewReader(body))
	if err != nil {
		return api.FingerprintResponse{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 10 * time.Second}
	httpResp, err := client.Do(httpReq)
	if err != nil {
		return api.FingerprintResponse{}, fmt.Errorf("daemon not reachable at %s: %w", base, err)
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusOK {
		return api.FingerprintResponse{}, fmt.Errorf("fingerprint request returned %s", httpResp.Status)
	}

	var resp api.FingerprintResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return api.FingerprintResponse{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}
