package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"portalsync/internal/backend"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, the durable store and live connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd.Context(), runtimeOptions{}, func(rt *runtime) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				failed := 0
				line := func(label string, kind statusKind, msg string) {
					if kind == statusError {
						failed++
					}
					fmt.Fprintln(out, renderStatusLine(label, kind, msg, colorize))
				}

				fmt.Fprintln(out, renderSectionHeader("Configuration"))
				line("Data dir", statusOK, rt.cfg.Paths.DataDir)
				if rt.cfg.Backend.APIToken == "" {
					line("API token", statusWarn, "not set (PORTALSYNC_API_TOKEN)")
				} else {
					line("API token", statusOK, "configured")
				}

				fmt.Fprintln(out)
				fmt.Fprintln(out, renderSectionHeader("Durable Store"))
				health, err := rt.store.CheckHealth(cmd.Context())
				switch {
				case err != nil:
					line("Store", statusError, err.Error())
				case !health.DatabaseExists:
					line("Store", statusError, "missing at "+health.DBPath)
				case !health.IntegrityCheck:
					line("Store", statusError, "integrity check failed: "+health.Error)
				default:
					line("Store", statusOK, fmt.Sprintf("%s (%d keys)", health.DBPath, health.TotalKeys))
				}
				stats := rt.client.Stats()
				if stats.FailedPermanent > 0 {
					line("Queue", statusWarn, fmt.Sprintf("%d of %d actions failed permanently", stats.FailedPermanent, stats.Total))
				} else {
					line("Queue", statusOK, fmt.Sprintf("%d queued", stats.Total))
				}

				fmt.Fprintln(out)
				fmt.Fprintln(out, renderSectionHeader("Backend"))
				mode := rt.client.Mode(cmd.Context())
				line("Mode", statusInfo, string(mode))
				liveKind := statusOK
				liveMsg := "reachable at " + rt.live.BaseURL()
				if !rt.probe(cmd.Context()) {
					liveKind = statusWarn
					if mode == backend.ModeLive {
						liveKind = statusError
					}
					liveMsg = "unreachable at " + rt.live.BaseURL()
				}
				line("Live backend", liveKind, liveMsg)

				if failed > 0 {
					return fmt.Errorf("doctor found %d problem(s)", failed)
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, "All checks passed")
				return nil
			})
		},
	}
}
