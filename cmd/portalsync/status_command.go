package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"portalsync/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show backend mode, connectivity and offline queue state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd.Context(), runtimeOptions{}, func(rt *runtime) error {
				rt.probe(cmd.Context())
				mode := rt.client.Mode(cmd.Context())
				summary := rt.client.Summary(string(mode), rt.live.BaseURL())
				if jsonOutput {
					return writeJSON(cmd, summary)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderStatus(summary, shouldColorize(cmd.OutOrStdout())))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func renderStatus(summary api.StatusSummary, colorize bool) string {
	var b strings.Builder
	b.WriteString(renderSectionHeader("Backend") + "\n")
	b.WriteString(renderStatusLine("Mode", statusInfo, humanLabel(summary.Mode), colorize) + "\n")
	if summary.Online {
		b.WriteString(renderStatusLine("Live backend", statusOK, "reachable at "+summary.LiveURL, colorize) + "\n")
	} else {
		b.WriteString(renderStatusLine("Live backend", statusWarn, "unreachable at "+summary.LiveURL, colorize) + "\n")
	}

	b.WriteString("\n" + renderSectionHeader("Offline Queue") + "\n")
	switch {
	case summary.Queued == 0:
		b.WriteString(renderStatusLine("Queued", statusOK, "empty", colorize) + "\n")
	default:
		msg := fmt.Sprintf("%d (pending %d, in flight %d)", summary.Queued, summary.Pending, summary.InFlight)
		b.WriteString(renderStatusLine("Queued", statusInfo, msg, colorize) + "\n")
		if summary.OldestQueuedAt != "" {
			b.WriteString(renderStatusLine("Oldest", statusInfo, summary.OldestQueuedAt, colorize) + "\n")
		}
	}
	if summary.FailedPermanent > 0 {
		msg := fmt.Sprintf("%d need attention (portalsync queue retry or remove)", summary.FailedPermanent)
		b.WriteString(renderStatusLine("Failed", statusError, msg, colorize) + "\n")
	}
	return b.String()
}
