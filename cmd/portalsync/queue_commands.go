package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"portalsync/internal/api"
	"portalsync/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and resolve the offline action queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueDrainCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueDiscardCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var statuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued actions in replay order",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := make(map[queue.Status]bool, len(statuses))
			for _, raw := range statuses {
				status, err := parseQueueStatus(raw)
				if err != nil {
					return err
				}
				filter[status] = true
			}
			return ctx.withRuntime(cmd.Context(), runtimeOptions{}, func(rt *runtime) error {
				var actions []queue.QueuedAction
				for _, action := range rt.client.Pending() {
					if len(filter) == 0 || filter[action.Status] {
						actions = append(actions, action)
					}
				}
				entries := api.FromQueuedActions(actions)
				if jsonOutput {
					return writeJSON(cmd, entries)
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "Offline queue is empty")
					return nil
				}
				fmt.Fprintln(out, renderQueueTable(entries))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (pending, in_flight, failed_permanent)")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one queued action with its payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			return ctx.withRuntime(cmd.Context(), runtimeOptions{}, func(rt *runtime) error {
				for _, action := range rt.client.Pending() {
					if action.ID == id {
						return writeJSON(cmd, api.FromQueuedAction(action))
					}
				}
				return fmt.Errorf("queued action %s not found", id)
			})
		},
	}
}

func newQueueDrainCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "drain",
		Short: "Replay queued actions against the live backend now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd.Context(), runtimeOptions{}, func(rt *runtime) error {
				out := cmd.OutOrStdout()
				if rt.queue.Size() == 0 {
					fmt.Fprintln(out, "Offline queue is empty")
					return nil
				}
				if !rt.probe(cmd.Context()) {
					return fmt.Errorf("live backend %s is unreachable; queued actions kept", rt.live.BaseURL())
				}
				report, err := rt.client.Sync(cmd.Context())
				if err != nil {
					return fmt.Errorf("drain queue: %w", err)
				}
				if jsonOutput {
					return writeJSON(cmd, drainView(report))
				}
				fmt.Fprint(out, renderDrainReport(report))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Return failed actions to pending (all failed when no id is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd.Context(), runtimeOptions{}, func(rt *runtime) error {
				result, err := rt.client.RetryFailed(cmd.Context(), args...)
				if err != nil {
					return fmt.Errorf("retry failed actions: %w", err)
				}
				out := cmd.OutOrStdout()
				if len(args) == 0 {
					if result.UpdatedCount == 0 {
						fmt.Fprintln(out, "No failed actions to retry")
					} else {
						fmt.Fprintf(out, "Retrying %d failed action(s)\n", result.UpdatedCount)
					}
					return nil
				}
				for _, item := range result.Items {
					switch item.Outcome {
					case api.RetryItemUpdated:
						fmt.Fprintf(out, "Action %s reset for retry\n", item.ID)
					case api.RetryItemNotFailed:
						fmt.Fprintf(out, "Action %s is not in a failed state\n", item.ID)
					case api.RetryItemNotFound:
						fmt.Fprintf(out, "Action %s not found\n", item.ID)
					}
				}
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Discard one queued action without replaying it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			return ctx.withRuntime(cmd.Context(), runtimeOptions{}, func(rt *runtime) error {
				outcome, err := rt.client.Remove(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("remove action: %w", err)
				}
				switch outcome {
				case api.RemoveItemRemoved:
					fmt.Fprintf(cmd.OutOrStdout(), "Action %s removed\n", id)
					return nil
				case api.RemoveItemInFlight:
					return fmt.Errorf("action %s is being replayed; try again once it settles", id)
				default:
					return fmt.Errorf("queued action %s not found", id)
				}
			})
		},
	}
}

func newQueueDiscardCommand(ctx *commandContext) *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "discard",
		Short: "Drop every queued action (unsynced changes are lost)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return errors.New("discard loses unsynced changes; pass --yes to confirm")
			}
			return ctx.withRuntime(cmd.Context(), runtimeOptions{}, func(rt *runtime) error {
				removed, err := rt.client.Discard(cmd.Context())
				if err != nil {
					return fmt.Errorf("discard queue: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Discarded %d queued action(s)\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&confirm, "yes", "y", false, "Confirm discarding unsynced actions")
	return cmd
}

func parseQueueStatus(raw string) (queue.Status, error) {
	status := queue.Status(strings.ToLower(strings.TrimSpace(raw)))
	switch status {
	case queue.StatusPending, queue.StatusInFlight, queue.StatusFailedPermanent:
		return status, nil
	default:
		return "", fmt.Errorf("unknown queue status %q", raw)
	}
}

func renderQueueTable(entries []api.QueueEntry) string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		next := entry.NextAttemptAt
		if next == "" {
			next = "-"
		}
		lastErr := entry.LastError
		if lastErr == "" {
			lastErr = "-"
		}
		rows = append(rows, []string{
			entry.ID,
			entry.ActionType,
			humanLabel(entry.Status),
			strconv.Itoa(entry.Attempts),
			entry.EnqueuedAt,
			next,
			lastErr,
		})
	}
	return renderTable(
		[]string{"ID", "Action", "Status", "Attempts", "Queued", "Next Attempt", "Last Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
	)
}

type drainOutcomeView struct {
	ID         string `json:"id"`
	ActionType string `json:"actionType"`
	Result     string `json:"result"`
	Error      string `json:"error,omitempty"`
}

type drainReportView struct {
	Outcomes    []drainOutcomeView `json:"outcomes"`
	BlockedBy   string             `json:"blockedBy,omitempty"`
	NextRetryAt string             `json:"nextRetryAt,omitempty"`
	Remaining   int                `json:"remaining"`
}

func drainView(report queue.DrainReport) drainReportView {
	view := drainReportView{Outcomes: []drainOutcomeView{}, Remaining: report.Remaining}
	for _, outcome := range report.Outcomes {
		item := drainOutcomeView{
			ID:         outcome.Action.ID,
			ActionType: outcome.Action.ActionType,
			Result:     outcome.Result,
		}
		if outcome.Err != nil {
			item.Error = outcome.Err.Error()
		}
		view.Outcomes = append(view.Outcomes, item)
	}
	if report.Blocked != nil {
		view.BlockedBy = report.Blocked.ID
	}
	if !report.NextRetryAt.IsZero() {
		view.NextRetryAt = report.NextRetryAt.UTC().Format(time.RFC3339)
	}
	return view
}

func renderDrainReport(report queue.DrainReport) string {
	var b strings.Builder
	for _, outcome := range report.Outcomes {
		line := fmt.Sprintf("%s %s: %s", outcome.Action.ID, outcome.Action.ActionType, humanLabel(outcome.Result))
		if outcome.Err != nil {
			line += " (" + outcome.Err.Error() + ")"
		}
		b.WriteString(line + "\n")
	}
	fmt.Fprintf(&b, "Confirmed %d, remaining %d\n", report.Confirmed(), report.Remaining)
	if report.Blocked != nil {
		fmt.Fprintf(&b, "Queue blocked by failed action %s; run `portalsync queue retry %s` or `portalsync queue remove %s`\n",
			report.Blocked.ID, report.Blocked.ID, report.Blocked.ID)
	}
	if !report.NextRetryAt.IsZero() {
		fmt.Fprintf(&b, "Next retry after %s\n", report.NextRetryAt.UTC().Format(time.RFC3339))
	}
	return b.String()
}
