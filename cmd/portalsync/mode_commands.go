package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"portalsync/internal/backend"
)

func newModeCommand(ctx *commandContext) *cobra.Command {
	modeCmd := &cobra.Command{
		Use:   "mode",
		Short: "Show or switch the active backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd.Context(), runtimeOptions{}, func(rt *runtime) error {
				fmt.Fprintln(cmd.OutOrStdout(), rt.client.Mode(cmd.Context()))
				return nil
			})
		},
	}

	modeCmd.AddCommand(&cobra.Command{
		Use:       "set <demo|live>",
		Short:     "Persist the active backend",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(backend.ModeDemo), string(backend.ModeLive)},
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := backend.ParseMode(args[0])
			if err != nil {
				return err
			}
			return ctx.withRuntime(cmd.Context(), runtimeOptions{}, func(rt *runtime) error {
				previous := rt.client.Mode(cmd.Context())
				if err := rt.client.SetMode(cmd.Context(), mode); err != nil {
					return fmt.Errorf("set mode: %w", err)
				}
				out := cmd.OutOrStdout()
				if previous == mode {
					fmt.Fprintf(out, "Backend mode already %s\n", mode)
					return nil
				}
				fmt.Fprintf(out, "Backend mode switched from %s to %s\n", previous, mode)
				if n := rt.queue.Size(); n > 0 {
					fmt.Fprintf(out, "%d queued action(s) still target the live backend\n", n)
				}
				return nil
			})
		},
	})

	return modeCmd
}
