package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"portalsync/internal/backend"
)

func newCallCommand(ctx *commandContext) *cobra.Command {
	var payload string
	var payloadFile string

	cmd := &cobra.Command{
		Use:   "call <operation>",
		Short: "Invoke one portal operation and print its result envelope",
		Long: "Invoke one portal operation through the active backend. In live mode a\n" +
			"mutating operation that cannot reach the backend is queued and reported\n" +
			"with offline=true; run `portalsync queue drain` or `portalsync run` to sync it.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			operation := strings.TrimSpace(args[0])
			if !backend.IsKnown(operation) {
				return fmt.Errorf("unknown operation %q (see portalsync operations)", operation)
			}
			body, err := readPayload(payload, payloadFile)
			if err != nil {
				return err
			}
			return ctx.withRuntime(cmd.Context(), runtimeOptions{}, func(rt *runtime) error {
				if rt.client.Mode(cmd.Context()) == backend.ModeLive {
					rt.probe(cmd.Context())
				}
				result := rt.client.Call(cmd.Context(), operation, body)
				if err := writeJSON(cmd, result); err != nil {
					return err
				}
				if !result.Success {
					return fmt.Errorf("%s failed (%s): %s", operation, result.Kind, result.Error)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&payload, "payload", "p", "", "JSON payload for the operation")
	cmd.Flags().StringVarP(&payloadFile, "payload-file", "f", "", "Read the JSON payload from a file")
	cmd.MarkFlagsMutuallyExclusive("payload", "payload-file")
	return cmd
}

func readPayload(inline, path string) (json.RawMessage, error) {
	raw := []byte(strings.TrimSpace(inline))
	if path = strings.TrimSpace(path); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read payload file: %w", err)
		}
		raw = data
	}
	if len(raw) == 0 {
		return nil, nil
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("payload is not valid JSON")
	}
	return json.RawMessage(raw), nil
}

func newOperationsCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "operations",
		Short:       "List the portal operations accepted by call",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, len(backend.Operations()))
			for _, op := range backend.Operations() {
				kind := "read"
				queued := "no"
				if backend.IsMutating(op) {
					kind = "mutation"
					queued = "when offline"
				}
				rows = append(rows, []string{op, kind, queued})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Operation", "Kind", "Queued"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}
