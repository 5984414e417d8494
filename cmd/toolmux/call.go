package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newCallCmd(opts *cliOptions) *cobra.Command {
	var argsJSON string

	cmd := &cobra.Command{
		Use:   "call <tool>",
		Short: "Invoke a tool by name and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var arguments map[string]any
			if argsJSON != "" {
				if err := json.Unmarshal([]byte(argsJSON), &arguments); err != nil {
					return fmt.Errorf("parse --args: %w", err)
				}
			}

			svc, release, err := startService(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer release()

			result, err := svc.CallTool(cmd.Context(), args[0], arguments)
			if err != nil {
				return err
			}

			if opts.jsonOutput {
				return writeJSON(map[string]any{
					"result": json.RawMessage(result.Result),
					"provenance": map[string]any{
						"traceId": result.Provenance.TraceID,
						"server":  result.Provenance.Server,
						"tool":    result.Provenance.Tool,
						"elapsed": result.Provenance.Elapsed.String(),
					},
				})
			}

			fmt.Println(string(result.Result))
			fmt.Fprintf(cmd.ErrOrStderr(), "trace=%s server=%s tool=%s elapsed=%s\n",
				result.Provenance.TraceID, result.Provenance.Server,
				result.Provenance.Tool, result.Provenance.Elapsed)

			return nil
		},
	}

	cmd.Flags().StringVar(&argsJSON, "args", "", "tool arguments as a JSON object")

	return cmd
}
