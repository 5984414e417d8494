package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newListCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tools discovered from all configured servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, release, err := startService(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer release()

			tools := svc.ListTools()
			conflicts := svc.ToolConflicts()

			if opts.jsonOutput {
				return writeJSON(map[string]any{
					"tools":     tools,
					"conflicts": conflicts,
				})
			}

			for _, tool := range tools {
				if tool.Description != "" {
					fmt.Printf("%s\t%s\n", tool.Name, tool.Description)
				} else {
					fmt.Println(tool.Name)
				}
			}

			for _, c := range conflicts {
				fmt.Fprintf(cmd.ErrOrStderr(), "conflict: tool %q from %s shadowed by %s\n",
					c.Name, c.Server, c.ExistingServer)
			}

			return nil
		},
	}
}

func writeJSON(value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))

	return nil
}
