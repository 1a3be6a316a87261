package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"subburn/internal/deps"
)

func newDepsCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check availability of required external binaries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := opts.loadConfig()
			if err != nil {
				return err
			}
			statuses := deps.CheckBinaries(deps.Requirements(cfg))

			writer := table.NewWriter()
			writer.SetOutputMirror(cmd.OutOrStdout())
			writer.SetStyle(table.StyleLight)
			writer.AppendHeader(table.Row{"Name", "Command", "Available", "Detail"})
			for _, status := range statuses {
				available := "yes"
				if !status.Available {
					available = "no"
				}
				writer.AppendRow(table.Row{status.Name, status.Command, available, status.Detail})
			}
			writer.Render()

			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				return fmt.Errorf("missing required binaries: %v", missing)
			}
			return nil
		},
	}
}
