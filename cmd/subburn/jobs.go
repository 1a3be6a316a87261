package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newJobsCommand(opts *cliOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List recent jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			entries, err := client.jobs(limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no jobs")
				return nil
			}

			writer := table.NewWriter()
			writer.SetOutputMirror(cmd.OutOrStdout())
			writer.SetStyle(table.StyleLight)
			writer.AppendHeader(table.Row{"ID", "Source", "Lang", "Status", "Created", "Detail"})
			for _, entry := range entries {
				source := entry.SourceKind
				if entry.Source != "" {
					source = truncateCell(entry.Source, 40)
				}
				detail := entry.Error
				writer.AppendRow(table.Row{
					entry.ID,
					source,
					entry.TargetLang,
					entry.Status,
					entry.CreatedAt,
					truncateCell(detail, 40),
				})
			}
			writer.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of jobs to list")
	return cmd
}

func truncateCell(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max-1] + "…"
}
