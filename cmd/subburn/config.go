package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"subburn/internal/config"
)

func newConfigCommand(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}
	cmd.AddCommand(newConfigInitCommand(opts), newConfigShowCommand(opts))
	return cmd
}

func newConfigInitCommand(opts *cliOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := opts.configPath
			if path == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				path = defaultPath
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.CreateSample(path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newConfigShowCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, err := opts.loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config file:  %s\n", path)
			fmt.Fprintf(out, "bind:         %s\n", cfg.Paths.Bind)
			fmt.Fprintf(out, "data dir:     %s\n", cfg.Paths.DataDir)
			fmt.Fprintf(out, "log dir:      %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "max active:   %d\n", cfg.Workflow.MaxActiveJobs)
			fmt.Fprintf(out, "retention:    %d days\n", cfg.Workflow.RetentionDays)
			fmt.Fprintf(out, "auth enabled: %t\n", cfg.AuthEnabled())
			return nil
		},
	}
}
