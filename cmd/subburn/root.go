package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"subburn/internal/config"
)

type cliOptions struct {
	configPath string
}

func newRootCommand() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:           "subburn",
		Short:         "Submit videos for subtitle translation and burn-in",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to configuration file")

	root.AddCommand(
		newSubmitCommand(opts),
		newStatusCommand(opts),
		newOutputCommand(opts),
		newCancelCommand(opts),
		newJobsCommand(opts),
		newConfigCommand(opts),
		newDepsCommand(opts),
	)
	return root
}

func (o *cliOptions) loadConfig() (*config.Config, string, error) {
	cfg, path, _, err := config.Load(o.configPath)
	if err != nil {
		return nil, "", fmt.Errorf("load configuration: %w", err)
	}
	return cfg, path, nil
}

func (o *cliOptions) client() (*apiClient, error) {
	cfg, _, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	return newAPIClient(cfg.Paths.Bind), nil
}
