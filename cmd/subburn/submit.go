package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newSubmitCommand(opts *cliOptions) *cobra.Command {
	var (
		sourceURL  string
		filePath   string
		targetLang string
		fontSize   int
		follow     bool
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a video by URL or local file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (sourceURL == "") == (filePath == "") {
				return fmt.Errorf("exactly one of --url and --file is required")
			}
			client, err := opts.client()
			if err != nil {
				return err
			}

			var id string
			if sourceURL != "" {
				id, err = client.submitURL(sourceURL, targetLang, fontSize)
			} else {
				id, err = client.submitFile(filePath, targetLang, fontSize)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)

			if follow {
				return followStatus(cmd, client, id)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceURL, "url", "", "video URL to download")
	cmd.Flags().StringVar(&filePath, "file", "", "local video file to upload")
	cmd.Flags().StringVar(&targetLang, "lang", "id", "target subtitle language")
	cmd.Flags().IntVar(&fontSize, "font-size", 24, "burned-in subtitle font size")
	cmd.Flags().BoolVar(&follow, "follow", false, "poll status until the job finishes")
	return cmd
}

func newStatusCommand(opts *cliOptions) *cobra.Command {
	var follow bool

	cmd := &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the current status of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			if follow {
				return followStatus(cmd, client, args[0])
			}
			status, err := client.status(args[0])
			if err != nil {
				return err
			}
			printStatus(cmd, status)
			return nil
		},
	}
	cmd.Flags().BoolVar(&follow, "follow", false, "poll status until the job finishes")
	return cmd
}

func newOutputCommand(opts *cliOptions) *cobra.Command {
	var dest string

	cmd := &cobra.Command{
		Use:   "output <job-id>",
		Short: "Download the finished video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			target := dest
			if target == "" {
				target = args[0] + ".mp4"
			}
			if err := client.downloadOutput(args[0], target); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), target)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dest, "out", "o", "", "destination path (default <job-id>.mp4)")
	return cmd
}

func newCancelCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Cancel a queued or running job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			if err := client.cancel(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cancelled %s\n", args[0])
			return nil
		},
	}
}

func followStatus(cmd *cobra.Command, client *apiClient, id string) error {
	var lastLine string
	for {
		status, err := client.status(id)
		if err != nil {
			return err
		}
		line := status.Status + ": " + status.Log
		if line != lastLine {
			printStatus(cmd, status)
			lastLine = line
		}
		switch status.Status {
		case "done":
			return nil
		case "failed", "cancelled", "error":
			return fmt.Errorf("job ended with status %s", status.Status)
		}
		time.Sleep(2 * time.Second)
	}
}

func printStatus(cmd *cobra.Command, status *statusResponse) {
	fmt.Fprintf(cmd.OutOrStdout(), "%-13s %s\n", status.Status, status.Log)
	if status.Output != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "%-13s %s\n", "output", status.Output)
	}
}
