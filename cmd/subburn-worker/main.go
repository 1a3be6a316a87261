// Command subburn-worker processes exactly one job and exits. The daemon
// launches one of these per submission in a detached session.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"subburn/internal/config"
	"subburn/internal/jobstore"
	"subburn/internal/logging"
	"subburn/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "subburn-worker: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to configuration file")
	jobID := flag.String("job-id", "", "job identifier")
	sourceURL := flag.String("source-url", "", "video URL (empty for uploaded input)")
	targetLang := flag.String("target-lang", "", "target subtitle language")
	fontSize := flag.Int("font-size", 24, "burned-in subtitle font size")
	flag.Parse()

	if *jobID == "" || *targetLang == "" {
		return fmt.Errorf("--job-id and --target-lang are required")
	}

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	// Stdout and stderr point at the job's worker log; console format keeps
	// that log readable next to raw tool output.
	logger := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: "console",
		Writer: os.Stdout,
	}).With(slog.String("component", "worker"))

	// SIGTERM from a cancellation tears down the in-flight tool invocation
	// through context cancellation.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := jobstore.New(cfg.Paths.DataDir)
	runner := pipeline.NewRunner(cfg, store, logger)

	job := pipeline.Job{
		ID:         *jobID,
		SourceURL:  *sourceURL,
		TargetLang: *targetLang,
		FontSize:   *fontSize,
	}
	logger.Info("worker starting", slog.String("job_id", job.ID), slog.Int("pid", os.Getpid()))
	return runner.Run(ctx, job)
}
