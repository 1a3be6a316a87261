// Command subburnd runs the subtitle pipeline daemon: HTTP API, job
// dispatch, and background reaping.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"subburn/internal/config"
	"subburn/internal/daemon"
	"subburn/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "subburnd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	// Optional; environment fallbacks cover secrets like proxy credentials
	// and the auth anon key in deployments without a config file.
	_ = godotenv.Load()

	cfg, resolvedPath, _, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := daemon.New(cfg, resolvedPath, logger)
	if err != nil {
		return err
	}

	logger.Info("daemon starting",
		slog.String("config", resolvedPath),
		slog.String("bind", cfg.Paths.Bind),
		slog.String("data_dir", cfg.Paths.DataDir))

	if err := d.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("daemon stopped")
	return nil
}
