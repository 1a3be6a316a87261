// Package daemon composes the long-running service: single-instance lock,
// catalog, dispatcher, HTTP API, and the background reaper.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"subburn/internal/catalog"
	"subburn/internal/config"
	"subburn/internal/deps"
	"subburn/internal/dispatcher"
	"subburn/internal/jobstore"
	"subburn/internal/logging"
	"subburn/internal/server"
)

// Daemon owns the lifecycle of every long-lived component.
type Daemon struct {
	cfg        *config.Config
	configPath string
	logger     *slog.Logger

	lock  *flock.Flock
	store *jobstore.Store
	cat   *catalog.Store
	disp  *dispatcher.Dispatcher
	api   *server.Server
}

// New prepares a daemon. Nothing starts running until Run is called.
func New(cfg *config.Config, configPath string, logger *slog.Logger) (*Daemon, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	statuses := deps.CheckBinaries(deps.Requirements(cfg))
	for _, status := range statuses {
		if !status.Available {
			logger.Warn("external binary unavailable",
				slog.String("name", status.Name),
				slog.String("detail", status.Detail))
		}
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "subburnd.lock")
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another daemon already holds %s", lockPath)
	}

	cat, err := catalog.Open(cfg.Paths.DataDir)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	logger.Debug("catalog opened", slog.String("path", cat.Path()))

	store := jobstore.New(cfg.Paths.DataDir)
	disp := dispatcher.New(cfg, configPath, store, cat, logger)
	api := server.New(cfg, store, cat, disp, logger)

	return &Daemon{
		cfg:        cfg,
		configPath: configPath,
		logger:     logger.With(slog.String("component", "daemon")),
		lock:       lock,
		store:      store,
		cat:        cat,
		disp:       disp,
		api:        api,
	}, nil
}

// Run serves until the context is cancelled, then shuts everything down.
func (d *Daemon) Run(ctx context.Context) error {
	defer d.close()

	// Jobs left non-terminal by a previous daemon have no live worker
	// anymore; settle them before accepting new work.
	if err := d.reapOnce(ctx); err != nil {
		d.logger.Warn("startup reap failed", logging.Error(err))
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return d.api.ListenAndServe(groupCtx)
	})
	group.Go(func() error {
		d.reapLoop(groupCtx)
		return nil
	})

	err := group.Wait()
	d.disp.Shutdown()
	return err
}

func (d *Daemon) close() {
	if err := d.cat.Close(); err != nil {
		d.logger.Warn("close catalog", logging.Error(err))
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("release daemon lock", logging.Error(err))
	}
	_ = os.Remove(d.lock.Path())
}
