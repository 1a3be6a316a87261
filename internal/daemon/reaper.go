package daemon

import (
	"context"
	"log/slog"
	"time"

	"subburn/internal/dispatcher"
	"subburn/internal/jobstore"
	"subburn/internal/logging"
)

// reapLoop periodically settles abandoned jobs and prunes expired ones.
func (d *Daemon) reapLoop(ctx context.Context) {
	interval := time.Duration(d.cfg.Workflow.ReapIntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.reapOnce(ctx); err != nil {
				d.logger.Warn("reap pass failed", logging.Error(err))
			}
			if err := d.pruneExpired(ctx); err != nil {
				d.logger.Warn("retention prune failed", logging.Error(err))
			}
		}
	}
}

// reapOnce marks abandoned jobs as failed. A job is abandoned when its
// recorded worker pid is dead, or when its record has not moved within the
// stale timeout and the daemon tracks no live worker for it.
func (d *Daemon) reapOnce(ctx context.Context) error {
	entries, err := d.cat.ListActive(ctx)
	if err != nil {
		return err
	}
	staleAfter := time.Duration(d.cfg.Workflow.StaleTimeoutSeconds) * time.Second

	for _, entry := range entries {
		record, err := d.store.Read(entry.ID)
		if err != nil {
			continue
		}

		if record.Status.IsTerminal() {
			// The worker finished but the terminal mirror never landed.
			message := record.Log
			if record.Status != jobstore.StatusFailed {
				message = ""
			}
			if err := d.cat.MarkTerminal(ctx, entry.ID, record.Status, message); err != nil {
				d.logger.Warn("terminal mirror failed", slog.String("job_id", entry.ID), logging.Error(err))
			}
			continue
		}

		if !d.shouldReap(entry.ID, record, staleAfter) {
			continue
		}

		d.logger.Info("reaping abandoned job",
			slog.String("job_id", entry.ID),
			slog.String("status", string(record.Status)),
			slog.Int("pid", record.PID))
		failed := jobstore.Record{Status: jobstore.StatusFailed, Log: "Worker stopped responding"}
		if err := d.store.Update(entry.ID, failed); err != nil {
			d.logger.Warn("reap write failed", slog.String("job_id", entry.ID), logging.Error(err))
			continue
		}
		if err := d.cat.MarkTerminal(ctx, entry.ID, jobstore.StatusFailed, "worker stopped responding"); err != nil {
			d.logger.Warn("terminal mirror failed", slog.String("job_id", entry.ID), logging.Error(err))
		}
	}
	return nil
}

func (d *Daemon) shouldReap(id string, record jobstore.Record, staleAfter time.Duration) bool {
	if d.disp.Running(id) {
		return false
	}
	if record.PID > 0 {
		return !dispatcher.Alive(record.PID)
	}
	// No pid recorded yet. Give the worker the stale window to claim the job.
	return !record.UpdatedAt.IsZero() && time.Since(record.UpdatedAt) > staleAfter
}

// pruneExpired deletes terminal jobs past the retention window, catalog row
// and job directory together.
func (d *Daemon) pruneExpired(ctx context.Context) error {
	retention := d.cfg.Workflow.RetentionDays
	if retention <= 0 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -retention)
	ids, err := d.cat.PruneOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := d.store.Remove(id); err != nil {
			d.logger.Warn("remove expired job directory", slog.String("job_id", id), logging.Error(err))
		}
	}
	if len(ids) > 0 {
		d.logger.Info("pruned expired jobs", slog.Int("count", len(ids)))
	}
	return nil
}
