package daemon

import (
	"context"
	"os"
	"testing"
	"time"

	"subburn/internal/catalog"
	"subburn/internal/dispatcher"
	"subburn/internal/jobstore"
	"subburn/internal/logging"
	"subburn/internal/testsupport"
)

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.StaleTimeoutSeconds = 1

	store := testsupport.NewStore(t, cfg)
	cat, err := catalog.Open(cfg.Paths.DataDir)
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { cat.Close() })

	logger := logging.NewNop()
	return &Daemon{
		cfg:    cfg,
		logger: logger,
		store:  store,
		cat:    cat,
		disp:   dispatcher.New(cfg, "", store, cat, logger),
	}
}

func seedJob(t *testing.T, d *Daemon, id string) {
	t.Helper()
	if err := d.store.Create(id, "Job accepted"); err != nil {
		t.Fatalf("create: %v", err)
	}
	entry := catalog.Entry{ID: id, SourceKind: catalog.SourceUpload, TargetLang: "id", FontSize: 24}
	if err := d.cat.Insert(context.Background(), entry); err != nil {
		t.Fatalf("insert: %v", err)
	}
}

func TestReapOnceMarksDeadWorkerFailed(t *testing.T) {
	d := newTestDaemon(t)
	seedJob(t, d, "job-1")

	// A pid from a worker that no longer exists.
	record := jobstore.Record{Status: jobstore.StatusTranscribing, Log: "Transcribing", PID: 1 << 22}
	if err := d.store.Update("job-1", record); err != nil {
		t.Fatalf("update: %v", err)
	}

	if err := d.reapOnce(context.Background()); err != nil {
		t.Fatalf("reap: %v", err)
	}

	got, _ := d.store.Read("job-1")
	if got.Status != jobstore.StatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	entry, err := d.cat.Get(context.Background(), "job-1")
	if err != nil || entry == nil {
		t.Fatalf("catalog: %v", err)
	}
	if entry.Status != jobstore.StatusFailed {
		t.Fatalf("catalog status = %s, want failed", entry.Status)
	}
}

func TestReapOnceMirrorsTerminalRecords(t *testing.T) {
	d := newTestDaemon(t)
	seedJob(t, d, "job-1")
	if err := d.store.Update("job-1", jobstore.Record{Status: jobstore.StatusDone, Log: "Completed"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	if err := d.reapOnce(context.Background()); err != nil {
		t.Fatalf("reap: %v", err)
	}

	entry, err := d.cat.Get(context.Background(), "job-1")
	if err != nil || entry == nil {
		t.Fatalf("catalog: %v", err)
	}
	if entry.Status != jobstore.StatusDone {
		t.Fatalf("catalog status = %s, want done mirror", entry.Status)
	}
}

func TestReapOnceLeavesFreshQueuedJobsAlone(t *testing.T) {
	d := newTestDaemon(t)
	seedJob(t, d, "job-1")

	if err := d.reapOnce(context.Background()); err != nil {
		t.Fatalf("reap: %v", err)
	}

	got, _ := d.store.Read("job-1")
	if got.Status != jobstore.StatusQueued {
		t.Fatalf("status = %s, want queued untouched", got.Status)
	}
}

func TestReapOnceReapsStaleQueuedJobs(t *testing.T) {
	d := newTestDaemon(t)
	seedJob(t, d, "job-1")

	time.Sleep(1100 * time.Millisecond)
	if err := d.reapOnce(context.Background()); err != nil {
		t.Fatalf("reap: %v", err)
	}

	got, _ := d.store.Read("job-1")
	if got.Status != jobstore.StatusFailed {
		t.Fatalf("status = %s, want failed after stale window", got.Status)
	}
}

func TestReapOnceSkipsLivePIDs(t *testing.T) {
	d := newTestDaemon(t)
	seedJob(t, d, "job-1")

	record := jobstore.Record{Status: jobstore.StatusBurning, Log: "Rendering", PID: os.Getpid()}
	if err := d.store.Update("job-1", record); err != nil {
		t.Fatalf("update: %v", err)
	}

	if err := d.reapOnce(context.Background()); err != nil {
		t.Fatalf("reap: %v", err)
	}

	got, _ := d.store.Read("job-1")
	if got.Status != jobstore.StatusBurning {
		t.Fatalf("status = %s, want burning untouched", got.Status)
	}
}

func TestPruneExpiredHonorsRetentionWindow(t *testing.T) {
	d := newTestDaemon(t)
	seedJob(t, d, "job-1")
	if err := d.store.Update("job-1", jobstore.Record{Status: jobstore.StatusDone, Log: "Completed"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := d.cat.MarkTerminal(context.Background(), "job-1", jobstore.StatusDone, ""); err != nil {
		t.Fatalf("mark: %v", err)
	}

	// RetentionDays <= 0 disables pruning entirely.
	d.cfg.Workflow.RetentionDays = 0
	if err := d.pruneExpired(context.Background()); err != nil {
		t.Fatalf("prune: %v", err)
	}
	if !d.store.Exists("job-1") {
		t.Fatal("disabled retention must not prune")
	}

	// A fresh job sits inside any positive window.
	d.cfg.Workflow.RetentionDays = 1
	if err := d.pruneExpired(context.Background()); err != nil {
		t.Fatalf("prune: %v", err)
	}
	if !d.store.Exists("job-1") {
		t.Fatal("job inside retention window was pruned")
	}
}
