// Package dispatcher admits submissions and launches one detached worker
// process per job.
//
// The daemon never runs pipeline stages in its own process. Each job gets a
// subburn-worker child in its own session, so a crashing tool invocation
// takes down only that job. Admission is bounded by a weighted semaphore;
// when the ceiling is reached Submit fails fast instead of queueing.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sys/unix"

	"subburn/internal/catalog"
	"subburn/internal/config"
	"subburn/internal/jobstore"
	"subburn/internal/language"
	"subburn/internal/logging"
	"subburn/internal/services"
)

// ErrBusy is returned when the active-job ceiling is reached.
var ErrBusy = errors.New("maximum number of active jobs reached")

// Font size bounds for burned-in subtitles.
const (
	DefaultFontSize = 24
	minFontSize     = 8
	maxFontSize     = 72
)

// Submission is one incoming job request. Exactly one of SourceURL and
// Upload must be set.
type Submission struct {
	SourceURL  string
	Upload     io.Reader
	TargetLang string
	FontSize   int
}

// Dispatcher validates submissions and manages worker processes.
type Dispatcher struct {
	cfg        *config.Config
	configPath string
	store      *jobstore.Store
	cat        *catalog.Store
	logger     *slog.Logger
	slots      *semaphore.Weighted

	mu      sync.Mutex
	running map[string]*exec.Cmd
}

// New builds a dispatcher. configPath is forwarded to worker processes so
// they load the same configuration the daemon runs with.
func New(cfg *config.Config, configPath string, store *jobstore.Store, cat *catalog.Store, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:        cfg,
		configPath: configPath,
		store:      store,
		cat:        cat,
		logger:     logger.With(slog.String("component", "dispatcher")),
		slots:      semaphore.NewWeighted(int64(cfg.Workflow.MaxActiveJobs)),
		running:    make(map[string]*exec.Cmd),
	}
}

// Submit validates, admits, and launches a job. It returns the new job id,
// ErrBusy when the ceiling is reached, or a validation error. It never
// blocks waiting for a slot.
func (d *Dispatcher) Submit(ctx context.Context, sub Submission) (string, error) {
	targetLang, fontSize, err := d.validate(sub)
	if err != nil {
		return "", err
	}

	if !d.slots.TryAcquire(1) {
		return "", ErrBusy
	}

	id := uuid.NewString()
	if err := d.admit(ctx, id, sub, targetLang, fontSize); err != nil {
		d.slots.Release(1)
		return "", err
	}

	if err := d.spawn(id, sub.SourceURL, targetLang, fontSize); err != nil {
		d.slots.Release(1)
		_ = d.store.Update(id, jobstore.Record{Status: jobstore.StatusFailed, Log: "Worker process could not be started"})
		_ = d.cat.MarkTerminal(ctx, id, jobstore.StatusFailed, "worker spawn failed")
		return "", err
	}

	d.logger.Info("job admitted",
		slog.String("job_id", id),
		slog.String("target_lang", targetLang),
		slog.Bool("upload", sub.Upload != nil))
	return id, nil
}

func (d *Dispatcher) validate(sub Submission) (string, int, error) {
	hasURL := strings.TrimSpace(sub.SourceURL) != ""
	if hasURL == (sub.Upload != nil) {
		return "", 0, services.Wrap(services.ErrValidation, "submit", "input",
			"exactly one of url and file is required", nil)
	}

	targetLang, err := language.Normalize(sub.TargetLang)
	if err != nil {
		return "", 0, services.Wrap(services.ErrValidation, "submit", "target language",
			fmt.Sprintf("unrecognized language %q", sub.TargetLang), err)
	}

	fontSize := sub.FontSize
	if fontSize == 0 {
		fontSize = DefaultFontSize
	}
	if fontSize < minFontSize || fontSize > maxFontSize {
		return "", 0, services.Wrap(services.ErrValidation, "submit", "font size",
			fmt.Sprintf("font size must be between %d and %d", minFontSize, maxFontSize), nil)
	}
	return targetLang, fontSize, nil
}

// admit materializes the job directory, the uploaded input when present,
// and the catalog row.
func (d *Dispatcher) admit(ctx context.Context, id string, sub Submission, targetLang string, fontSize int) error {
	if err := d.store.Create(id, "Job accepted"); err != nil {
		return err
	}

	if sub.Upload != nil {
		if err := d.materializeUpload(id, sub.Upload); err != nil {
			_ = d.store.Remove(id)
			return err
		}
	}

	kind := catalog.SourceURL
	if sub.Upload != nil {
		kind = catalog.SourceUpload
	}
	entry := catalog.Entry{
		ID:         id,
		SourceKind: kind,
		Source:     strings.TrimSpace(sub.SourceURL),
		TargetLang: targetLang,
		FontSize:   fontSize,
	}
	if err := d.cat.Insert(ctx, entry); err != nil {
		_ = d.store.Remove(id)
		return err
	}
	return nil
}

func (d *Dispatcher) materializeUpload(id string, upload io.Reader) error {
	dest := d.store.Paths(id).Video()
	file, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create upload target: %w", err)
	}
	written, err := io.Copy(file, upload)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("persist upload: %w", err)
	}
	if written == 0 {
		return services.Wrap(services.ErrValidation, "submit", "input", "uploaded file is empty", nil)
	}
	return nil
}

// spawn starts the worker in its own session with stdout and stderr
// redirected into the job's worker log. The slot is released when the
// process exits, however it exits.
func (d *Dispatcher) spawn(id, sourceURL, targetLang string, fontSize int) error {
	workerPath, err := d.workerBinary()
	if err != nil {
		return err
	}

	args := []string{
		"--config", d.configPath,
		"--job-id", id,
		"--target-lang", targetLang,
		"--font-size", strconv.Itoa(fontSize),
	}
	if sourceURL != "" {
		args = append(args, "--source-url", sourceURL)
	}

	logFile, err := os.OpenFile(d.store.Paths(id).WorkerLog(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open worker log: %w", err)
	}

	cmd := exec.Command(workerPath, args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return fmt.Errorf("start worker: %w", err)
	}

	d.mu.Lock()
	d.running[id] = cmd
	d.mu.Unlock()

	go d.reap(id, cmd, logFile)
	return nil
}

func (d *Dispatcher) reap(id string, cmd *exec.Cmd, logFile *os.File) {
	err := cmd.Wait()
	logFile.Close()

	d.mu.Lock()
	delete(d.running, id)
	d.mu.Unlock()
	d.slots.Release(1)

	if err != nil {
		d.logger.Warn("worker exited with error", slog.String("job_id", id), logging.Error(err))
	} else {
		d.logger.Info("worker exited", slog.String("job_id", id))
	}
}

// Cancel terminates a running job and records the cancelled outcome. Jobs
// already terminal are left untouched.
func (d *Dispatcher) Cancel(ctx context.Context, id string) error {
	record, err := d.store.Read(id)
	if err != nil {
		return err
	}
	if record.Status.IsTerminal() {
		return services.Wrap(services.ErrValidation, "cancel", "", "job already finished", nil)
	}

	d.mu.Lock()
	cmd := d.running[id]
	d.mu.Unlock()
	if cmd != nil && cmd.Process != nil {
		// Negative pid signals the whole session, reaching tool children too.
		_ = unix.Kill(-cmd.Process.Pid, unix.SIGTERM)
	}

	if err := d.store.Update(id, jobstore.Record{Status: jobstore.StatusCancelled, Log: "Cancelled by request"}); err != nil {
		return err
	}
	if err := d.cat.MarkTerminal(ctx, id, jobstore.StatusCancelled, "cancelled by request"); err != nil {
		d.logger.Warn("catalog cancel mirror failed", slog.String("job_id", id), logging.Error(err))
	}
	d.logger.Info("job cancelled", slog.String("job_id", id))
	return nil
}

// Running reports whether the daemon currently tracks a live worker for id.
func (d *Dispatcher) Running(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.running[id]
	return ok
}

// Shutdown signals every tracked worker session. Workers record their own
// failure or get reaped as stale on the next daemon start.
func (d *Dispatcher) Shutdown() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, cmd := range d.running {
		if cmd.Process != nil {
			_ = unix.Kill(-cmd.Process.Pid, unix.SIGTERM)
		}
		d.logger.Info("signalled worker for shutdown", slog.String("job_id", id))
	}
}

// workerBinary resolves the worker executable: explicit configuration first,
// then a sibling of the daemon binary, then PATH.
func (d *Dispatcher) workerBinary() (string, error) {
	if configured := strings.TrimSpace(d.cfg.Paths.WorkerBinary); configured != "" {
		return configured, nil
	}
	if self, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(self), "subburn-worker")
		if info, statErr := os.Stat(sibling); statErr == nil && !info.IsDir() {
			return sibling, nil
		}
	}
	path, err := exec.LookPath("subburn-worker")
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "spawn", "worker binary",
			"subburn-worker not found; set paths.worker_binary", err)
	}
	return path, nil
}

// Alive reports whether a process with the given pid still exists.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return unix.Kill(pid, 0) == nil
}
