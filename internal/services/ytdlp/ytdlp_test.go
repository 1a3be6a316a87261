package ytdlp_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"subburn/internal/config"
	"subburn/internal/services"
	"subburn/internal/services/ytdlp"
)

func downloadConfig() config.Download {
	cfg := config.Default().Download
	cfg.Attempts = 3
	cfg.TimeoutSeconds = 5
	cfg.BackoffSeconds = 0
	cfg.MinBytes = 10
	return cfg
}

func TestDownloadSucceedsOnLaterAttempt(t *testing.T) {
	jobDir := t.TempDir()
	dest := filepath.Join(jobDir, "video.mp4")

	calls := 0
	runner := func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		calls++
		if calls < 2 {
			return nil, errors.New("network reset")
		}
		if err := os.WriteFile(dest, make([]byte, 64), 0o644); err != nil {
			t.Fatalf("fake download: %v", err)
		}
		return nil, nil
	}

	client := ytdlp.NewClient(downloadConfig()).WithRunner(runner).WithSleep(func(time.Duration) {})
	got, err := client.Download(context.Background(), "https://example.com/v", jobDir, dest, nil)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if got != dest {
		t.Fatalf("path = %s, want %s", got, dest)
	}
	if calls != 2 {
		t.Fatalf("runner called %d times, want 2", calls)
	}
}

func TestDownloadNormalizesForeignFilename(t *testing.T) {
	jobDir := t.TempDir()
	dest := filepath.Join(jobDir, "video.mp4")

	runner := func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		// Some extractors ignore the output template and pick their own name.
		return nil, os.WriteFile(filepath.Join(jobDir, "clip.webm"), make([]byte, 64), 0o644)
	}

	client := ytdlp.NewClient(downloadConfig()).WithRunner(runner).WithSleep(func(time.Duration) {})
	got, err := client.Download(context.Background(), "https://example.com/v", jobDir, dest, nil)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if got != dest {
		t.Fatalf("path = %s, want normalized %s", got, dest)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("normalized file missing: %v", err)
	}
}

func TestDownloadExhaustsAttempts(t *testing.T) {
	jobDir := t.TempDir()
	dest := filepath.Join(jobDir, "video.mp4")

	calls := 0
	runner := func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		calls++
		return nil, errors.New("403 forbidden")
	}

	var attempts []int
	progress := func(attempt, total int) { attempts = append(attempts, attempt) }

	client := ytdlp.NewClient(downloadConfig()).WithRunner(runner).WithSleep(func(time.Duration) {})
	_, err := client.Download(context.Background(), "https://example.com/v", jobDir, dest, progress)
	if err == nil {
		t.Fatal("expected exhaustion error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("error not tagged external tool: %v", err)
	}
	if calls != 3 {
		t.Fatalf("runner called %d times, want 3", calls)
	}
	if len(attempts) != 3 || attempts[2] != 3 {
		t.Fatalf("progress attempts = %v", attempts)
	}
}

func TestFindDownloadedIgnoresPartialsAndRecords(t *testing.T) {
	jobDir := t.TempDir()
	writeSized := func(name string, size int) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(jobDir, name), make([]byte, size), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	writeSized("status.json", 100)
	writeSized("worker.log", 100)
	writeSized("clip.mp4.part", 100)
	writeSized("clip.f137.frag", 100)
	writeSized("tiny.mp4", 3)

	if found := ytdlp.FindDownloaded(jobDir, 10); found != "" {
		t.Fatalf("found %s, want nothing", found)
	}

	writeSized("clip.mp4", 100)
	found := ytdlp.FindDownloaded(jobDir, 10)
	if filepath.Base(found) != "clip.mp4" {
		t.Fatalf("found %s, want clip.mp4", found)
	}
}
