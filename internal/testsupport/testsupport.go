// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"subburn/internal/config"
	"subburn/internal/jobstore"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.Bind = "127.0.0.1:0"
	cfg.Download.Attempts = 1
	cfg.Download.BackoffSeconds = 0
	cfg.Download.MinBytes = 1

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithMaxActiveJobs overrides the admission ceiling on the test config.
func WithMaxActiveJobs(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.MaxActiveJobs = n
	}
}

// NewStore builds a job store rooted in the test config's data directory.
func NewStore(t testing.TB, cfg *config.Config) *jobstore.Store {
	t.Helper()
	return jobstore.New(cfg.Paths.DataDir)
}

// WriteFile writes contents to path, creating parent directories.
func WriteFile(t testing.TB, path string, contents []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
