// Package ytdlp drives the external downloader. Site-specific extraction,
// cookies, and header tricks stay inside the tool; this package only builds
// a generic invocation and verifies that a usable media file came out.
package ytdlp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"subburn/internal/config"
	"subburn/internal/services"
)

// Partial-download suffixes the success check must ignore.
var partialSuffixes = []string{".part", ".temp", ".ytdl", ".frag"}

// Client invokes the downloader binary with bounded retries.
type Client struct {
	cfg    config.Download
	runner services.CommandRunner
	sleep  func(time.Duration)
}

// NewClient builds a downloader client from configuration.
func NewClient(cfg config.Download) *Client {
	return &Client{cfg: cfg, runner: services.Run, sleep: time.Sleep}
}

// WithRunner substitutes the command runner (for testing).
func (c *Client) WithRunner(runner services.CommandRunner) *Client {
	c.runner = runner
	return c
}

// WithSleep substitutes the backoff sleeper (for testing).
func (c *Client) WithSleep(sleep func(time.Duration)) *Client {
	c.sleep = sleep
	return c
}

// Download fetches url into dest inside jobDir. Attempts are bounded with
// increasing backoff; each attempt runs under its own wall-clock timeout.
// Returns the path of the downloaded file or an error after exhaustion.
func (c *Client) Download(ctx context.Context, url, jobDir, dest string, progress func(attempt, total int)) (string, error) {
	args := c.buildArgs(url, dest)
	timeout := time.Duration(c.cfg.TimeoutSeconds) * time.Second
	backoff := time.Duration(c.cfg.BackoffSeconds) * time.Second

	var lastErr error
	for attempt := 1; attempt <= c.cfg.Attempts; attempt++ {
		if progress != nil {
			progress(attempt, c.cfg.Attempts)
		}
		_, lastErr = services.RunWithTimeout(ctx, timeout, c.runner, c.cfg.Binary, args...)

		if found := FindDownloaded(jobDir, c.cfg.MinBytes); found != "" {
			if found != dest {
				if err := os.Rename(found, dest); err != nil {
					return "", fmt.Errorf("normalize downloaded file: %w", err)
				}
			}
			return dest, nil
		}

		if ctx.Err() != nil {
			break
		}
		if attempt < c.cfg.Attempts {
			c.sleep(backoff * time.Duration(attempt))
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("downloader produced no usable media file")
	}
	return "", services.Wrap(services.ErrExternalTool, "download", c.cfg.Binary,
		fmt.Sprintf("all %d attempts exhausted", c.cfg.Attempts), lastErr)
}

func (c *Client) buildArgs(url, dest string) []string {
	args := []string{
		"-o", dest,
		url,
		"--no-playlist",
		"--retries", "5",
		"--fragment-retries", "10",
		"--user-agent", c.cfg.UserAgent,
		"--referer", url,
	}
	if c.cfg.Proxy != "" {
		args = append(args, "--proxy", c.cfg.Proxy)
	}
	if c.cfg.CookiesFile != "" {
		args = append(args, "--cookies", c.cfg.CookiesFile)
	}
	return args
}

// FindDownloaded scans a job directory for a plausible media file: at least
// minBytes large, not a partial download, not one of the job's own records.
func FindDownloaded(jobDir string, minBytes int64) string {
	entries, err := os.ReadDir(jobDir)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if isPartial(name) || isJobRecord(name) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.Size() < minBytes {
			continue
		}
		return filepath.Join(jobDir, name)
	}
	return ""
}

func isPartial(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range partialSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

func isJobRecord(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".log", ".srt", ".wav":
		return true
	}
	return false
}
