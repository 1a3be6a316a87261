package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTimeouts(); err != nil {
		return err
	}
	if err := c.validateTranslate(); err != nil {
		return err
	}
	if err := c.validateAuth(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	if strings.TrimSpace(c.Paths.Bind) == "" {
		return errors.New("paths.bind must be set")
	}
	return nil
}

func (c *Config) validateTimeouts() error {
	return ensurePositiveMap(map[string]int{
		"download.attempts":              c.Download.Attempts,
		"download.timeout_seconds":       c.Download.TimeoutSeconds,
		"ffmpeg.extract_timeout_seconds": c.FFmpeg.ExtractTimeout,
		"ffmpeg.burn_timeout_seconds":    c.FFmpeg.BurnTimeout,
		"whisper.timeout_seconds":        c.Whisper.TimeoutSeconds,
		"translate.timeout_seconds":      c.Translate.TimeoutSeconds,
		"workflow.max_active_jobs":       c.Workflow.MaxActiveJobs,
		"workflow.stale_timeout_seconds": c.Workflow.StaleTimeoutSeconds,
		"workflow.reap_interval_seconds": c.Workflow.ReapIntervalSeconds,
	})
}

func (c *Config) validateTranslate() error {
	if _, err := url.Parse(c.Translate.Endpoint); err != nil {
		return fmt.Errorf("translate.endpoint: %w", err)
	}
	return nil
}

func (c *Config) validateAuth() error {
	if !c.AuthEnabled() {
		return nil
	}
	parsed, err := url.Parse(c.Auth.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return errors.New("auth.url must be an absolute URL when set")
	}
	if strings.TrimSpace(c.Auth.AnonKey) == "" {
		return errors.New("auth.anon_key must be set when auth.url is configured (or set SUPABASE_ANON_KEY)")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
