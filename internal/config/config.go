package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir      string `toml:"data_dir"`
	LogDir       string `toml:"log_dir"`
	Bind         string `toml:"bind"`
	WorkerBinary string `toml:"worker_binary"`
}

// Download contains the invocation surface for the external downloader.
// Site-specific extraction stays inside the tool; only generic knobs live here.
type Download struct {
	Binary         string `toml:"binary"`
	Attempts       int    `toml:"attempts"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	BackoffSeconds int    `toml:"backoff_seconds"`
	MinBytes       int64  `toml:"min_bytes"`
	UserAgent      string `toml:"user_agent"`
	Proxy          string `toml:"proxy"`
	CookiesFile    string `toml:"cookies_file"`
}

// FFmpeg contains configuration for audio extraction and subtitle burn-in.
type FFmpeg struct {
	Binary         string `toml:"binary"`
	ExtractTimeout int    `toml:"extract_timeout_seconds"`
	BurnTimeout    int    `toml:"burn_timeout_seconds"`
	VideoCodec     string `toml:"video_codec"`
	Preset         string `toml:"preset"`
	CRF            int    `toml:"crf"`
}

// Whisper contains configuration for the external speech-to-text engine.
type Whisper struct {
	Binary         string `toml:"binary"`
	Model          string `toml:"model"`
	Device         string `toml:"device"`
	ComputeType    string `toml:"compute_type"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Translate contains configuration for the line-by-line translation service.
type Translate struct {
	Endpoint       string `toml:"endpoint"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Concurrency    int    `toml:"concurrency"`
}

// Workflow contains job admission, reaping, and retention settings.
type Workflow struct {
	MaxActiveJobs       int `toml:"max_active_jobs"`
	StaleTimeoutSeconds int `toml:"stale_timeout_seconds"`
	ReapIntervalSeconds int `toml:"reap_interval_seconds"`
	RetentionDays       int `toml:"retention_days"`
}

// Auth contains configuration for the optional GoTrue authentication proxy.
type Auth struct {
	URL     string `toml:"url"`
	AnonKey string `toml:"anon_key"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for subburn.
//
// Configuration sections by subsystem:
//   - Paths: job data directory, log directory, HTTP bind, worker binary
//   - Download: external downloader invocation (attempts, timeouts, credentials)
//   - FFmpeg: audio extraction and burn-in encoder settings
//   - Whisper: speech-to-text engine invocation
//   - Translate: translation endpoint and fan-out concurrency
//   - Workflow: admission ceiling, stale-job reaping, retention
//   - Auth: optional GoTrue proxy (disabled when url is empty)
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Download  Download  `toml:"download"`
	FFmpeg    FFmpeg    `toml:"ffmpeg"`
	Whisper   Whisper   `toml:"whisper"`
	Translate Translate `toml:"translate"`
	Workflow  Workflow  `toml:"workflow"`
	Auth      Auth      `toml:"auth"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/subburn/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("subburn.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories required for operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// AuthEnabled reports whether the GoTrue proxy should be mounted.
func (c *Config) AuthEnabled() bool {
	return strings.TrimSpace(c.Auth.URL) != ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
