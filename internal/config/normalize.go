package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDownload()
	c.normalizeFFmpeg()
	c.normalizeWhisper()
	c.normalizeTranslate()
	c.normalizeWorkflow()
	c.normalizeAuth()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.Bind = strings.TrimSpace(c.Paths.Bind)
	if c.Paths.Bind == "" {
		c.Paths.Bind = defaultBind
	}
	c.Paths.WorkerBinary = strings.TrimSpace(c.Paths.WorkerBinary)
	if c.Paths.WorkerBinary != "" {
		if c.Paths.WorkerBinary, err = expandPath(c.Paths.WorkerBinary); err != nil {
			return fmt.Errorf("paths.worker_binary: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeDownload() {
	c.Download.Binary = strings.TrimSpace(c.Download.Binary)
	if c.Download.Binary == "" {
		c.Download.Binary = defaultDownloadBinary
	}
	if c.Download.Attempts <= 0 {
		c.Download.Attempts = defaultDownloadAttempts
	}
	if c.Download.TimeoutSeconds <= 0 {
		c.Download.TimeoutSeconds = defaultDownloadTimeout
	}
	if c.Download.BackoffSeconds <= 0 {
		c.Download.BackoffSeconds = defaultDownloadBackoff
	}
	if c.Download.MinBytes <= 0 {
		c.Download.MinBytes = defaultDownloadMinBytes
	}
	c.Download.UserAgent = strings.TrimSpace(c.Download.UserAgent)
	if c.Download.UserAgent == "" {
		c.Download.UserAgent = defaultDownloadUserAgent
	}
	c.Download.Proxy = strings.TrimSpace(c.Download.Proxy)
	if c.Download.Proxy == "" {
		if value, ok := os.LookupEnv("SUBBURN_PROXY"); ok {
			c.Download.Proxy = strings.TrimSpace(value)
		}
	}
	c.Download.CookiesFile = strings.TrimSpace(c.Download.CookiesFile)
	if c.Download.CookiesFile == "" {
		if value, ok := os.LookupEnv("SUBBURN_COOKIES"); ok {
			c.Download.CookiesFile = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeFFmpeg() {
	c.FFmpeg.Binary = strings.TrimSpace(c.FFmpeg.Binary)
	if c.FFmpeg.Binary == "" {
		if value, ok := os.LookupEnv("FFMPEG"); ok && strings.TrimSpace(value) != "" {
			c.FFmpeg.Binary = strings.TrimSpace(value)
		} else {
			c.FFmpeg.Binary = defaultFFmpegBinary
		}
	}
	if c.FFmpeg.ExtractTimeout <= 0 {
		c.FFmpeg.ExtractTimeout = defaultExtractTimeout
	}
	if c.FFmpeg.BurnTimeout <= 0 {
		c.FFmpeg.BurnTimeout = defaultBurnTimeout
	}
	c.FFmpeg.VideoCodec = strings.TrimSpace(c.FFmpeg.VideoCodec)
	if c.FFmpeg.VideoCodec == "" {
		c.FFmpeg.VideoCodec = defaultVideoCodec
	}
	c.FFmpeg.Preset = strings.TrimSpace(c.FFmpeg.Preset)
	if c.FFmpeg.Preset == "" {
		c.FFmpeg.Preset = defaultEncoderPreset
	}
	if c.FFmpeg.CRF <= 0 {
		c.FFmpeg.CRF = defaultEncoderCRF
	}
}

func (c *Config) normalizeWhisper() {
	c.Whisper.Binary = strings.TrimSpace(c.Whisper.Binary)
	if c.Whisper.Binary == "" {
		c.Whisper.Binary = defaultWhisperBinary
	}
	c.Whisper.Model = strings.TrimSpace(c.Whisper.Model)
	if c.Whisper.Model == "" {
		c.Whisper.Model = defaultWhisperModel
	}
	c.Whisper.Device = strings.ToLower(strings.TrimSpace(c.Whisper.Device))
	if c.Whisper.Device == "" {
		c.Whisper.Device = defaultWhisperDevice
	}
	c.Whisper.ComputeType = strings.ToLower(strings.TrimSpace(c.Whisper.ComputeType))
	if c.Whisper.ComputeType == "" {
		c.Whisper.ComputeType = defaultWhisperComputeType
	}
	if c.Whisper.TimeoutSeconds <= 0 {
		c.Whisper.TimeoutSeconds = defaultWhisperTimeout
	}
}

func (c *Config) normalizeTranslate() {
	c.Translate.Endpoint = strings.TrimSpace(c.Translate.Endpoint)
	if c.Translate.Endpoint == "" {
		c.Translate.Endpoint = defaultTranslateEndpoint
	}
	if c.Translate.TimeoutSeconds <= 0 {
		c.Translate.TimeoutSeconds = defaultTranslateTimeout
	}
	if c.Translate.Concurrency <= 0 {
		c.Translate.Concurrency = defaultTranslateConcurrent
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.MaxActiveJobs <= 0 {
		c.Workflow.MaxActiveJobs = defaultMaxActiveJobs
	}
	if c.Workflow.StaleTimeoutSeconds <= 0 {
		c.Workflow.StaleTimeoutSeconds = defaultStaleTimeout
	}
	if c.Workflow.ReapIntervalSeconds <= 0 {
		c.Workflow.ReapIntervalSeconds = defaultReapInterval
	}
	if c.Workflow.RetentionDays < 0 {
		c.Workflow.RetentionDays = 0
	}
}

func (c *Config) normalizeAuth() {
	c.Auth.URL = strings.TrimSpace(c.Auth.URL)
	if c.Auth.URL == "" {
		if value, ok := os.LookupEnv("SUPABASE_URL"); ok {
			c.Auth.URL = strings.TrimSpace(value)
		}
	}
	c.Auth.URL = strings.TrimRight(c.Auth.URL, "/")
	c.Auth.AnonKey = strings.TrimSpace(c.Auth.AnonKey)
	if c.Auth.AnonKey == "" {
		if value, ok := os.LookupEnv("SUPABASE_ANON_KEY"); ok {
			c.Auth.AnonKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console", "json", "auto":
	default:
		c.Logging.Format = defaultLogFormat
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "auto"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
