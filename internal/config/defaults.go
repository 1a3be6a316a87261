package config

const (
	defaultDataDir             = "~/.local/share/subburn/jobs"
	defaultLogDir              = "~/.local/share/subburn/logs"
	defaultBind                = "127.0.0.1:8917"
	defaultDownloadBinary      = "yt-dlp"
	defaultDownloadAttempts    = 3
	defaultDownloadTimeout     = 900
	defaultDownloadBackoff     = 3
	defaultDownloadMinBytes    = 200_000
	defaultDownloadUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0 Safari/537.36"
	defaultFFmpegBinary        = "ffmpeg"
	defaultExtractTimeout      = 600
	defaultBurnTimeout         = 3600
	defaultVideoCodec          = "libx264"
	defaultEncoderPreset       = "veryfast"
	defaultEncoderCRF          = 23
	defaultWhisperBinary       = "whisperx"
	defaultWhisperModel        = "small"
	defaultWhisperDevice       = "cpu"
	defaultWhisperComputeType  = "int8"
	defaultWhisperTimeout      = 1800
	defaultTranslateEndpoint   = "https://translate.googleapis.com/translate_a/single"
	defaultTranslateTimeout    = 10
	defaultTranslateConcurrent = 4
	defaultMaxActiveJobs       = 4
	defaultStaleTimeout        = 300
	defaultReapInterval        = 30
	defaultRetentionDays       = 7
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			Bind:    defaultBind,
		},
		Download: Download{
			Binary:         defaultDownloadBinary,
			Attempts:       defaultDownloadAttempts,
			TimeoutSeconds: defaultDownloadTimeout,
			BackoffSeconds: defaultDownloadBackoff,
			MinBytes:       defaultDownloadMinBytes,
			UserAgent:      defaultDownloadUserAgent,
		},
		FFmpeg: FFmpeg{
			Binary:         defaultFFmpegBinary,
			ExtractTimeout: defaultExtractTimeout,
			BurnTimeout:    defaultBurnTimeout,
			VideoCodec:     defaultVideoCodec,
			Preset:         defaultEncoderPreset,
			CRF:            defaultEncoderCRF,
		},
		Whisper: Whisper{
			Binary:         defaultWhisperBinary,
			Model:          defaultWhisperModel,
			Device:         defaultWhisperDevice,
			ComputeType:    defaultWhisperComputeType,
			TimeoutSeconds: defaultWhisperTimeout,
		},
		Translate: Translate{
			Endpoint:       defaultTranslateEndpoint,
			TimeoutSeconds: defaultTranslateTimeout,
			Concurrency:    defaultTranslateConcurrent,
		},
		Workflow: Workflow{
			MaxActiveJobs:       defaultMaxActiveJobs,
			StaleTimeoutSeconds: defaultStaleTimeout,
			ReapIntervalSeconds: defaultReapInterval,
			RetentionDays:       defaultRetentionDays,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
