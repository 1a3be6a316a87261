// Package ffmpeg wraps the two ffmpeg invocations of the pipeline: audio
// extraction for transcription and the subtitle burn-in render.
package ffmpeg

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"subburn/internal/config"
	"subburn/internal/services"
)

// Service runs ffmpeg.
type Service struct {
	cfg    config.FFmpeg
	runner services.CommandRunner
}

// NewService builds an ffmpeg service from configuration.
func NewService(cfg config.FFmpeg) *Service {
	return &Service{cfg: cfg, runner: services.Run}
}

// WithRunner substitutes the command runner (for testing).
func (s *Service) WithRunner(runner services.CommandRunner) *Service {
	s.runner = runner
	return s
}

// ExtractAudio strips the audio track into a mono 16 kHz WAV, the input
// format the transcription model expects.
func (s *Service) ExtractAudio(ctx context.Context, videoPath, audioPath string) error {
	args := []string{
		"-y",
		"-i", videoPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-acodec", "pcm_s16le",
		audioPath,
	}
	timeout := time.Duration(s.cfg.ExtractTimeout) * time.Second
	if _, err := services.RunWithTimeout(ctx, timeout, s.runner, s.cfg.Binary, args...); err != nil {
		if services.IsTimeout(err) {
			return services.Wrap(services.ErrTimeout, "extract", s.cfg.Binary, "audio extraction exceeded its deadline", err)
		}
		return services.Wrap(services.ErrExternalTool, "extract", s.cfg.Binary, "audio extraction failed", err)
	}
	return nil
}

// BurnSubtitles renders the subtitle file into the video with an opaque
// box style, re-encoding video while copying the audio stream through.
func (s *Service) BurnSubtitles(ctx context.Context, videoPath, subtitlePath, outputPath string, fontSize int) error {
	filter := fmt.Sprintf("subtitles=%s:force_style='%s'", escapeFilterPath(subtitlePath), forceStyle(fontSize))
	args := []string{
		"-y",
		"-i", videoPath,
		"-vf", filter,
		"-c:v", s.cfg.VideoCodec,
		"-preset", s.cfg.Preset,
		"-crf", strconv.Itoa(s.cfg.CRF),
		"-c:a", "copy",
		outputPath,
	}
	timeout := time.Duration(s.cfg.BurnTimeout) * time.Second
	if _, err := services.RunWithTimeout(ctx, timeout, s.runner, s.cfg.Binary, args...); err != nil {
		if services.IsTimeout(err) {
			return services.Wrap(services.ErrTimeout, "burn", s.cfg.Binary, "subtitle render exceeded its deadline", err)
		}
		return services.Wrap(services.ErrExternalTool, "burn", s.cfg.Binary, "subtitle render failed", err)
	}
	return nil
}

func forceStyle(fontSize int) string {
	return fmt.Sprintf("FontSize=%d,OutlineColour=&H80000000,BorderStyle=3,BackColour=&H80000000,Alignment=2", fontSize)
}

// escapeFilterPath quotes characters that the ffmpeg filter parser treats
// specially inside a filter argument.
func escapeFilterPath(path string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`:`, `\:`,
		`'`, `\'`,
		`[`, `\[`,
		`]`, `\]`,
	)
	return replacer.Replace(path)
}
