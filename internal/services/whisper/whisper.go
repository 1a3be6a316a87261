// Package whisper invokes the external transcription CLI and loads its
// JSON segment output.
package whisper

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"subburn/internal/config"
	"subburn/internal/services"
	"subburn/internal/subtitles"
)

// Segment is one transcribed span as emitted by the CLI.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type transcriptFile struct {
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`
}

// Service runs the transcription binary.
type Service struct {
	cfg    config.Whisper
	runner services.CommandRunner
}

// NewService builds a transcription service from configuration.
func NewService(cfg config.Whisper) *Service {
	return &Service{cfg: cfg, runner: services.Run}
}

// WithRunner substitutes the command runner (for testing).
func (s *Service) WithRunner(runner services.CommandRunner) *Service {
	s.runner = runner
	return s
}

// Transcribe runs the CLI on audioPath, writing its JSON output into
// outputDir, and returns the parsed segments. An empty segment list is a
// valid result for silent or speech-free audio, not an error.
func (s *Service) Transcribe(ctx context.Context, audioPath, outputDir string) ([]Segment, error) {
	args := s.buildArgs(audioPath, outputDir)
	timeout := time.Duration(s.cfg.TimeoutSeconds) * time.Second

	if _, err := services.RunWithTimeout(ctx, timeout, s.runner, s.cfg.Binary, args...); err != nil {
		if services.IsTimeout(err) {
			return nil, services.Wrap(services.ErrTimeout, "transcribe", s.cfg.Binary, "transcription exceeded its deadline", err)
		}
		return nil, services.Wrap(services.ErrExternalTool, "transcribe", s.cfg.Binary, "transcription failed", err)
	}

	jsonPath := transcriptPath(audioPath, outputDir)
	segments, err := LoadSegments(jsonPath)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "transcribe", s.cfg.Binary, "transcript output missing or unreadable", err)
	}
	return segments, nil
}

func (s *Service) buildArgs(audioPath, outputDir string) []string {
	return []string{
		audioPath,
		"--model", s.cfg.Model,
		"--device", s.cfg.Device,
		"--compute_type", s.cfg.ComputeType,
		"--task", "transcribe",
		"--output_format", "json",
		"--output_dir", outputDir,
	}
}

// LoadSegments parses the CLI's JSON transcript file.
func LoadSegments(path string) ([]Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	var parsed transcriptFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse transcript: %w", err)
	}
	for i := range parsed.Segments {
		parsed.Segments[i].Text = strings.TrimSpace(parsed.Segments[i].Text)
	}
	return parsed.Segments, nil
}

// Cues converts segments into subtitle cues, dropping empty-text spans.
func Cues(segments []Segment) []subtitles.Cue {
	cues := make([]subtitles.Cue, 0, len(segments))
	for _, segment := range segments {
		if segment.Text == "" {
			continue
		}
		cues = append(cues, subtitles.Cue{Start: segment.Start, End: segment.End, Text: segment.Text})
	}
	return cues
}

// transcriptPath mirrors the CLI convention of naming the JSON output after
// the audio file's base name inside the output directory.
func transcriptPath(audioPath, outputDir string) string {
	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	return filepath.Join(outputDir, base+".json")
}
