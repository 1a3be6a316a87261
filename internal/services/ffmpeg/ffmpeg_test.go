package ffmpeg

import (
	"context"
	"errors"
	"strings"
	"testing"

	"subburn/internal/config"
	"subburn/internal/services"
)

func captureArgs(captured *[]string, fail error) services.CommandRunner {
	return func(_ context.Context, _ string, args ...string) ([]byte, error) {
		*captured = append([]string{}, args...)
		return nil, fail
	}
}

func TestExtractAudioArgs(t *testing.T) {
	var args []string
	service := NewService(config.Default().FFmpeg).WithRunner(captureArgs(&args, nil))

	if err := service.ExtractAudio(context.Background(), "/tmp/video.mp4", "/tmp/audio.wav"); err != nil {
		t.Fatalf("extract: %v", err)
	}

	joined := strings.Join(args, " ")
	for _, want := range []string{"-vn", "-ac 1", "-ar 16000", "-acodec pcm_s16le", "/tmp/audio.wav"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %s", want, joined)
		}
	}
}

func TestBurnSubtitlesArgs(t *testing.T) {
	var args []string
	service := NewService(config.Default().FFmpeg).WithRunner(captureArgs(&args, nil))

	if err := service.BurnSubtitles(context.Background(), "/tmp/video.mp4", "/tmp/subs.srt", "/tmp/out.mp4", 28); err != nil {
		t.Fatalf("burn: %v", err)
	}

	joined := strings.Join(args, " ")
	for _, want := range []string{
		"FontSize=28",
		"BorderStyle=3",
		"BackColour=&H80000000",
		"Alignment=2",
		"-c:a copy",
		"-c:v libx264",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %s", want, joined)
		}
	}
}

func TestBurnSubtitlesWrapsToolFailure(t *testing.T) {
	var args []string
	service := NewService(config.Default().FFmpeg).WithRunner(captureArgs(&args, errors.New("filter parse error")))

	err := service.BurnSubtitles(context.Background(), "v.mp4", "s.srt", "o.mp4", 24)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("error not tagged external tool: %v", err)
	}
}

func TestEscapeFilterPath(t *testing.T) {
	got := escapeFilterPath(`/data/job's [1]/subs.srt`)
	want := `/data/job\'s \[1\]/subs.srt`
	if got != want {
		t.Fatalf("escaped = %q, want %q", got, want)
	}
}
