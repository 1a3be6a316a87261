package whisper_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"subburn/internal/config"
	"subburn/internal/services/whisper"
)

const sampleTranscript = `{
  "language": "en",
  "segments": [
    {"start": 0.0, "end": 1.2, "text": "  Hello there.  "},
    {"start": 1.5, "end": 2.0, "text": ""},
    {"start": 2.1, "end": 3.4, "text": "Second line."}
  ]
}`

func TestTranscribeParsesSegments(t *testing.T) {
	outputDir := t.TempDir()
	audioPath := filepath.Join(outputDir, "audio.wav")

	runner := func(_ context.Context, _ string, args ...string) ([]byte, error) {
		// The CLI writes <audio base>.json into the output directory.
		return nil, os.WriteFile(filepath.Join(outputDir, "audio.json"), []byte(sampleTranscript), 0o644)
	}

	service := whisper.NewService(config.Default().Whisper).WithRunner(runner)
	segments, err := service.Transcribe(context.Background(), audioPath, outputDir)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if len(segments) != 3 {
		t.Fatalf("got %d segments, want 3", len(segments))
	}
	if segments[0].Text != "Hello there." {
		t.Fatalf("text not trimmed: %q", segments[0].Text)
	}
}

func TestTranscribeEmptyTranscriptIsValid(t *testing.T) {
	outputDir := t.TempDir()
	audioPath := filepath.Join(outputDir, "audio.wav")

	runner := func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		return nil, os.WriteFile(filepath.Join(outputDir, "audio.json"), []byte(`{"segments": []}`), 0o644)
	}

	service := whisper.NewService(config.Default().Whisper).WithRunner(runner)
	segments, err := service.Transcribe(context.Background(), audioPath, outputDir)
	if err != nil {
		t.Fatalf("empty transcript must not be an error: %v", err)
	}
	if len(segments) != 0 {
		t.Fatalf("got %d segments, want 0", len(segments))
	}
}

func TestTranscribeMissingOutputFails(t *testing.T) {
	outputDir := t.TempDir()
	runner := func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		return nil, nil
	}
	service := whisper.NewService(config.Default().Whisper).WithRunner(runner)
	if _, err := service.Transcribe(context.Background(), filepath.Join(outputDir, "audio.wav"), outputDir); err == nil {
		t.Fatal("expected error when transcript file is missing")
	}
}

func TestCuesDropsEmptySegments(t *testing.T) {
	segments := []whisper.Segment{
		{Start: 0, End: 1, Text: "keep"},
		{Start: 1, End: 2, Text: ""},
		{Start: 2, End: 3, Text: "also keep"},
	}
	cues := whisper.Cues(segments)
	if len(cues) != 2 {
		t.Fatalf("got %d cues, want 2", len(cues))
	}
	if cues[1].Text != "also keep" || cues[1].Start != 2 {
		t.Fatalf("unexpected cue: %+v", cues[1])
	}
}
