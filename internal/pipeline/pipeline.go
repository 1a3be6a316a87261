// Package pipeline runs one job end to end inside the worker process:
// resolve input, extract audio, transcribe, translate, burn, finish.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"subburn/internal/config"
	"subburn/internal/fileutil"
	"subburn/internal/jobstore"
	"subburn/internal/language"
	"subburn/internal/logging"
	"subburn/internal/services"
	"subburn/internal/services/ffmpeg"
	"subburn/internal/services/translate"
	"subburn/internal/services/whisper"
	"subburn/internal/services/ytdlp"
	"subburn/internal/subtitles"
)

// errSuperseded aborts a run whose record turned terminal underneath it,
// which happens when the daemon cancels the job mid-flight.
var errSuperseded = errors.New("job record is already terminal")

// Job carries everything the worker needs to process one submission.
type Job struct {
	ID         string
	SourceURL  string // empty when the input video was uploaded
	TargetLang string
	FontSize   int
}

// Downloader fetches a remote video into the job directory.
type Downloader interface {
	Download(ctx context.Context, url, jobDir, dest string, progress func(attempt, total int)) (string, error)
}

// Media wraps the ffmpeg operations the pipeline needs.
type Media interface {
	ExtractAudio(ctx context.Context, videoPath, audioPath string) error
	BurnSubtitles(ctx context.Context, videoPath, subtitlePath, outputPath string, fontSize int) error
}

// Transcriber produces timed segments from an audio file.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, outputDir string) ([]whisper.Segment, error)
}

// Translator translates subtitle lines into the target language.
type Translator interface {
	TranslateLines(ctx context.Context, lines []string, targetLang string, onError func(index int, err error)) map[int]string
}

// Runner executes the stage sequence for a single job.
type Runner struct {
	store       *jobstore.Store
	downloader  Downloader
	media       Media
	transcriber Transcriber
	translator  Translator
	logger      *slog.Logger
}

// NewRunner wires a runner from configuration with the real tool clients.
func NewRunner(cfg *config.Config, store *jobstore.Store, logger *slog.Logger) *Runner {
	return &Runner{
		store:       store,
		downloader:  ytdlp.NewClient(cfg.Download),
		media:       ffmpeg.NewService(cfg.FFmpeg),
		transcriber: whisper.NewService(cfg.Whisper),
		translator:  translate.NewClient(cfg.Translate),
		logger:      logger,
	}
}

// WithClients substitutes tool clients (for testing).
func (r *Runner) WithClients(downloader Downloader, media Media, transcriber Transcriber, translator Translator) *Runner {
	if downloader != nil {
		r.downloader = downloader
	}
	if media != nil {
		r.media = media
	}
	if transcriber != nil {
		r.transcriber = transcriber
	}
	if translator != nil {
		r.translator = translator
	}
	return r
}

// Run processes the job. A fatal stage error is persisted as a failed
// record first and then returned, so the worker process exits non-zero
// with the outcome already durable. A run superseded by a cancellation
// returns nil.
func (r *Runner) Run(ctx context.Context, job Job) error {
	paths := r.store.Paths(job.ID)
	logger := r.logger.With(slog.String("job_id", job.ID))

	if err := r.execute(ctx, job, paths, logger); err != nil {
		if errors.Is(err, errSuperseded) {
			logger.Info("run superseded by terminal record")
			return nil
		}
		logger.Error("job failed", logging.Error(err))
		failed := jobstore.Record{
			Status: jobstore.StatusFailed,
			Log:    services.Message(err),
			PID:    os.Getpid(),
		}
		if writeErr := r.store.Update(job.ID, failed); writeErr != nil && !errors.Is(writeErr, jobstore.ErrTerminal) {
			return fmt.Errorf("record failure: %w", writeErr)
		}
		return err
	}
	return nil
}

func (r *Runner) execute(ctx context.Context, job Job, paths jobstore.Paths, logger *slog.Logger) error {
	if err := r.setStatus(job.ID, jobstore.StatusStarted, "Preparing job"); err != nil {
		return err
	}

	if err := r.resolveInput(ctx, job, paths, logger); err != nil {
		return err
	}

	if err := r.setStatus(job.ID, jobstore.StatusProcessing, "Extracting audio"); err != nil {
		return err
	}
	if err := r.media.ExtractAudio(ctx, paths.Video(), paths.Audio()); err != nil {
		return err
	}

	if err := r.setStatus(job.ID, jobstore.StatusTranscribing, "Transcribing speech"); err != nil {
		return err
	}
	segments, err := r.transcriber.Transcribe(ctx, paths.Audio(), paths.Dir)
	if err != nil {
		return err
	}
	cues := whisper.Cues(segments)
	logger.Info("transcription complete", slog.Int("cues", len(cues)))

	if len(cues) == 0 {
		// Nothing to subtitle. The video itself is still a valid result.
		if err := fileutil.CopyFile(paths.Video(), paths.Output()); err != nil {
			return fmt.Errorf("copy video to output: %w", err)
		}
		return r.finish(job.ID, "Completed (no speech detected)")
	}

	if err := subtitles.WriteSRT(paths.RawSubtitle(), cues); err != nil {
		return err
	}

	if err := r.setStatus(job.ID, jobstore.StatusTranslating, "Translating subtitles to "+language.DisplayName(job.TargetLang)); err != nil {
		return err
	}
	translated := r.translateCues(ctx, cues, job.TargetLang, logger)
	if err := subtitles.WriteSRT(paths.FinalSubtitle(), translated); err != nil {
		return err
	}

	if err := r.setStatus(job.ID, jobstore.StatusBurning, "Rendering subtitles into video"); err != nil {
		return err
	}
	if err := r.media.BurnSubtitles(ctx, paths.Video(), paths.FinalSubtitle(), paths.Output(), job.FontSize); err != nil {
		return err
	}

	return r.finish(job.ID, "Completed")
}

// resolveInput makes sure video.mp4 exists: either the daemon materialized
// an upload there already, or the source URL is downloaded now.
func (r *Runner) resolveInput(ctx context.Context, job Job, paths jobstore.Paths, logger *slog.Logger) error {
	if job.SourceURL == "" {
		if _, err := os.Stat(paths.Video()); err != nil {
			return services.Wrap(services.ErrValidation, "resolve", "input", "uploaded video is missing", err)
		}
		return nil
	}

	sourceURL := resolveSource(job.SourceURL)
	if sourceURL != job.SourceURL {
		logger.Info("resolved embed snippet", slog.String("url", sourceURL))
	}

	if err := r.setStatus(job.ID, jobstore.StatusDownloading, "Downloading video"); err != nil {
		return err
	}
	_, err := r.downloader.Download(ctx, sourceURL, paths.Dir, paths.Video(), func(attempt, total int) {
		logger.Info("download attempt", slog.Int("attempt", attempt), slog.Int("total", total))
		message := fmt.Sprintf("Downloading video (attempt %d/%d)", attempt, total)
		_ = r.setStatus(job.ID, jobstore.StatusDownloading, message)
	})
	return err
}

// translateCues fans the cue texts out to the translator. Lines that fail
// keep their original text, so translation problems degrade the output
// instead of failing the job.
func (r *Runner) translateCues(ctx context.Context, cues []subtitles.Cue, targetLang string, logger *slog.Logger) []subtitles.Cue {
	lines := make([]string, len(cues))
	for i, cue := range cues {
		lines[i] = cue.Text
	}
	translations := r.translator.TranslateLines(ctx, lines, targetLang, func(index int, err error) {
		logger.Warn("line translation failed, keeping original",
			slog.Int("line", index), logging.Error(err))
	})
	logger.Info("translation complete",
		slog.Int("translated", len(translations)), slog.Int("total", len(lines)))
	return subtitles.MergeTranslations(cues, translations)
}

func (r *Runner) finish(id, message string) error {
	record := jobstore.Record{
		Status: jobstore.StatusDone,
		Log:    message,
		Output: "/api/output/" + id,
		PID:    os.Getpid(),
	}
	if err := r.store.Update(id, record); err != nil {
		if errors.Is(err, jobstore.ErrTerminal) {
			return errSuperseded
		}
		return err
	}
	return nil
}

func (r *Runner) setStatus(id string, status jobstore.Status, message string) error {
	record := jobstore.Record{Status: status, Log: message, PID: os.Getpid()}
	if err := r.store.Update(id, record); err != nil {
		if errors.Is(err, jobstore.ErrTerminal) {
			return errSuperseded
		}
		return err
	}
	return nil
}
