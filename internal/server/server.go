// Package server exposes the HTTP API: job submission, status polling,
// result download, cancellation, and the optional auth proxy.
package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"subburn/internal/catalog"
	"subburn/internal/config"
	"subburn/internal/dispatcher"
	"subburn/internal/jobstore"
	"subburn/internal/logging"
	"subburn/internal/services"
)

//go:embed index.html
var indexPage []byte

// Maximum accepted upload size. Anything larger is rejected before the
// pipeline spends a worker slot on it.
const maxUploadBytes = 2 << 30

// Server handles the HTTP API.
type Server struct {
	cfg    *config.Config
	store  *jobstore.Store
	cat    *catalog.Store
	disp   *dispatcher.Dispatcher
	logger *slog.Logger
	http   *http.Server
}

// New assembles the server and its router.
func New(cfg *config.Config, store *jobstore.Store, cat *catalog.Store, disp *dispatcher.Dispatcher, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		store:  store,
		cat:    cat,
		disp:   disp,
		logger: logger.With(slog.String("component", "api")),
	}
	s.http = &http.Server{
		Addr:              cfg.Paths.Bind,
		Handler:           s.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)
	r.Use(s.requestLogger)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", s.handleUpload)
		r.Post("/start", s.handleStart)
		r.Get("/status/{id}", s.handleStatus)
		r.Get("/output/{id}", s.handleOutput)
		r.Get("/jobs", s.handleJobs)
		r.Delete("/jobs/{id}", s.handleCancel)

		if s.cfg.AuthEnabled() {
			r.Post("/auth/signup", s.handleAuthProxy("/auth/v1/signup"))
			r.Post("/auth/login", s.handleAuthProxy("/auth/v1/token?grant_type=password"))
			r.Get("/auth/user", s.handleAuthUser())
		}
	})
	return r
}

// ListenAndServe blocks until the context is cancelled or the listener
// fails, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", slog.String("addr", s.http.Addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexPage)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	active, err := s.cat.CountActive(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "catalog unavailable")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"active_jobs": active,
	})
}

// handleUpload accepts a multipart video file plus target_lang and
// font_size form fields.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()
	if header.Size == 0 {
		s.respondError(w, http.StatusBadRequest, "uploaded file is empty")
		return
	}

	s.submit(w, r, dispatcher.Submission{
		Upload:     file,
		TargetLang: r.FormValue("target_lang"),
		FontSize:   parseFontSize(r.FormValue("font_size")),
	})
}

// handleStart accepts a JSON body with url, target_lang, and font_size,
// or the same values as form fields.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var sub dispatcher.Submission
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			URL        string `json:"url"`
			TargetLang string `json:"target_lang"`
			FontSize   int    `json:"font_size"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		sub = dispatcher.Submission{SourceURL: body.URL, TargetLang: body.TargetLang, FontSize: body.FontSize}
	} else {
		if err := r.ParseForm(); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid form body")
			return
		}
		sub = dispatcher.Submission{
			SourceURL:  r.FormValue("url"),
			TargetLang: r.FormValue("target_lang"),
			FontSize:   parseFontSize(r.FormValue("font_size")),
		}
	}
	s.submit(w, r, sub)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, sub dispatcher.Submission) {
	id, err := s.disp.Submit(r.Context(), sub)
	switch {
	case errors.Is(err, dispatcher.ErrBusy):
		s.respondError(w, http.StatusServiceUnavailable, "server is busy, try again later")
	case errors.Is(err, services.ErrValidation):
		s.respondError(w, http.StatusBadRequest, services.Message(err))
	case err != nil:
		s.logger.Error("submission failed", logging.Error(err))
		s.respondError(w, http.StatusInternalServerError, "submission failed")
	default:
		s.respondJSON(w, http.StatusAccepted, map[string]string{"id": id})
	}
}

// handleStatus serves the job's status record. Unknown ids get a queued
// placeholder so pollers that race the worker's first write see a sane
// document instead of a 404.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	record, err := s.store.Read(id)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "status unavailable")
		return
	}

	body := map[string]any{
		"status": record.Status,
		"log":    record.Log,
	}
	if record.Output != "" {
		body["output"] = record.Output
	}
	s.respondJSON(w, http.StatusOK, body)
}

// handleOutput streams the finished video. The file exists on disk before
// the done record is written, so a done status guarantees a servable file.
func (s *Server) handleOutput(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	record, err := s.store.Read(id)
	if err != nil || record.Status != jobstore.StatusDone {
		s.respondError(w, http.StatusNotFound, "output not ready")
		return
	}

	outputPath := s.store.Paths(id).Output()
	if _, err := os.Stat(outputPath); err != nil {
		s.respondError(w, http.StatusNotFound, "output not ready")
		return
	}

	filename := strings.ReplaceAll(id, "-", "") + "_subtitle.mp4"
	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	http.ServeFile(w, r, outputPath)
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	entries, err := s.cat.List(r.Context(), limit)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "catalog unavailable")
		return
	}

	type jobView struct {
		ID         string `json:"id"`
		SourceKind string `json:"source_kind"`
		Source     string `json:"source,omitempty"`
		TargetLang string `json:"target_lang"`
		Status     string `json:"status"`
		Error      string `json:"error,omitempty"`
		CreatedAt  string `json:"created_at"`
		UpdatedAt  string `json:"updated_at"`
	}
	views := make([]jobView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, jobView{
			ID:         entry.ID,
			SourceKind: string(entry.SourceKind),
			Source:     entry.Source,
			TargetLang: entry.TargetLang,
			Status:     string(entry.Status),
			Error:      entry.ErrorMessage,
			CreatedAt:  entry.CreatedAt.UTC().Format(time.RFC3339),
			UpdatedAt:  entry.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"jobs": views})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.store.Exists(id) {
		s.respondError(w, http.StatusNotFound, "unknown job")
		return
	}
	if err := s.disp.Cancel(r.Context(), id); err != nil {
		if errors.Is(err, services.ErrValidation) {
			s.respondError(w, http.StatusConflict, services.Message(err))
			return
		}
		s.logger.Error("cancel failed", slog.String("job_id", id), logging.Error(err))
		s.respondError(w, http.StatusInternalServerError, "cancel failed")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(jobstore.StatusCancelled)})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(wrapped, r)
		s.logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", wrapped.Status()),
			slog.Duration("duration", time.Since(start)))
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("encode response", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

func parseFontSize(raw string) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return value
}
