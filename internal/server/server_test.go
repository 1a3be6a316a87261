package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"subburn/internal/catalog"
	"subburn/internal/config"
	"subburn/internal/dispatcher"
	"subburn/internal/jobstore"
	"subburn/internal/logging"
	"subburn/internal/testsupport"
)

type fixture struct {
	store  *jobstore.Store
	cat    *catalog.Store
	server *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := testsupport.NewConfig(t, func(cfg *config.Config) {
		stub := filepath.Join(t.TempDir(), "subburn-worker")
		if err := os.WriteFile(stub, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
			t.Fatalf("write worker stub: %v", err)
		}
		cfg.Paths.WorkerBinary = stub
	})
	store := testsupport.NewStore(t, cfg)

	cat, err := catalog.Open(cfg.Paths.DataDir)
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { cat.Close() })

	disp := dispatcher.New(cfg, "", store, cat, logging.NewNop())
	api := New(cfg, store, cat, disp, logging.NewNop())

	ts := httptest.NewServer(api.router())
	t.Cleanup(ts.Close)

	return &fixture{store: store, cat: cat, server: ts}
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.server.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body := decodeBody(t, resp)
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("status=%d body=%v", resp.StatusCode, body)
	}
}

func TestStatusUnknownIDReturnsQueuedPlaceholder(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.server.URL + "/api/status/no-such-job")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body := decodeBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["status"] != "queued" {
		t.Fatalf("body = %v, want queued placeholder", body)
	}
}

func TestStatusIncludesOutputWhenDone(t *testing.T) {
	f := newFixture(t)
	if err := f.store.Create("job-1", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	record := jobstore.Record{Status: jobstore.StatusDone, Log: "Completed", Output: "/api/output/job-1"}
	if err := f.store.Update("job-1", record); err != nil {
		t.Fatalf("update: %v", err)
	}

	resp, err := http.Get(f.server.URL + "/api/status/job-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body := decodeBody(t, resp)
	if body["output"] != "/api/output/job-1" {
		t.Fatalf("body = %v", body)
	}
}

func TestOutputNotReadyReturns404(t *testing.T) {
	f := newFixture(t)
	if err := f.store.Create("job-1", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.store.Update("job-1", jobstore.Record{Status: jobstore.StatusBurning, Log: "Rendering"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	resp, err := http.Get(f.server.URL + "/api/output/job-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestOutputServesFinishedVideo(t *testing.T) {
	f := newFixture(t)
	id := "0a1b2c3d-0000-1111-2222-333344445555"
	if err := f.store.Create(id, ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	testsupport.WriteFile(t, f.store.Paths(id).Output(), []byte("final-video"))
	record := jobstore.Record{Status: jobstore.StatusDone, Log: "Completed", Output: "/api/output/" + id}
	if err := f.store.Update(id, record); err != nil {
		t.Fatalf("update: %v", err)
	}

	resp, err := http.Get(f.server.URL + "/api/output/" + id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); got != "video/mp4" {
		t.Fatalf("content type = %q", got)
	}
	disposition := resp.Header.Get("Content-Disposition")
	if !strings.Contains(disposition, "0a1b2c3d000011112222333344445555_subtitle.mp4") {
		t.Fatalf("disposition = %q", disposition)
	}
	data, _ := io.ReadAll(resp.Body)
	if string(data) != "final-video" {
		t.Fatalf("body = %q", data)
	}
}

func TestUploadRejectsMissingFile(t *testing.T) {
	f := newFixture(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	_ = writer.WriteField("target_lang", "id")
	writer.Close()

	resp, err := http.Post(f.server.URL+"/api/upload", writer.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestUploadAcceptsVideo(t *testing.T) {
	f := newFixture(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "clip.mp4")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := part.Write([]byte("video-bytes")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	_ = writer.WriteField("target_lang", "id")
	_ = writer.WriteField("font_size", "28")
	writer.Close()

	resp, err := http.Post(f.server.URL+"/api/upload", writer.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	body := decodeBody(t, resp)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	id, _ := body["id"].(string)
	if id == "" {
		t.Fatalf("no id in response: %v", body)
	}
	if !f.store.Exists(id) {
		t.Fatal("job directory missing")
	}
}

func TestStartRejectsInvalidLanguage(t *testing.T) {
	f := newFixture(t)
	payload := `{"url": "https://example.com/v", "target_lang": "not-a-language-code"}`
	resp, err := http.Post(f.server.URL+"/api/start", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestStartAcceptsJSONSubmission(t *testing.T) {
	f := newFixture(t)
	payload := `{"url": "https://example.com/v", "target_lang": "id", "font_size": 24}`
	resp, err := http.Post(f.server.URL+"/api/start", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	body := decodeBody(t, resp)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
}

func TestCancelUnknownJobReturns404(t *testing.T) {
	f := newFixture(t)
	req, _ := http.NewRequest(http.MethodDelete, f.server.URL+"/api/jobs/no-such-job", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestCORSHeadersPresent(t *testing.T) {
	f := newFixture(t)
	req, _ := http.NewRequest(http.MethodOptions, f.server.URL+"/api/status/x", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("CORS origin header missing")
	}
}

func TestIndexServesHTML(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.server.URL + "/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	data, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(data), "<!DOCTYPE html>") {
		t.Fatal("index page missing")
	}
}
